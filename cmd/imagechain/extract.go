package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amarrr33/imagechain/internal/imagechain/extract"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

var (
	extractFlagInput string
	extractFlagJSON  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Recover the embedded chain from an image",
	Long: `Extract tries the spatial payload at each quarter-turn rotation and
falls back to the frequency-domain critical record when the spatial
layer is gone (lossy recompression, heavy damage).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if extractFlagInput == "" {
			return fmt.Errorf("--input is required")
		}
		data, err := os.ReadFile(extractFlagInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		grid, err := imaging.Decode(data)
		if err != nil {
			return fmt.Errorf("decode input: %w", err)
		}

		res := extract.WithRotations(grid)

		if extractFlagJSON {
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		switch res.Outcome {
		case extract.OutcomeFull:
			fmt.Printf("full payload recovered (rotation %d)\n", res.Rotation)
			fmt.Printf("chain %s: %d versions\n", res.Payload.ChainID, len(res.Payload.History))
			for _, e := range res.Payload.History {
				fmt.Printf("  v%d  %s  %s  edits=%d\n", e.Version, e.Timestamp, e.Signer, len(e.EditLog))
			}
			if res.ErrorRate > 0 {
				fmt.Printf("corruption corrected; error rate %.4f\n", res.ErrorRate)
			}
		case extract.OutcomeMetadata:
			m := res.CriticalMetadata
			fmt.Printf("spatial payload unrecoverable; critical record found (rotation %d)\n", res.Rotation)
			fmt.Printf("chain %s: %d versions, head %s\n", m.ChainID, m.VersionCount, m.LastVersionHash)
		default:
			fmt.Println("no embedded chain found")
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFlagInput, "input", "", "image to inspect")
	extractCmd.Flags().BoolVar(&extractFlagJSON, "json", false, "emit the full result as JSON")
}
