package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amarrr33/imagechain/internal/imagechain/chain"
	"github.com/amarrr33/imagechain/internal/imagechain/config"
	"github.com/amarrr33/imagechain/internal/imagechain/extract"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

var (
	verifyFlagInput     string
	verifyFlagPublicKey string
	verifyFlagJSON      bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Extract the embedded chain and verify every entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if verifyFlagInput == "" {
			return fmt.Errorf("--input is required")
		}
		keyPath := verifyFlagPublicKey
		if keyPath == "" {
			keyPath = cfg.Signing.PublicKeyPath
		}
		if keyPath == "" {
			return fmt.Errorf("--public-key is required")
		}
		keyPEM, err := os.ReadFile(keyPath)
		if err != nil {
			return fmt.Errorf("read public key: %w", err)
		}

		data, err := os.ReadFile(verifyFlagInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		grid, err := imaging.Decode(data)
		if err != nil {
			return fmt.Errorf("decode input: %w", err)
		}

		res := extract.WithRotations(grid)
		if res.Outcome != extract.OutcomeFull {
			return fmt.Errorf("no full payload in image (outcome: %s)", res.Outcome)
		}

		// An uploaded file embeds the payload, so its pixels no longer
		// hash to the head entry's pre-embedding sha256.
		vr, err := chain.VerifyChain(res.Payload, string(keyPEM), chain.VerifyOptions{IsUploaded: true})
		if err != nil {
			return err
		}

		if verifyFlagJSON {
			out, err := json.MarshalIndent(vr, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("chain %s: %d entries\n", res.Payload.ChainID[:12], len(vr.Entries))
		for _, er := range vr.Entries {
			status := "ok"
			if !er.SignatureValid || !er.ChainLinkValid {
				status = "INVALID"
			}
			fmt.Printf("  v%d  signature=%t  link=%t  %s", er.Version, er.SignatureValid, er.ChainLinkValid, status)
			if er.Warning != "" {
				fmt.Printf("  (%s)", er.Warning)
			}
			if er.Err != "" {
				fmt.Printf("  [%s]", er.Err)
			}
			fmt.Println()
		}
		if !vr.AllValid {
			return fmt.Errorf("chain verification failed")
		}
		fmt.Println("all entries valid")
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFlagInput, "input", "", "image to verify")
	verifyCmd.Flags().StringVar(&verifyFlagPublicKey, "public-key", "", "public key PEM path")
	verifyCmd.Flags().BoolVar(&verifyFlagJSON, "json", false, "emit the full result as JSON")
}
