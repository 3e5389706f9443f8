package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amarrr33/imagechain/internal/imagechain/chain"
	"github.com/amarrr33/imagechain/internal/imagechain/config"
	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
	"github.com/amarrr33/imagechain/internal/imagechain/extract"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

var (
	commitFlagInput  string
	commitFlagOutput string
	commitFlagSigner string
	commitFlagScheme string
	commitFlagEdits  string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Append a signed version entry and re-embed the chain",
	Long: `Commit reads an image, adopts any chain already embedded in it,
appends one signed history entry, and writes the image with the
updated payload embedded. A fresh key pair is generated for every
commit and its public key is printed for verification; commit does
not load keys from disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if commitFlagInput == "" || commitFlagOutput == "" {
			return fmt.Errorf("--input and --output are required")
		}

		signer := commitFlagSigner
		if signer == "" {
			signer = cfg.Signing.Signer
		}
		scheme := commitFlagScheme
		if scheme == "" {
			scheme = cfg.Signing.Scheme
		}
		if scheme == "" {
			scheme = cryptoutil.SchemeECDSAP256
		}

		var edits []chain.EditOp
		if commitFlagEdits != "" {
			if err := json.Unmarshal([]byte(commitFlagEdits), &edits); err != nil {
				return fmt.Errorf("parse --edits: %w", err)
			}
		}

		data, err := os.ReadFile(commitFlagInput)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		grid, err := imaging.Decode(data)
		if err != nil {
			return fmt.Errorf("decode input: %w", err)
		}

		// Adopt an existing chain when the image already carries one.
		var existing *chain.ChainedPayload
		if res := extract.WithRotations(grid); res.Outcome == extract.OutcomeFull {
			existing = res.Payload
		}

		session := chain.NewSession()
		if err := session.Configure(signer, scheme); err != nil {
			return err
		}
		if err := session.Ingest(grid, existing); err != nil {
			return err
		}

		canvas, res, err := session.Commit(grid, edits)
		if err != nil {
			return err
		}

		out, err := imaging.EncodePNG(canvas)
		if err != nil {
			return err
		}
		if err := os.WriteFile(commitFlagOutput, out, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		fmt.Printf("committed version %d (chain %s)\n", res.Entry.Version, session.Payload.ChainID[:12])
		if !res.DCTEmbedded {
			fmt.Println("note: image too small for the frequency-domain record; spatial layer only")
		}
		fmt.Printf("public key for verification:\n%s", session.Keys.PublicPEM)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitFlagInput, "input", "", "input image (png, jpeg, webp)")
	commitCmd.Flags().StringVar(&commitFlagOutput, "output", "", "output image path (png)")
	commitCmd.Flags().StringVar(&commitFlagSigner, "signer", "", "signer identity (default from config)")
	commitCmd.Flags().StringVar(&commitFlagScheme, "scheme", "", "signature scheme: rsa-pss-sha256 or ecdsa-p256-sha256")
	commitCmd.Flags().StringVar(&commitFlagEdits, "edits", "", "edit log as a JSON array of operations")
}
