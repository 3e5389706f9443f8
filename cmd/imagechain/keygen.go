package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
)

var (
	keygenFlagScheme string
	keygenFlagOut    string
	keygenFlagName   string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate and export a signing key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := cryptoutil.GenerateKeys(keygenFlagScheme)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(keygenFlagOut, 0755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}

		privPath := filepath.Join(keygenFlagOut, keygenFlagName+".key")
		pubPath := filepath.Join(keygenFlagOut, keygenFlagName+".pub")
		if err := os.WriteFile(privPath, []byte(kp.PrivatePEM), 0600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		if err := os.WriteFile(pubPath, []byte(kp.PublicPEM), 0644); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}

		fmt.Printf("wrote %s and %s (%s)\n", privPath, pubPath, kp.Scheme)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenFlagScheme, "scheme", cryptoutil.SchemeECDSAP256, "rsa-pss-sha256 or ecdsa-p256-sha256")
	keygenCmd.Flags().StringVar(&keygenFlagOut, "out", ".", "output directory")
	keygenCmd.Flags().StringVar(&keygenFlagName, "name", "imagechain", "key file base name")
}
