package main

import (
	"flag"
	"fmt"
	"os"

	chainr "github.com/amarrr33/imagechain/internal/chainr"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "gen":
		genCmd := flag.NewFlagSet("gen", flag.ExitOnError)
		defaults := chainr.DefaultOptions()
		outDir := genCmd.String("out", defaults.OutDir, "Output directory")
		chains := genCmd.Int("chains", defaults.Chains, "Number of chains to generate")
		versions := genCmd.Int("versions", defaults.Versions, "Versions per chain")
		size := genCmd.Int("size", defaults.Size, "Base image size in pixels")
		scheme := genCmd.String("scheme", defaults.Scheme, "Signature scheme")
		genCmd.Parse(os.Args[2:])

		opts := chainr.Options{
			OutDir:   *outDir,
			Chains:   *chains,
			Versions: *versions,
			Size:     *size,
			Scheme:   *scheme,
		}
		fmt.Printf("Generating %d chain(s) of %d version(s) into %s\n", opts.Chains, opts.Versions, opts.OutDir)
		if err := chainr.Generate(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`Usage: chainr <subcommand> [flags]`)
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  gen     Generate synthetic provenance chains")
	fmt.Println("  help    Show this help message")
}
