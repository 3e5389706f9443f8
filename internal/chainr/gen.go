// Package chainr generates synthetic provenance chains for manual
// inspection and demos: procedurally drawn base images committed
// through multi-version edit histories under fake signer identities.
package chainr

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/amarrr33/imagechain/internal/imagechain/chain"
	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
	"github.com/amarrr33/imagechain/internal/imagechain/logger"
)

// Options controls one generation run.
type Options struct {
	OutDir   string
	Chains   int
	Versions int
	Size     int
	Scheme   string
}

// Generate builds Options.Chains synthetic chains, each committed
// through Options.Versions versions, and writes every version's
// embedded image plus the final public key under OutDir.
func Generate(opts Options) error {
	log := logger.L()
	if opts.Chains < 1 || opts.Versions < 1 {
		return fmt.Errorf("chainr: need at least one chain and one version")
	}
	if opts.Size < 128 {
		return fmt.Errorf("chainr: size %d too small for a useful demo", opts.Size)
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return fmt.Errorf("chainr: mkdir: %w", err)
	}

	for c := 0; c < opts.Chains; c++ {
		signer := fmt.Sprintf("%s <%s>", gofakeit.Name(), gofakeit.Email())
		if err := generateChain(opts, c, signer); err != nil {
			return err
		}
		log.Infow("chainr: chain done", "index", c, "signer", signer)
	}
	return nil
}

func generateChain(opts Options, index int, signer string) error {
	canvas := baseImage(opts.Size)

	session := chain.NewSession()
	if err := session.Configure(signer, opts.Scheme); err != nil {
		return err
	}
	if err := session.Ingest(canvas, nil); err != nil {
		return err
	}

	for v := 1; v <= opts.Versions; v++ {
		var edits []chain.EditOp
		if v > 1 {
			canvas, edits = randomEdit(canvas)
		}
		embedded, _, err := session.Commit(canvas, edits)
		if err != nil {
			return fmt.Errorf("chainr: commit v%d: %w", v, err)
		}
		data, err := imaging.EncodePNG(embedded)
		if err != nil {
			return err
		}
		path := filepath.Join(opts.OutDir, fmt.Sprintf("chain%02d-v%02d.png", index, v))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("chainr: write %s: %w", path, err)
		}
		// The next version edits the embedded output, the way an
		// editor keeps working on the downloaded file.
		canvas = embedded
	}

	keyPath := filepath.Join(opts.OutDir, fmt.Sprintf("chain%02d.pub", index))
	return os.WriteFile(keyPath, []byte(session.Keys.PublicPEM), 0644)
}

// baseImage draws a radial-plus-linear gradient with enough texture
// for the frequency-domain layer to bite on.
func baseImage(size int) *imaging.Grid {
	g, err := imaging.NewGrid(size, size)
	if err != nil {
		panic(err)
	}
	cx, cy := float64(size)/2, float64(size)/2
	maxD := math.Hypot(cx, cy)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxD
			r := byte(40 + 170*float64(x)/float64(size))
			gr := byte(40 + 170*float64(y)/float64(size))
			b := byte(40 + 170*(1-d))
			g.Set(x, y, r, gr, b, 0xff)
		}
	}
	return g
}

// randomEdit applies one random destructive-or-not edit to the canvas
// and returns the matching descriptive log.
func randomEdit(g *imaging.Grid) (*imaging.Grid, []chain.EditOp) {
	switch gofakeit.Number(0, 3) {
	case 0:
		factor := gofakeit.Float64Range(0.8, 1.2)
		return imaging.AdjustBrightness(g, factor), []chain.EditOp{chain.Brightness(factor)}
	case 1:
		factor := gofakeit.Float64Range(0.8, 1.2)
		return imaging.AdjustContrast(g, factor), []chain.EditOp{chain.Contrast(factor)}
	case 2:
		name := []string{"grayscale", "sepia", "invert"}[gofakeit.Number(0, 2)]
		out, err := imaging.ApplyFilter(g, name)
		if err != nil {
			panic(err)
		}
		return out, []chain.EditOp{chain.FilterOp(name)}
	default:
		factor := gofakeit.Float64Range(0.9, 1.1)
		return imaging.AdjustBrightness(g, factor), []chain.EditOp{chain.Brightness(factor)}
	}
}

// DefaultOptions is the stock demo configuration.
func DefaultOptions() Options {
	return Options{
		OutDir:   "chains",
		Chains:   2,
		Versions: 3,
		Size:     512,
		Scheme:   cryptoutil.SchemeECDSAP256,
	}
}
