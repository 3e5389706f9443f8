package lsb

import (
	"fmt"

	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

// Capacity returns the number of embeddable bits: one per R, G and B
// byte, alpha skipped.
func Capacity(g *imaging.Grid) int {
	return 3 * g.Width * g.Height
}

// Embed writes the framed payload into a copy of the grid. The frame
// is tripled, then streamed MSB-first into the least significant bit
// of each non-alpha channel byte in raster order.
func Embed(g *imaging.Grid, frame []byte) (*imaging.Grid, error) {
	tripled := Triple(frame)
	need := 8 * len(tripled)
	if need > Capacity(g) {
		return nil, fmt.Errorf("%w: need %d bits, have %d", ErrCapacity, need, Capacity(g))
	}

	out := g.Clone()
	bit := 0
	for i := 0; i < len(out.Pix) && bit < need; i++ {
		if i%4 == 3 { // alpha
			continue
		}
		b := (tripled[bit/8] >> (7 - uint(bit%8))) & 1
		out.Pix[i] = out.Pix[i]&0xfe | b
		bit++
	}
	return out, nil
}

// ExtractPlane reads the whole LSB plane into bytes, MSB first.
func ExtractPlane(g *imaging.Grid) []byte {
	out := make([]byte, 0, Capacity(g)/8)
	var acc byte
	bits := 0
	for i := 0; i < len(g.Pix); i++ {
		if i%4 == 3 {
			continue
		}
		acc = acc<<1 | g.Pix[i]&1
		bits++
		if bits == 8 {
			out = append(out, acc)
			acc, bits = 0, 0
		}
	}
	return out
}

// ExtractResult carries the recovered payload and the ECC diagnostics
// observed while recovering it.
type ExtractResult struct {
	Payload            []byte
	Recovered          bool
	CorruptionDetected bool
	ErrorRate          float64
}

// Extract reads the LSB plane, majority-decodes it and scans for a
// frame. The error rate is the fraction of byte triplets inside the
// located frame that disagreed. A missing or unparseable frame is
// reported in the result, not as an error.
func Extract(g *imaging.Grid) *ExtractResult {
	plane := ExtractPlane(g)
	decoded, mismatches := MajorityDecode(plane)

	scan, err := ScanFrame(decoded)
	if err != nil {
		return &ExtractResult{CorruptionDetected: true}
	}

	inFrame := 0
	for _, m := range mismatches {
		if m >= scan.Start && m < scan.End {
			inFrame++
		}
	}
	rate := float64(inFrame) / float64(scan.End-scan.Start)

	return &ExtractResult{
		Payload:            scan.Payload,
		Recovered:          true,
		CorruptionDetected: inFrame > 0,
		ErrorRate:          rate,
	}
}
