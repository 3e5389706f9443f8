package dct

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

// Frame layout: magic, big-endian u16 payload length, JSON payload,
// big-endian u32 byte sum of the payload.
const frameMagic = "ICMETA1"

// quantStep is the parity quantizer. One bit per coefficient: the bit
// is the parity of floor(coeff/quantStep).
const quantStep = 4.0

// Mid-frequency coefficient positions carrying bits, in fixed order.
var embedPositions = [5][2]int{{1, 2}, {2, 1}, {2, 2}, {3, 1}, {1, 3}}

// maxPayloadLen bounds the u16 length field against garbage reads.
const maxPayloadLen = 8192

var ErrCapacity = errors.New("dct: capacity exceeded")

// buildFrame serializes a metadata record into the framed byte form.
func buildFrame(m Metadata) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("dct: marshal metadata: %w", err)
	}
	if len(payload) > maxPayloadLen {
		return nil, fmt.Errorf("dct: metadata record too large: %d bytes", len(payload))
	}
	frame := make([]byte, 0, len(frameMagic)+2+len(payload)+4)
	frame = append(frame, frameMagic...)
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	frame = binary.BigEndian.AppendUint32(frame, byteSum(payload))
	return frame, nil
}

func byteSum(b []byte) uint32 {
	var sum uint32
	for _, c := range b {
		sum += uint32(c)
	}
	return sum
}

// Capacity returns how many payload bits fit in a grid: five bits per
// complete 8x8 block, partial edge blocks skipped.
func Capacity(width, height int) int {
	return (width / blockSize) * (height / blockSize) * len(embedPositions)
}

// embedBit forces the coefficient to carry bit in the parity of its
// quantization index. Matching coefficients snap to the center of
// their bin; mismatching ones move one step away from zero first,
// which keeps magnitudes above the detection floor.
func embedBit(coeff float64, bit int) float64 {
	k := int(math.Floor(coeff / quantStep))
	if (((k % 2) + 2) % 2) != bit {
		if coeff >= 0 {
			k++
		} else {
			k--
		}
	}
	return (float64(k) + 0.5) * quantStep
}

func readBit(coeff float64) int {
	k := int(math.Floor(coeff / quantStep))
	return ((k % 2) + 2) % 2
}

// Embed writes the metadata record into a copy of the grid and
// returns it. The record rides in the luminance plane; the luminance
// shift of each pixel is re-projected onto R, G, B with the luma
// weights. Alpha is untouched.
func Embed(g *imaging.Grid, m Metadata) (*imaging.Grid, error) {
	return embed(g, m, false)
}

// EmbedPreservingLSB is Embed with the re-projection constrained to
// keep every channel's low bit. Callers that have already written the
// spatial-layer payload use this so the frequency-domain pass does
// not disturb it; the rounding cost stays inside the quantizer's
// noise margin.
func EmbedPreservingLSB(g *imaging.Grid, m Metadata) (*imaging.Grid, error) {
	return embed(g, m, true)
}

func embed(g *imaging.Grid, m Metadata, keepLSB bool) (*imaging.Grid, error) {
	frame, err := buildFrame(m)
	if err != nil {
		return nil, err
	}
	if 8*len(frame) > Capacity(g.Width, g.Height) {
		return nil, fmt.Errorf("%w: need %d bits, have %d", ErrCapacity, 8*len(frame), Capacity(g.Width, g.Height))
	}

	out := g.Clone()
	lum := imaging.Luminance(out)

	blocksX := g.Width / blockSize
	blocksY := g.Height / blockSize
	bitIdx := 0
	totalBits := 8 * len(frame)

	for by := 0; by < blocksY && bitIdx < totalBits; by++ {
		for bx := 0; bx < blocksX && bitIdx < totalBits; bx++ {
			var block [blockSize][blockSize]float64
			for x := 0; x < blockSize; x++ {
				for y := 0; y < blockSize; y++ {
					px := bx*blockSize + x
					py := by*blockSize + y
					block[x][y] = lum[py*g.Width+px]
				}
			}
			coeffs := forwardBlock(&block)
			for _, pos := range embedPositions {
				if bitIdx >= totalBits {
					break
				}
				bit := int(frame[bitIdx/8]>>(7-uint(bitIdx%8))) & 1
				coeffs[pos[0]][pos[1]] = embedBit(coeffs[pos[0]][pos[1]], bit)
				bitIdx++
			}
			spatial := inverseBlock(&coeffs)
			for x := 0; x < blockSize; x++ {
				for y := 0; y < blockSize; y++ {
					px := bx*blockSize + x
					py := by*blockSize + y
					p := py*g.Width + px
					newY := math.Max(0, math.Min(255, spatial[x][y]))
					if keepLSB {
						imaging.ApplyLuminanceDeltaKeepLSB(out, p, newY-lum[p])
					} else {
						imaging.ApplyLuminanceDelta(out, p, newY-lum[p])
					}
				}
			}
		}
	}
	return out, nil
}

// bitReader yields payload bits block by block without transforming
// more of the image than the frame needs.
type bitReader struct {
	lum     []float64
	width   int
	blocksX int
	blocksY int
	block   int // next block index
	pending []int
}

func newBitReader(g *imaging.Grid) *bitReader {
	return &bitReader{
		lum:     imaging.Luminance(g),
		width:   g.Width,
		blocksX: g.Width / blockSize,
		blocksY: g.Height / blockSize,
	}
}

// readByte assembles the next 8 bits, MSB first. Returns false when
// the blocks are exhausted.
func (r *bitReader) readByte() (byte, bool) {
	for len(r.pending) < 8 {
		if r.block >= r.blocksX*r.blocksY {
			return 0, false
		}
		bx := r.block % r.blocksX
		by := r.block / r.blocksX
		r.block++

		var block [blockSize][blockSize]float64
		for x := 0; x < blockSize; x++ {
			for y := 0; y < blockSize; y++ {
				px := bx*blockSize + x
				py := by*blockSize + y
				block[x][y] = r.lum[py*r.width+px]
			}
		}
		coeffs := forwardBlock(&block)
		for _, pos := range embedPositions {
			r.pending = append(r.pending, readBit(coeffs[pos[0]][pos[1]]))
		}
	}
	var b byte
	for i := 0; i < 8; i++ {
		b = b<<1 | byte(r.pending[i])
	}
	r.pending = r.pending[8:]
	return b, true
}

func (r *bitReader) readBytes(n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := r.readByte()
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

// Extract attempts to recover a metadata record from the grid.
// Returns nil on any mismatch: absent magic, bad lengths, checksum
// failure, malformed JSON. It never returns an error; an image
// without the record is the common case, not a fault.
func Extract(g *imaging.Grid) *Metadata {
	if g.Width < blockSize || g.Height < blockSize {
		return nil
	}
	r := newBitReader(g)

	magic, ok := r.readBytes(len(frameMagic))
	if !ok || string(magic) != frameMagic {
		return nil
	}
	lenBytes, ok := r.readBytes(2)
	if !ok {
		return nil
	}
	payloadLen := int(binary.BigEndian.Uint16(lenBytes))
	if payloadLen == 0 || payloadLen > maxPayloadLen {
		return nil
	}
	payload, ok := r.readBytes(payloadLen)
	if !ok {
		return nil
	}
	sumBytes, ok := r.readBytes(4)
	if !ok {
		return nil
	}
	if binary.BigEndian.Uint32(sumBytes) != byteSum(payload) {
		return nil
	}

	var m Metadata
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}
	if !m.Valid() {
		return nil
	}
	return &m
}
