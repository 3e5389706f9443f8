package dct

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

func testGrid(t *testing.T, w, h int) *imaging.Grid {
	t.Helper()
	g, err := imaging.NewGrid(w, h)
	require.NoError(t, err)
	// Mid-range gradient; avoids channel saturation at the extremes so
	// luminance shifts land where they are written.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, byte(40+x*160/w), byte(40+y*160/h), byte(40+(x+y)*160/(w+h)), 0xff)
		}
	}
	return g
}

func testMetadata() Metadata {
	return NewMetadata(
		strings.Repeat("ab12", 16),
		3,
		strings.Repeat("cd34", 16),
	)
}

func TestMetadata_Checksum(t *testing.T) {
	m := testMetadata()
	assert.Len(t, m.Checksum, 8)
	assert.True(t, m.Valid())

	m.VersionCount++
	assert.False(t, m.Valid())
}

func TestEmbedExtract_Roundtrip(t *testing.T) {
	g := testGrid(t, 512, 512)
	m := testMetadata()

	out, err := Embed(g, m)
	require.NoError(t, err)
	require.Equal(t, g.Width, out.Width)

	got := Extract(out)
	require.NotNil(t, got, "record must survive its own embedding")
	assert.Equal(t, m, *got)
}

func TestEmbed_DistortionBounded(t *testing.T) {
	g := testGrid(t, 512, 512)
	out, err := Embed(g, testMetadata())
	require.NoError(t, err)

	var sumSq float64
	for i := range g.Pix {
		d := float64(g.Pix[i]) - float64(out.Pix[i])
		sumSq += d * d
	}
	mse := sumSq / float64(len(g.Pix))
	assert.Less(t, mse, 40.0, "embedding distortion out of bounds (MSE %f)", mse)
}

func TestEmbedPreservingLSB_RoundtripAndBits(t *testing.T) {
	g := testGrid(t, 512, 512)
	// Give the low bits a recognizable pattern to protect.
	for i := range g.Pix {
		if i%4 == 3 {
			continue
		}
		g.Pix[i] = g.Pix[i]&0xfe | byte(i>>2)&1
	}
	m := testMetadata()

	out, err := EmbedPreservingLSB(g, m)
	require.NoError(t, err)

	mismatched := 0
	for i := range g.Pix {
		if i%4 != 3 && g.Pix[i]&1 != out.Pix[i]&1 {
			mismatched++
		}
	}
	assert.Zero(t, mismatched, "low bits must survive the embedding")

	got := Extract(out)
	require.NotNil(t, got)
	assert.Equal(t, m, *got)
}

func TestExtract_PlainImage(t *testing.T) {
	g := testGrid(t, 256, 256)
	assert.Nil(t, Extract(g), "no record on an unmarked image")
}

func TestExtract_TinyImage(t *testing.T) {
	g, err := imaging.NewGrid(4, 4)
	require.NoError(t, err)
	assert.Nil(t, Extract(g))
}

func TestEmbed_CapacityExceeded(t *testing.T) {
	g := testGrid(t, 16, 16)
	_, err := Embed(g, testMetadata())
	require.ErrorIs(t, err, ErrCapacity)
}

func TestCapacity(t *testing.T) {
	// 64x64 -> 8x8 blocks of 5 bits.
	assert.Equal(t, 8*8*5, Capacity(64, 64))
	// Partial edge blocks are skipped.
	assert.Equal(t, 8*8*5, Capacity(71, 71))
}

func TestEmbedBit_Parity(t *testing.T) {
	cases := []struct {
		coeff float64
		bit   int
	}{
		{0.3, 0}, {0.3, 1}, {-0.3, 0}, {-0.3, 1},
		{17.2, 0}, {17.2, 1}, {-17.2, 0}, {-17.2, 1},
		{4.0, 0}, {4.0, 1}, {-4.0, 0}, {-4.0, 1},
	}
	for _, tc := range cases {
		got := embedBit(tc.coeff, tc.bit)
		assert.Equal(t, tc.bit, readBit(got), "coeff %f bit %d -> %f", tc.coeff, tc.bit, got)
		// The quantizer leaves half a step of noise margin on each side.
		assert.Equal(t, tc.bit, readBit(got+1.9))
		assert.Equal(t, tc.bit, readBit(got-1.9))
	}
}

func TestForwardInverse_Roundtrip(t *testing.T) {
	var block [8][8]float64
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			block[x][y] = float64((x*37 + y*11) % 256)
		}
	}
	coeffs := forwardBlock(&block)
	back := inverseBlock(&coeffs)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			assert.InDelta(t, block[x][y], back[x][y], 1e-9)
		}
	}
}
