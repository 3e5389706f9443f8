package lsb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

func testGrid(t *testing.T, w, h int) *imaging.Grid {
	t.Helper()
	g, err := imaging.NewGrid(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, byte(x*7), byte(y*13), byte(x*y), 0xff)
		}
	}
	return g
}

func TestTriple_MajorityDecode(t *testing.T) {
	data := []byte{0x01, 0xab, 0xff}
	tripled := Triple(data)
	require.Len(t, tripled, 9)

	out, mismatches := MajorityDecode(tripled)
	assert.Equal(t, data, out)
	assert.Empty(t, mismatches)
}

func TestMajorityDecode_CorrectsSingleByte(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x40}
	tripled := Triple(data)

	// Mutate one copy per group; every group must still decode.
	for group := 0; group < len(data); group++ {
		for copyIdx := 0; copyIdx < 3; copyIdx++ {
			mutated := append([]byte(nil), tripled...)
			mutated[3*group+copyIdx] ^= 0x5a
			out, mismatches := MajorityDecode(mutated)
			assert.Equal(t, data, out, "group %d copy %d", group, copyIdx)
			assert.Equal(t, []int{group}, mismatches)
		}
	}
}

func TestMajorityDecode_TieKeepsFirst(t *testing.T) {
	out, mismatches := MajorityDecode([]byte{0x01, 0x02, 0x03})
	assert.Equal(t, []byte{0x01}, out)
	assert.Equal(t, []int{0}, mismatches)
}

func TestBuildFrame_ScanFrame_Roundtrip(t *testing.T) {
	payload := []byte(`{"chain_id":"abc","history":[{"version":1}]}`)
	frame, err := BuildFrame(payload)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(frame, []byte("ICLSB01")))
	assert.True(t, bytes.HasSuffix(frame, []byte("ICEND01")))

	res, err := ScanFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, res.Payload)
	assert.Equal(t, 0, res.Start)
	assert.Equal(t, len(frame), res.End)
}

func TestScanFrame_SkipsFalseStart(t *testing.T) {
	payload := []byte("real payload bytes")
	frame, err := BuildFrame(payload)
	require.NoError(t, err)

	// A bare magic with garbage after it precedes the real frame.
	noisy := append([]byte("ICLSB01\x00\x00\x00\xff junk "), frame...)
	res, err := ScanFrame(noisy)
	require.NoError(t, err)
	assert.Equal(t, payload, res.Payload)
}

func TestScanFrame_NoFrame(t *testing.T) {
	_, err := ScanFrame(bytes.Repeat([]byte{0x55}, 4096))
	require.ErrorIs(t, err, ErrNoFrame)
}

func TestEmbedExtract_Roundtrip(t *testing.T) {
	g := testGrid(t, 128, 128)
	payload := []byte(`{"chain_id":"0123456789abcdef","history":[{"signer":"studio","version":1}]}`)
	frame, err := BuildFrame(payload)
	require.NoError(t, err)

	out, err := Embed(g, frame)
	require.NoError(t, err)

	res := Extract(out)
	require.True(t, res.Recovered)
	assert.Equal(t, payload, res.Payload)
	assert.False(t, res.CorruptionDetected)
	assert.Zero(t, res.ErrorRate)
}

func TestEmbed_PreservesAlphaAndHighBits(t *testing.T) {
	g := testGrid(t, 64, 64)
	frame, err := BuildFrame([]byte("short"))
	require.NoError(t, err)
	out, err := Embed(g, frame)
	require.NoError(t, err)

	for i := range g.Pix {
		if i%4 == 3 {
			assert.Equal(t, g.Pix[i], out.Pix[i], "alpha byte %d", i)
		} else {
			assert.Equal(t, g.Pix[i]&0xfe, out.Pix[i]&0xfe, "high bits of byte %d", i)
		}
	}
}

func TestEmbed_CapacityExceeded(t *testing.T) {
	g := testGrid(t, 8, 8)
	frame, err := BuildFrame(bytes.Repeat([]byte("incompressible?"), 500))
	require.NoError(t, err)
	_, err = Embed(g, frame)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestExtract_RecoversSingleFlippedByte(t *testing.T) {
	g := testGrid(t, 128, 128)
	payload := []byte(`{"history":[{"version":1},{"version":2}]}`)
	frame, err := BuildFrame(payload)
	require.NoError(t, err)
	out, err := Embed(g, frame)
	require.NoError(t, err)

	// Flip one carried bit inside the frame region, past the first
	// tripled magic byte.
	carrier := 0
	flipped := false
	for i := 0; i < len(out.Pix) && !flipped; i++ {
		if i%4 == 3 {
			continue
		}
		if carrier == 100 {
			out.Pix[i] ^= 0x01
			flipped = true
		}
		carrier++
	}
	require.True(t, flipped)

	res := Extract(out)
	require.True(t, res.Recovered, "one flipped byte per triplet is correctable")
	assert.Equal(t, payload, res.Payload)
	assert.True(t, res.CorruptionDetected)
	assert.Greater(t, res.ErrorRate, 0.0)
}

func TestExtract_PlainImage(t *testing.T) {
	g := testGrid(t, 64, 64)
	res := Extract(g)
	assert.False(t, res.Recovered)
	assert.True(t, res.CorruptionDetected)
	assert.Nil(t, res.Payload)
}
