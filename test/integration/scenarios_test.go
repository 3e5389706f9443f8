package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarrr33/imagechain/internal/imagechain/chain"
	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
	"github.com/amarrr33/imagechain/internal/imagechain/extract"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
)

// gradient draws the stock test raster: a two-axis color ramp whose
// channels start at 0.
func gradient(t *testing.T, w, h int) *imaging.Grid {
	t.Helper()
	g, err := imaging.NewGrid(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, byte(x*255/w), byte(y*255/h), byte((x+y)*128/(w+h)), 0xff)
		}
	}
	return g
}

// downloadAndReingest round-trips a canvas through a PNG file on disk,
// the way an editor download plus re-upload would.
func downloadAndReingest(t *testing.T, g *imaging.Grid) *imaging.Grid {
	t.Helper()
	data, err := imaging.EncodePNG(g)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "download.png")
	require.NoError(t, os.WriteFile(path, data, 0644))
	read, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := imaging.Decode(read)
	require.NoError(t, err)
	return back
}

// commitV1 runs the common first leg: ingest a gradient, commit v1
// with an empty edit log under the "Studio" signer.
func commitV1(t *testing.T, size int) (*imaging.Grid, *chain.Session, *imaging.Grid) {
	t.Helper()
	base := gradient(t, size, size)
	s := chain.NewSession()
	require.NoError(t, s.Configure("Studio", cryptoutil.SchemeECDSAP256))
	require.NoError(t, s.Ingest(base, nil))
	canvas, _, err := s.Commit(base, nil)
	require.NoError(t, err)
	return base, s, canvas
}

// Scenario: ingest, commit v1, download, re-ingest, extract, verify.
func TestScenario_InitialCommitRoundtrip(t *testing.T) {
	base, s, canvas := commitV1(t, 128)

	reingested := downloadAndReingest(t, canvas)
	res := extract.WithRotations(reingested)
	require.Equal(t, extract.OutcomeFull, res.Outcome)
	require.Len(t, res.Payload.History, 1)

	baseEncoded, err := imaging.EncodePNG(base)
	require.NoError(t, err)
	assert.Equal(t, cryptoutil.SHA256Hex(baseEncoded), res.Payload.ChainID,
		"chain id is the hash of the original upload")

	e := res.Payload.History[0]
	assert.Equal(t, 1, e.Version)
	assert.Empty(t, e.ParentHash)
	assert.Equal(t, "Studio", e.Signer)

	vr, err := chain.VerifyChain(res.Payload, s.Keys.PublicPEM, chain.VerifyOptions{IsUploaded: true})
	require.NoError(t, err)
	assert.True(t, vr.AllValid)
}

// Scenario: second commit with edits links to the first and carries a
// snapshot for the destructive filter.
func TestScenario_SecondCommitLinksAndSnapshots(t *testing.T) {
	_, s, canvas := commitV1(t, 128)
	v1 := *s.Payload.Last()

	edited := imaging.AdjustBrightness(canvas, 1.3)
	edited, err := imaging.ApplyFilter(edited, "sepia")
	require.NoError(t, err)
	canvas2, _, err := s.Commit(edited, []chain.EditOp{chain.Brightness(1.3), chain.FilterOp("sepia")})
	require.NoError(t, err)

	res := extract.WithRotations(downloadAndReingest(t, canvas2))
	require.Equal(t, extract.OutcomeFull, res.Outcome)
	require.Len(t, res.Payload.History, 2)

	v2 := res.Payload.History[1]
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, v1.SHA256, v2.ParentHash)
	assert.NotNil(t, v2.Snapshot)
	assert.Equal(t, "webp", v2.Snapshot.Codec)

	vr, err := chain.VerifyChain(res.Payload, s.Keys.PublicPEM, chain.VerifyOptions{IsUploaded: true})
	require.NoError(t, err)
	assert.True(t, vr.AllValid)
}

// Scenario: a lossy pass wipes the spatial layer; the frequency-domain
// record still identifies the chain and its head.
func TestScenario_LossyPassLeavesCriticalRecord(t *testing.T) {
	_, s, canvas := commitV1(t, 512)

	edited := imaging.AdjustContrast(canvas, 1.2)
	canvas2, _, err := s.Commit(edited, []chain.EditOp{chain.Contrast(1.2), chain.FilterOp("grayscale")})
	require.NoError(t, err)

	jpegBytes, err := imaging.EncodeJPEG(canvas2, 0.95)
	require.NoError(t, err)
	lossy, err := imaging.Decode(jpegBytes)
	require.NoError(t, err)

	res := extract.WithRotations(lossy)
	require.Equal(t, extract.OutcomeMetadata, res.Outcome)
	require.NotNil(t, res.CriticalMetadata)
	assert.Equal(t, s.Payload.ChainID, res.CriticalMetadata.ChainID)
	assert.Equal(t, 2, res.CriticalMetadata.VersionCount)
	assert.Equal(t, s.Payload.History[1].SHA256, res.CriticalMetadata.LastVersionHash)
}

// Scenario: one flipped carrier byte is corrected by the repetition
// code and surfaced in the diagnostics.
func TestScenario_SingleFlipRecovered(t *testing.T) {
	_, s, canvas := commitV1(t, 128)

	edited := imaging.AdjustBrightness(canvas, 1.1)
	canvas2, _, err := s.Commit(edited, []chain.EditOp{chain.Brightness(1.1)})
	require.NoError(t, err)

	// Flip one bit well inside the spatial frame region.
	damaged := canvas2.Clone()
	carrier := 0
	for i := 0; i < len(damaged.Pix); i++ {
		if i%4 == 3 {
			continue
		}
		if carrier == 321 {
			damaged.Pix[i] ^= 0x01
			break
		}
		carrier++
	}

	d := extract.WithDetails(damaged)
	require.True(t, d.Recovered)
	require.NotNil(t, d.Payload)
	assert.Len(t, d.Payload.History, 2)
	assert.True(t, d.CorruptionDetected)
	assert.Greater(t, d.ErrorRate, 0.0)
	assert.Equal(t, s.Payload.ChainID, d.Payload.ChainID)
}

// Scenario: a half-turn of the committed file still yields the full
// payload through the orientation search.
func TestScenario_RotatedFileStillExtracts(t *testing.T) {
	_, s, canvas := commitV1(t, 128)

	edited := imaging.AdjustBrightness(canvas, 0.9)
	canvas2, _, err := s.Commit(edited, []chain.EditOp{chain.Brightness(0.9)})
	require.NoError(t, err)

	rotated, err := imaging.Rotate(canvas2, 180)
	require.NoError(t, err)

	res := extract.WithRotations(downloadAndReingest(t, rotated))
	require.Equal(t, extract.OutcomeFull, res.Outcome)
	assert.Equal(t, 180, res.Rotation)
	assert.Equal(t, s.Payload.ChainID, res.Payload.ChainID)
	assert.Len(t, res.Payload.History, 2)
}

// Scenario: tampering with an embedded field breaks that entry's
// signature and the next entry's link stays intact.
func TestScenario_TamperedHistoryDetected(t *testing.T) {
	_, s, canvas := commitV1(t, 128)

	edited := imaging.AdjustBrightness(canvas, 1.2)
	canvas2, _, err := s.Commit(edited, []chain.EditOp{chain.Brightness(1.2)})
	require.NoError(t, err)

	res := extract.WithRotations(downloadAndReingest(t, canvas2))
	require.Equal(t, extract.OutcomeFull, res.Outcome)

	// Tamper after extraction, the way a forged re-embed would.
	res.Payload.History[0].Timestamp = "1999-12-31T23:59:59Z"

	vr, err := chain.VerifyChain(res.Payload, s.Keys.PublicPEM, chain.VerifyOptions{IsUploaded: true})
	require.NoError(t, err)
	assert.False(t, vr.AllValid)
	assert.False(t, vr.Entries[0].SignatureValid)
	assert.True(t, vr.Entries[1].ChainLinkValid,
		"the v1->v2 link checks v1's stored sha256, which the timestamp edit leaves alone")
	assert.True(t, vr.Entries[1].SignatureValid)
}

// Scenario: the whole pipeline under the RSA scheme.
func TestScenario_RSAScheme(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA-3072 keygen is slow")
	}
	base := gradient(t, 128, 128)
	s := chain.NewSession()
	require.NoError(t, s.Configure("Archive Desk", cryptoutil.SchemeRSAPSS))
	require.NoError(t, s.Ingest(base, nil))
	canvas, _, err := s.Commit(base, nil)
	require.NoError(t, err)

	res := extract.WithRotations(downloadAndReingest(t, canvas))
	require.Equal(t, extract.OutcomeFull, res.Outcome)
	assert.Equal(t, cryptoutil.SchemeRSAPSS, res.Payload.History[0].SigScheme)

	vr, err := chain.VerifyChain(res.Payload, s.Keys.PublicPEM, chain.VerifyOptions{IsUploaded: true})
	require.NoError(t, err)
	assert.True(t, vr.AllValid)
}
