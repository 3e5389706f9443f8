// Package chain builds, signs, appends and verifies the linked
// version history that rides inside an image.
package chain

import (
	"errors"

	"github.com/amarrr33/imagechain/internal/imagechain/dct"
)

var (
	ErrNotConfigured = errors.New("chain: session not configured")
	ErrNotIngested   = errors.New("chain: no image ingested")
	ErrEmptyCommit   = errors.New("chain: empty edit log after version 1")
)

// CriticalMetadata is the short record the frequency-domain layer
// carries; see the dct package for the wire form.
type CriticalMetadata = dct.Metadata

// EditOp is one descriptive edit. Type selects the variant; the other
// fields are populated per variant and omitted otherwise. Operations
// record what the editor did, they are never re-applied during
// verification.
type EditOp struct {
	Type    string   `json:"type"`
	Delta   *float64 `json:"delta,omitempty"`   // brightness, contrast
	X       *int     `json:"x,omitempty"`       // crop, text
	Y       *int     `json:"y,omitempty"`       // crop, text
	W       *int     `json:"w,omitempty"`       // crop
	H       *int     `json:"h,omitempty"`       // crop
	Angle   *float64 `json:"angle,omitempty"`   // rotate, degrees
	Quality *float64 `json:"quality,omitempty"` // compress, [0,1]
	Filter  string   `json:"filter,omitempty"`  // filter
	Text    string   `json:"text,omitempty"`    // text
	Font    string   `json:"font,omitempty"`    // text
	Color   string   `json:"color,omitempty"`   // text
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func Brightness(delta float64) EditOp {
	return EditOp{Type: "brightness", Delta: floatPtr(delta)}
}

func Contrast(delta float64) EditOp {
	return EditOp{Type: "contrast", Delta: floatPtr(delta)}
}

func CropOp(x, y, w, h int) EditOp {
	return EditOp{Type: "crop", X: intPtr(x), Y: intPtr(y), W: intPtr(w), H: intPtr(h)}
}

func RotateOp(angle float64) EditOp {
	return EditOp{Type: "rotate", Angle: floatPtr(angle)}
}

func CompressOp(quality float64) EditOp {
	return EditOp{Type: "compress", Quality: floatPtr(quality)}
}

func FilterOp(filter string) EditOp {
	return EditOp{Type: "filter", Filter: filter}
}

func TextOp(text string, x, y int, font, color string) EditOp {
	return EditOp{Type: "text", Text: text, X: intPtr(x), Y: intPtr(y), Font: font, Color: color}
}

// Destructive reports whether the op alters pixels in a way a preview
// snapshot should capture.
func (op EditOp) Destructive() bool {
	switch op.Type {
	case "filter", "crop", "rotate", "compress", "text":
		return true
	default:
		return false
	}
}

func anyDestructive(ops []EditOp) bool {
	for _, op := range ops {
		if op.Destructive() {
			return true
		}
	}
	return false
}

// Snapshot is a small lossy preview of a version's canvas.
type Snapshot struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Codec  string `json:"codec"`
	Bytes  string `json:"bytes"` // base64
}

// HistoryEntry is one immutable, signed version record. SHA256 hashes
// the lossless encoding of the version's canvas before embedding.
type HistoryEntry struct {
	Version    int       `json:"version"`
	SHA256     string    `json:"sha256"`
	ParentHash string    `json:"parent_hash,omitempty"`
	Timestamp  string    `json:"timestamp"`
	Signer     string    `json:"signer"`
	SigScheme  string    `json:"sig_scheme"`
	EditLog    []EditOp  `json:"edit_log"`
	Snapshot   *Snapshot `json:"snapshot,omitempty"`
	Signature  string    `json:"signature,omitempty"`
}

// ChainedPayload is everything embedded in an image: the chain id of
// the original upload, the full history, and any critical metadata
// recovered from the frequency-domain layer when the spatial layer
// failed.
type ChainedPayload struct {
	ChainID     string            `json:"chain_id"`
	History     []HistoryEntry    `json:"history"`
	DCTMetadata *CriticalMetadata `json:"dct_metadata,omitempty"`
}

// Last returns the newest entry, or nil for an empty history.
func (p *ChainedPayload) Last() *HistoryEntry {
	if len(p.History) == 0 {
		return nil
	}
	return &p.History[len(p.History)-1]
}

// Critical derives the frequency-domain record for the current head.
func (p *ChainedPayload) Critical() CriticalMetadata {
	last := p.Last()
	lastHash := ""
	if last != nil {
		lastHash = last.SHA256
	}
	return dct.NewMetadata(p.ChainID, len(p.History), lastHash)
}
