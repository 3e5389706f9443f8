package chain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amarrr33/imagechain/internal/imagechain/canonical"
	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
	"github.com/amarrr33/imagechain/internal/imagechain/dct"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
	"github.com/amarrr33/imagechain/internal/imagechain/logger"
	"github.com/amarrr33/imagechain/internal/imagechain/lsb"
)

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConfigured
	StateInitialized
)

const (
	snapshotWidth   = 160
	snapshotQuality = 0.8
)

// Session owns one chain lineage: the signing key pair, the signer
// identity, and the current payload. Sessions are plain values with
// no ambient state; the editor holds one and drives it.
type Session struct {
	ID      string
	State   State
	Signer  string
	Scheme  string
	Keys    *cryptoutil.KeyPair
	Payload *ChainedPayload
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{ID: uuid.NewString(), State: StateIdle}
}

// Configure sets the signer identity and signature scheme.
func (s *Session) Configure(signer, scheme string) error {
	switch scheme {
	case cryptoutil.SchemeRSAPSS, cryptoutil.SchemeECDSAP256:
	default:
		return fmt.Errorf("%w: %q", cryptoutil.ErrUnsupportedScheme, scheme)
	}
	s.Signer = signer
	s.Scheme = scheme
	s.State = StateConfigured
	return nil
}

// Ingest starts a chain from a raw image: generates the key pair,
// computes the chain id from the image's lossless encoding, and
// adopts a payload already embedded in the image if the caller
// extracted one.
func (s *Session) Ingest(g *imaging.Grid, existing *ChainedPayload) error {
	if s.State == StateIdle {
		return ErrNotConfigured
	}
	log := logger.L()

	keys, err := cryptoutil.GenerateKeys(s.Scheme)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	s.Keys = keys

	if existing != nil {
		s.Payload = existing
		log.Infow("session.ingest: adopted embedded payload",
			"session", s.ID, "chain_id", existing.ChainID, "versions", len(existing.History))
	} else {
		encoded, err := imaging.EncodePNG(g)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		s.Payload = &ChainedPayload{ChainID: cryptoutil.SHA256Hex(encoded)}
		log.Infow("session.ingest: new chain", "session", s.ID, "chain_id", s.Payload.ChainID)
	}
	s.State = StateInitialized
	return nil
}

// Reset discards the key pair, signer and payload.
func (s *Session) Reset() {
	s.Signer = ""
	s.Scheme = ""
	s.Keys = nil
	s.Payload = nil
	s.State = StateIdle
}

// CommitResult reports what one commit produced.
type CommitResult struct {
	Entry       *HistoryEntry
	DCTEmbedded bool // false when the image is too small for the record
}

// Commit appends one signed entry for the given canvas and edit log,
// then re-embeds the whole payload: the full payload through the
// spatial layer, the critical metadata through the frequency-domain
// layer (keeping the spatial low bits), and the full payload through
// the spatial layer once more, so the spatial bits are the last
// writer. Returns the embedded canvas.
//
// An empty edit log is only allowed on the initial version; a later
// no-op commit would duplicate the parent's canvas hash.
func (s *Session) Commit(g *imaging.Grid, edits []EditOp) (*imaging.Grid, *CommitResult, error) {
	if s.State != StateInitialized {
		return nil, nil, ErrNotIngested
	}
	log := logger.L()
	start := time.Now()

	version := 1
	parentHash := ""
	if last := s.Payload.Last(); last != nil {
		version = last.Version + 1
		parentHash = last.SHA256
	}
	if version > 1 && len(edits) == 0 {
		return nil, nil, ErrEmptyCommit
	}

	encoded, err := imaging.EncodePNG(g)
	if err != nil {
		return nil, nil, fmt.Errorf("commit: render: %w", err)
	}

	entry := HistoryEntry{
		Version:    version,
		SHA256:     cryptoutil.SHA256Hex(encoded),
		ParentHash: parentHash,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Signer:     s.Signer,
		SigScheme:  s.Scheme,
		EditLog:    edits,
	}
	if edits == nil {
		entry.EditLog = []EditOp{}
	}

	if version == 1 || anyDestructive(edits) {
		snap, err := NewSnapshot(g, snapshotWidth, snapshotQuality)
		if err != nil {
			return nil, nil, fmt.Errorf("commit: %w", err)
		}
		entry.Snapshot = snap
	}

	canon, err := canonical.Marshal(entry, "signature")
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	sig, err := cryptoutil.Sign(canon, s.Keys.Private, s.Scheme)
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	entry.Signature = sig

	// Whole-value replacement: the session payload is only swapped
	// once the new history is fully built.
	next := &ChainedPayload{
		ChainID: s.Payload.ChainID,
		History: append(append([]HistoryEntry(nil), s.Payload.History...), entry),
	}

	payloadJSON, err := canonical.Marshal(next, "dct_metadata")
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	frame, err := lsb.BuildFrame(payloadJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	// The spatial plane is pinned before the frequency-domain pass, so
	// that pass can round around the low bits instead of having them
	// rewritten underneath its coefficients afterwards. The closing
	// spatial write is byte-identical and keeps it the last writer.
	canvas, err := lsb.Embed(g, frame)
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	dctEmbedded := false
	embedded, err := dct.EmbedPreservingLSB(canvas, next.Critical())
	switch {
	case err == nil:
		canvas = embedded
		dctEmbedded = true
	case isCapacity(err):
		log.Warnw("commit: image below frequency-layer capacity, record skipped",
			"session", s.ID, "version", version, "size", fmt.Sprintf("%dx%d", g.Width, g.Height))
	default:
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	canvas, err = lsb.Embed(canvas, frame)
	if err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	s.Payload = next
	log.Infow("commit: done", "session", s.ID, "version", version,
		"sha256", entry.SHA256, "dct", dctEmbedded, "duration", time.Since(start))
	return canvas, &CommitResult{Entry: s.Payload.Last(), DCTEmbedded: dctEmbedded}, nil
}

func isCapacity(err error) bool {
	return errors.Is(err, dct.ErrCapacity) || errors.Is(err, lsb.ErrCapacity)
}

// NewSnapshot builds a lossy WebP preview of the canvas, downscaled
// to the given width.
func NewSnapshot(g *imaging.Grid, width int, quality float64) (*Snapshot, error) {
	thumb := imaging.Thumbnail(g, width)
	data, err := imaging.EncodeWebP(thumb, quality)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Snapshot{
		Width:  thumb.Width,
		Height: thumb.Height,
		Codec:  "webp",
		Bytes:  base64.StdEncoding.EncodeToString(data),
	}, nil
}
