package chain

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/amarrr33/imagechain/internal/imagechain/canonical"
	"github.com/amarrr33/imagechain/internal/imagechain/cryptoutil"
	"github.com/amarrr33/imagechain/internal/imagechain/logger"
)

// EntryResult is the per-entry verdict of a chain verification.
// A signature that fails to match is a verdict, not an error; Err
// carries malformed-input errors (bad key, undecodable signature) and
// the diagnostic for a broken version/parent link.
type EntryResult struct {
	Version        int    `json:"version"`
	SignatureValid bool   `json:"signature_valid"`
	ChainLinkValid bool   `json:"chain_link_valid"`
	Warning        string `json:"warning,omitempty"`
	Err            string `json:"error,omitempty"`
}

// VerifyOptions tunes a verification run.
type VerifyOptions struct {
	// IsUploaded disables the live-canvas hash comparison: an uploaded
	// file embeds a payload, so its pixels no longer hash to the head
	// entry's pre-embedding sha256.
	IsUploaded bool
	// CanvasHash, when set and IsUploaded is false, is compared to the
	// head entry's sha256 to detect live canvas tampering.
	CanvasHash string
}

// VerifyResult is the chain-wide outcome.
type VerifyResult struct {
	Entries         []EntryResult `json:"entries"`
	AllValid        bool          `json:"all_valid"`
	CanvasHashValid *bool         `json:"canvas_hash_valid,omitempty"`
}

// VerifyChain checks every entry's signature against the supplied
// public key and the declared scheme, and checks the version/parent
// link invariants between consecutive entries.
func VerifyChain(p *ChainedPayload, publicKeyPEM string, opts VerifyOptions) (*VerifyResult, error) {
	log := logger.L()
	start := time.Now()

	pub, err := cryptoutil.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	res := &VerifyResult{AllValid: true}
	var prevTime time.Time
	var prevTimeOK bool

	for i := range p.History {
		entry := &p.History[i]
		er := EntryResult{Version: entry.Version, ChainLinkValid: true}

		canon, err := canonical.Marshal(entry, "signature")
		if err != nil {
			er.Err = err.Error()
		} else {
			ok, err := cryptoutil.Verify(canon, entry.Signature, pub, entry.SigScheme)
			if err != nil {
				er.Err = err.Error()
			}
			er.SignatureValid = ok
		}

		if i == 0 {
			if entry.Version != 1 {
				er.ChainLinkValid = false
				er.Err = fmt.Sprintf("first entry has version %d", entry.Version)
			}
			if entry.ParentHash != "" {
				er.ChainLinkValid = false
				er.Err = "first entry carries a parent hash"
			}
		} else {
			prev := &p.History[i-1]
			if entry.Version != prev.Version+1 {
				er.ChainLinkValid = false
				er.Err = fmt.Sprintf("version %d does not follow %d", entry.Version, prev.Version)
			}
			if entry.ParentHash != prev.SHA256 {
				er.ChainLinkValid = false
				er.Err = "parent hash does not match previous entry"
			}
		}

		// Timestamp sanity is advisory: odd clocks don't break a chain,
		// but a verifier wants to see them.
		ts, terr := dateparse.ParseAny(entry.Timestamp)
		switch {
		case terr != nil:
			er.Warning = fmt.Sprintf("unparseable timestamp %q", entry.Timestamp)
		case prevTimeOK && ts.Before(prevTime):
			er.Warning = "timestamp regresses against previous entry"
		}
		if terr == nil {
			prevTime, prevTimeOK = ts, true
		}

		if !er.SignatureValid || !er.ChainLinkValid {
			res.AllValid = false
		}
		res.Entries = append(res.Entries, er)
	}

	if !opts.IsUploaded && opts.CanvasHash != "" {
		valid := false
		if last := p.Last(); last != nil {
			valid = last.SHA256 == opts.CanvasHash
		}
		res.CanvasHashValid = &valid
		if !valid {
			res.AllValid = false
		}
	}

	log.Infow("verify: done", "entries", len(p.History),
		"all_valid", res.AllValid, "duration", time.Since(start))
	return res, nil
}
