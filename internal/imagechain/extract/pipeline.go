// Package extract drives payload recovery from a candidate image:
// frequency-domain read first, spatial read second, over a bounded
// orientation search. It never fails on a bad image; the worst
// outcome is "nothing found".
package extract

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/amarrr33/imagechain/internal/imagechain/chain"
	"github.com/amarrr33/imagechain/internal/imagechain/dct"
	"github.com/amarrr33/imagechain/internal/imagechain/imaging"
	"github.com/amarrr33/imagechain/internal/imagechain/logger"
	"github.com/amarrr33/imagechain/internal/imagechain/lsb"
)

// Outcome classifies what an extraction recovered.
type Outcome string

const (
	OutcomeFull     Outcome = "full"     // complete payload from the spatial layer
	OutcomeMetadata Outcome = "metadata" // critical record only
	OutcomeNone     Outcome = "none"
)

// Candidate rotations, counter-clockwise degrees, in search order.
// Clockwise equivalents collapse onto these under normalization;
// anything between would destroy the spatial bits and is not tried.
var rotations = []int{0, 90, 180, 270}

// Details is the single-orientation extraction report.
type Details struct {
	Payload            *chain.ChainedPayload   `json:"payload,omitempty"`
	Recovered          bool                    `json:"recovered"`
	CorruptionDetected bool                    `json:"corruption_detected"`
	ErrorRate          float64                 `json:"error_rate"`
	CriticalMetadata   *chain.CriticalMetadata `json:"critical_metadata,omitempty"`
	DCTExtracted       bool                    `json:"dct_extracted"`
}

// WithDetails attempts extraction at the image's current orientation.
// The frequency-domain record is read first; a full spatial payload,
// when present, is enriched with it.
func WithDetails(g *imaging.Grid) *Details {
	d := &Details{}

	if meta := dct.Extract(g); meta != nil {
		d.CriticalMetadata = meta
		d.DCTExtracted = true
	}

	res := lsb.Extract(g)
	d.Recovered = res.Recovered
	d.CorruptionDetected = res.CorruptionDetected
	d.ErrorRate = res.ErrorRate
	if !res.Recovered {
		return d
	}

	var payload chain.ChainedPayload
	if err := json.Unmarshal(res.Payload, &payload); err != nil {
		d.Recovered = false
		d.CorruptionDetected = true
		return d
	}
	payload.DCTMetadata = d.CriticalMetadata
	d.Payload = &payload
	return d
}

// Result is the orientation-search outcome.
type Result struct {
	Outcome          Outcome                 `json:"outcome"`
	Payload          *chain.ChainedPayload   `json:"payload,omitempty"`
	CriticalMetadata *chain.CriticalMetadata `json:"critical_metadata,omitempty"`
	Rotation         int                     `json:"rotation"` // counter-clockwise degrees at which extraction succeeded
	ErrorRate        float64                 `json:"error_rate"`
}

// WithRotations tries each candidate rotation until the spatial layer
// yields a full payload. If none does but some rotation produced the
// critical record, that record is returned from the earliest such
// rotation.
func WithRotations(g *imaging.Grid) *Result {
	log := logger.L()
	start := time.Now()
	runID := uuid.NewString()

	metaRotation := -1
	var meta *chain.CriticalMetadata

	for _, deg := range rotations {
		rotated, err := imaging.Rotate(g, deg)
		if err != nil {
			continue
		}
		d := WithDetails(rotated)
		if d.DCTExtracted && meta == nil {
			meta = d.CriticalMetadata
			metaRotation = deg
		}
		if d.Payload != nil {
			log.Infow("extract: full payload", "run", runID, "rotation", deg,
				"versions", len(d.Payload.History), "error_rate", d.ErrorRate,
				"duration", time.Since(start))
			return &Result{
				Outcome:          OutcomeFull,
				Payload:          d.Payload,
				CriticalMetadata: d.CriticalMetadata,
				Rotation:         deg,
				ErrorRate:        d.ErrorRate,
			}
		}
	}

	if meta != nil {
		log.Infow("extract: metadata only", "run", runID, "rotation", metaRotation,
			"chain_id", meta.ChainID, "duration", time.Since(start))
		return &Result{Outcome: OutcomeMetadata, CriticalMetadata: meta, Rotation: metaRotation}
	}

	log.Infow("extract: nothing found", "run", runID, "duration", time.Since(start))
	return &Result{Outcome: OutcomeNone, Rotation: -1}
}
