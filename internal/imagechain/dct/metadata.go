package dct

import "fmt"

// Metadata is the critical record the frequency-domain layer carries:
// just enough to identify the chain and its head when the full payload
// is unrecoverable.
type Metadata struct {
	ChainID         string `json:"chain_id"`
	VersionCount    int    `json:"version_count"`
	LastVersionHash string `json:"last_version_hash"`
	Checksum        string `json:"checksum"`
}

// NewMetadata builds a record with its checksum filled in.
func NewMetadata(chainID string, versionCount int, lastVersionHash string) Metadata {
	m := Metadata{ChainID: chainID, VersionCount: versionCount, LastVersionHash: lastVersionHash}
	m.Checksum = m.computeChecksum()
	return m
}

// computeChecksum returns the lower 32 bits of a 31-multiplier rolling
// sum over "chain_id|version_count|last_version_hash", as 8 hex chars.
func (m Metadata) computeChecksum() string {
	s := fmt.Sprintf("%s|%d|%s", m.ChainID, m.VersionCount, m.LastVersionHash)
	var h uint32
	for i := 0; i < len(s); i++ {
		h = 31*h + uint32(s[i])
	}
	return fmt.Sprintf("%08x", h)
}

// Valid reports whether the stored checksum matches the fields.
func (m Metadata) Valid() bool {
	return m.Checksum == m.computeChecksum()
}
