// Package cache provides the artifact cache used by the sort pipeline.
//
// # Overview
//
// A pass over a large image can take a while, and the same image is often
// sorted again with identical settings (re-running a script, refreshing a
// browser). The pipeline stores encoded results under a key derived from
// the input bytes and every option that affects the output.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one file per entry under ~/.cache/pixelsort/ (CLI)
//   - [RedisCache]: a shared Redis instance (server)
//   - [NullCache]: never stores anything (--no-cache)
//
// # Keys
//
// A [Keyer] turns inputs into cache keys. [DefaultKeyer] hashes the input
// digest together with [ArtifactKeyOpts]; [ScopedKeyer] adds a prefix so
// several deployments can share one Redis database.
//
// Cached data is an accelerator only: a miss, an expired entry or a
// backend error always falls back to recomputing.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// Cache stores opaque byte slices by key.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live values.
const (
	TTLArtifact = 7 * 24 * time.Hour
	TTLServer   = 24 * time.Hour
)

// ArtifactKeyOpts holds every option that changes the bytes of a sorted
// image. Anything not listed here must not affect the output.
type ArtifactKeyOpts struct {
	Params    pixelsort.Params `json:"params"`
	Seed      uint64           `json:"seed"`
	Parallel  bool             `json:"parallel"`
	Format    string           `json:"format"`
	Quality   int              `json:"quality,omitempty"`
	AlphaMask bool             `json:"alpha_mask,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ArtifactKey returns the key of the encoded result for an input digest.
	ArtifactKey(inputHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(inputHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", inputHash, opts)
}
