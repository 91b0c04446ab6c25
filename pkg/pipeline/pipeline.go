// Package pipeline provides the decode → sort → encode pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: read the input image and optional mask into working buffers
//  2. Sort: run one pixel sort pass over the buffers
//  3. Encode: write the result in the requested format
//
// [Runner] chains the stages and caches the encoded result under a key
// derived from the input bytes and every option that affects the output.
// Each stage can also be run on its own.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Input{Image: data}, pipeline.Options{
//	    Params: params,
//	    Format: "png",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out.png", result.Artifact, 0o644)
//
// Every pass starts from the same seed, so running the same image with the
// same options twice gives byte-identical output.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultSeed is the seed every pass starts from.
	DefaultSeed = pixelsort.DefaultSeed

	// DefaultQuality is the JPEG quality used when none is given.
	DefaultQuality = imageio.DefaultQuality

	// DefaultMaxPixels is the largest input accepted.
	DefaultMaxPixels = imageio.DefaultMaxPixels

	// fallbackFormat is used when the input format cannot be written back.
	fallbackFormat = imageio.FormatPNG
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for server requests.
type Options struct {
	Params pixelsort.Params `json:"params"`

	// Seed initialises the random stream of the pass. Zero means DefaultSeed.
	Seed uint64 `json:"seed,omitempty"`

	// Workers > 1 sorts lines concurrently. The output is then independent
	// of the worker count but differs from a sequential pass.
	Workers int `json:"workers,omitempty"`

	// Format is the output format. Empty means the input format, or PNG
	// when the input format cannot be written.
	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`

	// UseAlphaMask restricts sorting to the opaque parts of the input.
	UseAlphaMask bool `json:"alpha_mask,omitempty"`

	// MaxPixels caps the input size. Zero means DefaultMaxPixels; negative
	// disables the check.
	MaxPixels int64 `json:"-"`

	// Refresh skips the cache lookup (the result is still stored).
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Input is the raw data for one run.
type Input struct {
	Image []byte // encoded input image
	Mask  []byte // encoded grayscale selection mask, optional
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Artifact is the encoded output image.
	Artifact []byte

	// Format is the format of Artifact.
	Format string

	Width  int
	Height int

	// Stats contains timing and sort statistics. Zero on a cache hit.
	Stats Stats

	// CacheInfo tracks whether the artifact came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Sort       pixelsort.Stats
	DecodeTime time.Duration
	SortTime   time.Duration
	EncodeTime time.Duration
}

// CacheInfo tracks cache use for a run.
type CacheInfo struct {
	Key string
	Hit bool
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks option values and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	o.Params = o.Params.Clamp()
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers < 0 {
		o.Workers = 0
	}
	if o.Format != "" {
		f, err := imageio.ValidateFormat(o.Format)
		if err != nil {
			return err
		}
		o.Format = f
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if err := errors.ValidateQuality(o.Quality); err != nil {
		return err
	}
	if o.MaxPixels == 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// maxPixels returns the limit handed to the decoder.
func (o *Options) maxPixels() int64 {
	return max(o.MaxPixels, 0)
}

// OutputFormat resolves the format the result is written in for an input
// of the given format.
func (o *Options) OutputFormat(inputFormat string) string {
	if o.Format != "" {
		return o.Format
	}
	if f, err := imageio.ValidateFormat(inputFormat); err == nil {
		return f
	}
	return fallbackFormat
}

// ArtifactKeyOpts returns cache key options for an output format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{
		Params:    o.Params,
		Seed:      o.Seed,
		Parallel:  o.Workers > 1,
		Format:    format,
		AlphaMask: o.UseAlphaMask,
	}
	if format == imageio.FormatJPEG {
		opts.Quality = o.Quality
	}
	return opts
}
