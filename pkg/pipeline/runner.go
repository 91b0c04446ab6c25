package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/observability"
)

// keyType labels artifact entries in cache hooks.
const keyType = "artifact"

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is how long results are cached. Zero means cache.TTLArtifact.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete decode → sort → encode pipeline with caching.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(in.Image) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no input image")
	}

	info, err := imageio.Probe(in.Image)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	format := opts.OutputFormat(info.Format)
	key := r.Keyer.ArtifactKey(cache.HashAll(in.Image, in.Mask), opts.ArtifactKeyOpts(format))

	result := &Result{
		Format:    format,
		Width:     info.Width,
		Height:    info.Height,
		CacheInfo: CacheInfo{Key: key},
	}

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			r.Logger.Warn("cache lookup failed", "error", err)
		case hit:
			observability.Cache().OnCacheHit(ctx, keyType)
			r.Logger.Debug("cache hit", "key", key)
			result.Artifact = data
			result.CacheInfo.Hit = true
			return result, nil
		default:
			observability.Cache().OnCacheMiss(ctx, keyType)
		}
	}

	// Stage 1: Decode
	decodeStart := time.Now()
	frame, err := Decode(ctx, in, opts)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	result.Stats.DecodeTime = time.Since(decodeStart)

	r.Logger.Debug("decoded image",
		"format", frame.Format,
		"size", fmt.Sprintf("%dx%d", frame.Surface.Width, frame.Surface.Height),
		"masked", frame.Mask != nil,
		"duration", result.Stats.DecodeTime)

	// Stage 2: Sort
	sortStart := time.Now()
	stats, err := Sort(ctx, frame, opts)
	if err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	result.Stats.Sort = stats
	result.Stats.SortTime = time.Since(sortStart)

	r.Logger.Debug("sorted pixels",
		"axis", stats.Axis,
		"spans", stats.Sorted,
		"pixels", stats.Pixels,
		"duration", result.Stats.SortTime)

	// Stage 3: Encode
	encodeStart := time.Now()
	artifact, err := Encode(ctx, frame, format, opts)
	if err != nil {
		return nil, err
	}
	result.Artifact = artifact
	result.Stats.EncodeTime = time.Since(encodeStart)

	r.Logger.Debug("encoded output",
		"format", format,
		"bytes", len(artifact),
		"duration", result.Stats.EncodeTime)

	// Cache the result
	if err := r.Cache.Set(ctx, key, artifact, r.ttl()); err != nil {
		r.Logger.Warn("cache store failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, keyType, len(artifact))
	}

	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLArtifact
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
