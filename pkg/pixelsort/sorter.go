package pixelsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSeed is the seed every pass starts from unless told otherwise, so
// that repeated previews of the same image look the same.
const DefaultSeed uint64 = 42

// ErrMaskSize is returned when a selection mask does not match the buffer.
var ErrMaskSize = errors.New("selection mask dimensions do not match pixel buffer")

// Axis is the effective direction lines are walked in during a pass.
type Axis int

const (
	AxisRows        Axis = iota // plain horizontal
	AxisRotatedRows             // horizontal on a rotated canvas
	AxisColumns                 // vertical
)

func (a Axis) String() string {
	switch a {
	case AxisRotatedRows:
		return "rotated-rows"
	case AxisColumns:
		return "columns"
	default:
		return "rows"
	}
}

// EffectiveAxis derives the sorting axis of p once per pass. The angle only
// applies to horizontal sorting.
func EffectiveAxis(p Params) Axis {
	switch {
	case p.Direction == Vertical:
		return AxisColumns
	case p.Angle != 0:
		return AxisRotatedRows
	default:
		return AxisRows
	}
}

// Stats summarises one pass.
type Stats struct {
	LineStats

	Axis    Axis
	Lines   int
	Width   int // working buffer width (the rotated canvas when rotated)
	Height  int
	Elapsed time.Duration
}

// Sorter runs full-image passes.
//
// With Workers <= 1 a pass is sequential and every line draws from one
// shared random stream in ascending line order. With Workers > 1 lines are
// sorted concurrently and each line draws from its own stream seeded from
// (Seed, line index); the output is then independent of the worker count
// but differs from the sequential output.
type Sorter struct {
	Params  Params
	Seed    uint64
	Workers int
	Logger  *log.Logger
}

// NewSorter returns a sequential sorter for p using DefaultSeed.
func NewSorter(p Params) *Sorter {
	return &Sorter{Params: p.Clamp(), Seed: DefaultSeed}
}

// Sort runs one pass over buf in place. mask may be nil. The pass can be
// cancelled through ctx between lines; buf is left partially sorted.
func (s *Sorter) Sort(ctx context.Context, buf *PixelBuffer, mask *SelectionMask) (Stats, error) {
	if mask != nil && (mask.Width != buf.Width || mask.Height != buf.Height) {
		return Stats{}, fmt.Errorf("%w: mask %dx%d, buffer %dx%d",
			ErrMaskSize, mask.Width, mask.Height, buf.Width, buf.Height)
	}

	p := s.Params.Clamp()
	logger := s.logger()
	start := time.Now()
	stats := Stats{Axis: EffectiveAxis(p)}
	logger.Debug("sort pass", "params", p.String(), "axis", stats.Axis, "seed", s.Seed, "workers", s.Workers)

	var err error
	switch stats.Axis {
	case AxisColumns:
		stats.Width, stats.Height = buf.Width, buf.Height
		stats.Lines = buf.Width
		stats.LineStats, err = s.sortLines(ctx, p, buf.Width, func(i int) (Line, Coverage) {
			if mask == nil {
				return buf.Column(i), nil
			}
			return buf.Column(i), mask.Column(i)
		})

	case AxisRotatedRows:
		var orig *PixelBuffer
		if mask != nil {
			orig = buf.Clone()
		}
		rot := Rotate(buf, p.Angle)
		stats.Width, stats.Height = rot.Width, rot.Height
		stats.Lines = rot.Height
		stats.LineStats, err = s.sortLines(ctx, p, rot.Height, func(i int) (Line, Coverage) {
			return rot.Row(i), nil
		})
		if err != nil {
			break
		}
		Unrotate(rot, buf)
		if mask != nil {
			BlendSelection(buf, orig, mask)
		}

	default:
		stats.Width, stats.Height = buf.Width, buf.Height
		stats.Lines = buf.Height
		stats.LineStats, err = s.sortLines(ctx, p, buf.Height, func(i int) (Line, Coverage) {
			if mask == nil {
				return buf.Row(i), nil
			}
			return buf.Row(i), mask.Row(i)
		})
	}

	stats.Elapsed = time.Since(start)
	if err != nil {
		logger.Warn("sort pass aborted", "error", err, "elapsed", stats.Elapsed)
		return stats, err
	}
	logger.Debug("sort pass complete",
		"lines", stats.Lines, "spans", stats.Spans, "sorted", stats.Sorted,
		"dropped", stats.Dropped, "pixels", stats.Pixels, "elapsed", stats.Elapsed)
	return stats, nil
}

// lineFunc returns line i and its selection coverage, which may be nil.
type lineFunc func(i int) (Line, Coverage)

func (s *Sorter) sortLines(ctx context.Context, p Params, n int, at lineFunc) (LineStats, error) {
	if s.Workers > 1 && n > 1 {
		return s.sortParallel(ctx, p, n, at)
	}

	rng := NewRNG(s.Seed)
	var ls lineSorter
	var total LineStats
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		line, sel := at(i)
		spans := DetectSpans(line, p, i, rng)
		total.add(ls.sort(line, spans, p, sel, rng))
	}
	return total, nil
}

// sortParallel splits the lines into interleaved stripes, one per worker.
// Distinct lines never share pixels, so stripes write without locking.
func (s *Sorter) sortParallel(ctx context.Context, p Params, n int, at lineFunc) (LineStats, error) {
	workers := min(s.Workers, n)
	partial := make([]LineStats, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			var ls lineSorter
			for i := w; i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rng := LineRNG(s.Seed, i)
				line, sel := at(i)
				spans := DetectSpans(line, p, i, rng)
				partial[w].add(ls.sort(line, spans, p, sel, rng))
			}
			return nil
		})
	}
	err := g.Wait()

	var total LineStats
	for _, st := range partial {
		total.add(st)
	}
	return total, err
}

func (s *Sorter) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.New(io.Discard)
}

// NewRNG returns the shared stream a sequential pass draws from.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// LineRNG returns the independent stream for line i of a parallel pass.
func LineRNG(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)^0x9e3779b97f4a7c15))
}

// BlendSelection mixes the sorted pixels in buf with orig under mask, pixel
// by pixel: coverage 0 restores orig, 255 keeps buf, anything between
// blends with the same truncating rule the line sorter uses.
func BlendSelection(buf, orig *PixelBuffer, mask *SelectionMask) {
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			m := mask.At(x, y)
			if m == fullCoverage {
				continue
			}
			or, og, ob := orig.RGB(x, y)
			if m == 0 {
				buf.SetRGB(x, y, or, og, ob)
				continue
			}
			r, g, b := buf.RGB(x, y)
			buf.SetRGB(x, y, blend(or, r, m), blend(og, g, m), blend(ob, b, m))
		}
	}
}

// SortSurface gathers surf (and mask, when non-nil) into working buffers,
// runs one pass and scatters the result back. surf is left untouched when
// the pass fails.
func (s *Sorter) SortSurface(ctx context.Context, surf Surface, mask *MaskSurface) (Stats, error) {
	buf := surf.Gather()
	var sel *SelectionMask
	if mask != nil {
		sel = mask.Gather()
	}
	stats, err := s.Sort(ctx, buf, sel)
	if err != nil {
		return stats, err
	}
	surf.Scatter(buf)
	return stats, nil
}
