package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/observability"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// Frame is a decoded input ready to be sorted. Sorting edits Image in place.
type Frame struct {
	Image   *image.NRGBA
	Surface pixelsort.Surface
	Mask    *pixelsort.SelectionMask // nil when the whole image is selected
	Format  string                   // input format
}

// Decode reads the input image and the optional mask.
func Decode(ctx context.Context, in Input, opts Options) (*Frame, error) {
	if len(in.Image) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no input image")
	}
	if len(in.Mask) > 0 && opts.UseAlphaMask {
		return nil, errors.New(errors.ErrCodeInvalidParams, "a mask image and the alpha mask cannot be combined")
	}

	start := time.Now()
	img, format, err := imageio.Decode(in.Image, opts.maxPixels())
	if err != nil {
		observability.Pipeline().OnDecode(ctx, format, 0, 0, time.Since(start), err)
		return nil, err
	}

	nrgba, surf := imageio.ToSurface(img)
	frame := &Frame{Image: nrgba, Surface: surf, Format: format}

	switch {
	case opts.UseAlphaMask:
		frame.Mask = imageio.MaskFromAlpha(nrgba)
	case len(in.Mask) > 0:
		maskImg, _, err := imageio.Decode(in.Mask, opts.maxPixels())
		if err != nil {
			err = errors.Wrap(errors.GetCode(err), err, "mask")
			observability.Pipeline().OnDecode(ctx, format, surf.Width, surf.Height, time.Since(start), err)
			return nil, err
		}
		frame.Mask = imageio.MaskFromImage(maskImg, surf.Width, surf.Height)
	}

	observability.Pipeline().OnDecode(ctx, format, surf.Width, surf.Height, time.Since(start), nil)
	return frame, nil
}

// Sort runs one pass over the frame. The frame is left untouched when the
// pass is cancelled.
func Sort(ctx context.Context, f *Frame, opts Options) (pixelsort.Stats, error) {
	sorter := &pixelsort.Sorter{
		Params:  opts.Params,
		Seed:    opts.Seed,
		Workers: opts.Workers,
		Logger:  opts.Logger,
	}

	axis := pixelsort.EffectiveAxis(opts.Params)
	observability.Pipeline().OnSortStart(ctx, axis.String(), lineCount(axis, f.Surface.Width, f.Surface.Height, opts.Params.Angle))

	buf := f.Surface.Gather()
	stats, err := sorter.Sort(ctx, buf, f.Mask)
	observability.Pipeline().OnSortComplete(ctx, axis.String(), stats.Pixels, stats.Elapsed, err)
	if err != nil {
		return stats, err
	}
	f.Surface.Scatter(buf)
	return stats, nil
}

// lineCount returns how many lines a pass over a w×h image walks.
func lineCount(axis pixelsort.Axis, w, h, angle int) int {
	switch axis {
	case pixelsort.AxisColumns:
		return w
	case pixelsort.AxisRotatedRows:
		_, rh := pixelsort.RotatedSize(w, h, angle)
		return rh
	default:
		return h
	}
}

// Encode writes the frame in format.
func Encode(ctx context.Context, f *Frame, format string, opts Options) ([]byte, error) {
	start := time.Now()
	var buf bytes.Buffer
	err := imageio.Encode(&buf, f.Image, format, imageio.Options{Quality: opts.Quality})
	observability.Pipeline().OnEncode(ctx, format, buf.Len(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
