package pixelsort

import "math"

// RotatedBuffer is a working canvas holding a source buffer rotated by
// Angle degrees. Its dimensions are the bounding box of the rotated source.
type RotatedBuffer struct {
	*PixelBuffer

	Angle     int
	SrcWidth  int
	SrcHeight int

	sin, cos float64
}

// sizeEpsilon absorbs the error of sin and cos at multiples of 90 degrees
// so that, for example, a quarter turn does not grow the canvas by a pixel.
const sizeEpsilon = 1e-9

// RotatedSize returns the bounding box of a width×height rectangle rotated
// by angle degrees. Both sides are at least 1.
func RotatedSize(width, height, angle int) (w, h int) {
	rad := float64(angle) * math.Pi / 180
	s, c := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	fw, fh := float64(width), float64(height)
	w = int(math.Ceil(fw*c + fh*s - sizeEpsilon))
	h = int(math.Ceil(fw*s + fh*c - sizeEpsilon))
	return max(w, 1), max(h, 1)
}

// Products in the mappings below are converted explicitly so they are never
// fused into multiply-adds.

// Rotate resamples src onto a new canvas rotated by angle degrees around the
// centres of both buffers. Each canvas pixel takes its nearest source pixel;
// canvas pixels that fall outside the source stay zero.
func Rotate(src *PixelBuffer, angle int) *RotatedBuffer {
	w, h := RotatedSize(src.Width, src.Height, angle)
	rad := float64(angle) * math.Pi / 180
	rot := &RotatedBuffer{
		PixelBuffer: NewPixelBuffer(w, h),
		Angle:       angle,
		SrcWidth:    src.Width,
		SrcHeight:   src.Height,
		sin:         math.Sin(rad),
		cos:         math.Cos(rad),
	}

	cx, cy := center(src.Width), center(src.Height)
	rcx, rcy := center(w), center(h)
	for y := 0; y < h; y++ {
		dy := float64(y) - rcy
		for x := 0; x < w; x++ {
			dx := float64(x) - rcx
			sx := nearest(float64(dx*rot.cos) - float64(dy*rot.sin) + cx)
			sy := nearest(float64(dx*rot.sin) + float64(dy*rot.cos) + cy)
			if sx < 0 || sx >= src.Width || sy < 0 || sy >= src.Height {
				continue
			}
			r, g, b := src.RGB(sx, sy)
			rot.SetRGB(x, y, r, g, b)
		}
	}
	return rot
}

// Unrotate maps rot back onto dst, which must have the source dimensions
// rot was built from. Destination pixels whose canvas coordinate falls
// outside rot keep their current value.
func Unrotate(rot *RotatedBuffer, dst *PixelBuffer) {
	cx, cy := center(dst.Width), center(dst.Height)
	rcx, rcy := center(rot.Width), center(rot.Height)
	for y := 0; y < dst.Height; y++ {
		dy := float64(y) - cy
		for x := 0; x < dst.Width; x++ {
			dx := float64(x) - cx
			rx := nearest(float64(dx*rot.cos) + float64(dy*rot.sin) + rcx)
			ry := nearest(float64(-dx*rot.sin) + float64(dy*rot.cos) + rcy)
			if rx < 0 || rx >= rot.Width || ry < 0 || ry >= rot.Height {
				continue
			}
			r, g, b := rot.RGB(rx, ry)
			dst.SetRGB(x, y, r, g, b)
		}
	}
}

func center(n int) float64 { return float64(n-1) / 2 }

// nearest rounds by adding one half and truncating toward zero, so
// coordinates in (-1, -0.5] land on 0 rather than outside the buffer.
func nearest(v float64) int { return int(v + 0.5) }
