package imageio

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// nrgbaBytes is the size of one *image.NRGBA pixel.
const nrgbaBytes = 4

// ToSurface converts img to a zero-origin *image.NRGBA and returns it with
// a Surface over its pixels. Sorting the surface edits the returned image
// in place; the alpha channel is never touched. An NRGBA input that already
// starts at the origin is used directly rather than copied.
func ToSurface(img image.Image) (*image.NRGBA, pixelsort.Surface) {
	dst, ok := img.(*image.NRGBA)
	if !ok || dst.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		dst = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	return dst, pixelsort.Surface{
		Pix:        dst.Pix,
		Width:      dst.Rect.Dx(),
		Height:     dst.Rect.Dy(),
		RowBytes:   dst.Stride,
		PixelBytes: nrgbaBytes,
		R:          0,
		G:          1,
		B:          2,
	}
}

// MaskFromAlpha builds a selection mask from the alpha channel of img:
// transparent pixels are excluded, opaque pixels fully included.
func MaskFromAlpha(img image.Image) *pixelsort.SelectionMask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := pixelsort.NewSelectionMask(w, h)

	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := n.Pix[y*n.Stride:]
			for x := 0; x < w; x++ {
				mask.Data[y*w+x] = row[x*nrgbaBytes+3]
			}
		}
		return mask
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			mask.Data[y*w+x] = uint8(a >> 8)
		}
	}
	return mask
}

// MaskFromImage builds a selection mask of width×height from the luminance
// of img: black excludes, white includes. img is scaled bilinearly when its
// size differs.
func MaskFromImage(img image.Image, width, height int) *pixelsort.SelectionMask {
	gray := image.NewGray(image.Rect(0, 0, width, height))
	if img.Bounds().Dx() == width && img.Bounds().Dy() == height {
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	}

	mask := pixelsort.NewSelectionMask(width, height)
	for y := 0; y < height; y++ {
		copy(mask.Data[y*width:(y+1)*width], gray.Pix[y*gray.Stride:])
	}
	return mask
}
