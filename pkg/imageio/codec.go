// Package imageio decodes and encodes images and adapts them to the pixel
// buffers the sorter works on.
//
// # Formats
//
// PNG, JPEG and GIF come from the standard library; BMP, TIFF and WebP from
// golang.org/x/image. WebP can be read but not written.
//
//	img, format, err := imageio.Decode(data, imageio.DefaultMaxPixels)
//	nrgba, surf := imageio.ToSurface(img)
//	// ... sort surf ...
//	err = imageio.Encode(w, nrgba, "png", imageio.Options{})
//
// # Masks
//
// A selection mask comes either from the alpha channel of the input
// ([MaskFromAlpha]) or from a separate grayscale image ([MaskFromImage]),
// which is scaled to the input size when needed.
package imageio

import (
	"bytes"
	stderrors "errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/matzehuels/pixelsort/pkg/errors"
)

// Supported format names.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
	FormatWebP = "webp"
)

const (
	// DefaultQuality is the JPEG quality used when none is given.
	DefaultQuality = 90

	// DefaultMaxPixels caps decoded images at 64 megapixels.
	DefaultMaxPixels int64 = 64 << 20
)

var encodable = []string{FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF}

var aliases = map[string]string{
	"jpg": FormatJPEG,
	"tif": FormatTIFF,
}

// EncodeFormats lists the formats Encode can write.
func EncodeFormats() []string {
	return append([]string(nil), encodable...)
}

// Normalize lowercases a format name and resolves aliases such as "jpg".
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if a, ok := aliases[f]; ok {
		return a
	}
	return f
}

// ValidateFormat checks that format can be encoded and returns its
// canonical name.
func ValidateFormat(format string) (string, error) {
	f := Normalize(format)
	for _, e := range encodable {
		if f == e {
			return f, nil
		}
	}
	if f == FormatWebP {
		return "", errors.New(errors.ErrCodeUnsupported, "webp output is not supported")
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
		format, strings.Join(encodable, ", "))
}

// FormatFromPath infers a format from a file extension. It returns "" when
// the extension is missing or unknown.
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	f := Normalize(ext)
	switch f {
	case FormatPNG, FormatJPEG, FormatGIF, FormatBMP, FormatTIFF, FormatWebP:
		return f
	}
	return ""
}

// ContentType returns the MIME type of an encodable format.
func ContentType(format string) string {
	switch Normalize(format) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Format string
	Width  int
	Height int
}

// Probe reads the header of an encoded image.
func Probe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, decodeError(err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode decodes an image, refusing anything larger than maxPixels before
// the pixel data is allocated. A maxPixels of zero disables the check.
func Decode(data []byte, maxPixels int64) (image.Image, string, error) {
	info, err := Probe(data)
	if err != nil {
		return nil, "", err
	}
	if err := errors.ValidateDimensions(info.Width, info.Height, maxPixels); err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", decodeError(err)
	}
	return img, format, nil
}

func decodeError(err error) error {
	if stderrors.Is(err, image.ErrFormat) {
		return errors.Wrap(errors.ErrCodeUnsupported, err, "unrecognised image format")
	}
	return errors.Wrap(errors.ErrCodeDecodeFailed, err, "failed to decode image")
}

// Options configures encoding.
type Options struct {
	Quality int // JPEG quality 1-100; 0 means DefaultQuality
}

// Encode writes img to w in format.
func Encode(w io.Writer, img image.Image, format string, opts Options) error {
	f, err := ValidateFormat(format)
	if err != nil {
		return err
	}

	switch f {
	case FormatJPEG:
		q := opts.Quality
		if q == 0 {
			q = DefaultQuality
		}
		if err := errors.ValidateQuality(q); err != nil {
			return err
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: q})
	case FormatGIF:
		err = gif.Encode(w, img, nil)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncodeFailed, err, "failed to encode %s", f)
	}
	return nil
}
