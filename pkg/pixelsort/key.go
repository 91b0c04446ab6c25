package pixelsort

import "math"

// Rec. 601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Value returns the raw ordering value of an RGB triple under key.
//
// Ranges: Brightness, Intensity, Minimum and the channel keys are in
// [0,255]; Hue is in degrees [0,360); Saturation is in [0,1].
func Value(r, g, b uint8, key SortKey) float32 {
	switch key {
	case Hue:
		return hue(r, g, b)
	case Saturation:
		return saturation(r, g, b)
	case Intensity:
		return (float32(r) + float32(g) + float32(b)) / 3
	case Minimum:
		return float32(min(r, g, b))
	case Red:
		return float32(r)
	case Green:
		return float32(g)
	case Blue:
		return float32(b)
	default:
		return brightness(r, g, b)
	}
}

// NormValue returns the ordering value of an RGB triple under key scaled to
// [0,1]. It is what threshold span detection compares against.
func NormValue(r, g, b uint8, key SortKey) float32 {
	switch key {
	case Hue:
		return hue(r, g, b) / 360
	case Saturation:
		return saturation(r, g, b)
	default:
		return Value(r, g, b, key) / 255
	}
}

func brightness(r, g, b uint8) float32 {
	return lumaR*float32(r) + lumaG*float32(g) + lumaB*float32(b)
}

// hue is the HSV hue in degrees; achromatic colours report 0.
func hue(r8, g8, b8 uint8) float32 {
	r, g, b := float32(r8), float32(g8), float32(b8)
	hi := max(r, g, b)
	delta := hi - min(r, g, b)
	if delta <= 0 {
		return 0
	}

	var h float32
	switch hi {
	case r:
		h = 60 * float32(math.Mod(float64((g-b)/delta), 6))
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h
}

func saturation(r8, g8, b8 uint8) float32 {
	r, g, b := float32(r8), float32(g8), float32(b8)
	hi := max(r, g, b)
	if hi <= 0 {
		return 0
	}
	return (hi - min(r, g, b)) / hi
}
