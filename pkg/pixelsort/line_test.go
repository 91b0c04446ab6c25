package pixelsort

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noneParams() Params {
	p := DefaultParams()
	p.IntervalMode = None
	return p
}

func wholeLine(buf *PixelBuffer) []Span {
	return []Span{{0, buf.Width}}
}

func keyValues(buf *PixelBuffer, key SortKey) []float32 {
	out := make([]float32, buf.Width)
	for x := range out {
		r, g, b := buf.RGB(x, 0)
		out[x] = Value(r, g, b, key)
	}
	return out
}

func TestSortLineEndToEnd(t *testing.T) {
	buf := grayRow(200, 50, 220, 10)
	p := DefaultParams()
	p.LowerThreshold, p.UpperThreshold = 0, 255

	line := buf.Row(0)
	spans := DetectSpans(line, p, 0, nil)
	require.Equal(t, []Span{{0, 4}}, spans)

	stats := SortLine(line, spans, p, nil, nil)
	assert.Equal(t, []uint8{10, 50, 200, 220}, grays(buf))
	assert.Equal(t, LineStats{Spans: 1, Sorted: 1, Pixels: 4}, stats)
}

func TestSortLineMonotonic(t *testing.T) {
	for _, key := range []SortKey{Brightness, Hue, Saturation, Intensity, Minimum, Red, Green, Blue} {
		t.Run(key.String(), func(t *testing.T) {
			p := noneParams()
			p.SortKey = key

			buf := randomBuffer(64, 1, uint64(key)+1)
			SortLine(buf.Row(0), wholeLine(buf), p, nil, nil)
			assert.True(t, slices.IsSorted(keyValues(buf, key)), "ascending")

			p.Reverse = true
			SortLine(buf.Row(0), wholeLine(buf), p, nil, nil)
			vals := keyValues(buf, key)
			slices.Reverse(vals)
			assert.True(t, slices.IsSorted(vals), "descending")
		})
	}
}

func TestSortLineIdempotent(t *testing.T) {
	buf := randomBuffer(48, 1, 11)
	p := noneParams()
	SortLine(buf.Row(0), wholeLine(buf), p, nil, nil)
	once := buf.Clone()

	SortLine(buf.Row(0), wholeLine(buf), p, nil, nil)
	assert.Equal(t, once.Pix, buf.Pix)
}

func TestSortLineStable(t *testing.T) {
	buf := NewPixelBuffer(3, 1)
	buf.SetRGB(0, 0, 5, 1, 0)
	buf.SetRGB(1, 0, 5, 2, 0)
	buf.SetRGB(2, 0, 1, 0, 0)
	p := noneParams()
	p.SortKey = Red

	SortLine(buf.Row(0), wholeLine(buf), p, nil, nil)
	assert.Equal(t, []uint8{1, 0, 0, 5, 1, 0, 5, 2, 0}, buf.Pix)
}

func TestSortLineFalloff(t *testing.T) {
	p := noneParams()
	p.Falloff = MaxFalloff
	buf := randomBuffer(32, 1, 5)
	orig := buf.Clone()
	spans := []Span{{0, 10}, {10, 20}, {20, 32}}

	stats := SortLine(buf.Row(0), spans, p, nil, NewRNG(1))
	assert.Equal(t, orig.Pix, buf.Pix, "falloff 100 skips every span")
	assert.Equal(t, 3, stats.Dropped)
	assert.Zero(t, stats.Sorted)

	p.Falloff = 0
	rng := newCountingRNG(1)
	stats = SortLine(buf.Row(0), spans, p, nil, rng)
	assert.Equal(t, 3, stats.Sorted)
	assert.Zero(t, stats.Dropped)
	assert.Zero(t, rng.draws, "no draws without falloff or jitter")
}

func TestSortLineShortSpansDrawNothing(t *testing.T) {
	p := noneParams()
	p.Falloff = 50
	p.Jitter = 5
	buf := grayRow(9, 1, 5)
	rng := newCountingRNG(1)

	stats := SortLine(buf.Row(0), []Span{{0, 1}, {2, 3}}, p, nil, rng)
	assert.Zero(t, rng.draws)
	assert.Zero(t, stats.Sorted)
	assert.Equal(t, []uint8{9, 1, 5}, grays(buf))
}

func TestSortLineJitter(t *testing.T) {
	p := noneParams()
	p.Jitter = 3
	buf := randomBuffer(40, 1, 9)
	before := slices.Clone(buf.Pix)
	rng := newCountingRNG(2)

	stats := SortLine(buf.Row(0), wholeLine(buf), p, nil, rng)
	assert.Equal(t, 40, rng.draws, "one offset per pixel")
	assert.Equal(t, 40, stats.Pixels)
	assert.ElementsMatch(t, pixels(before), pixels(buf.Pix), "jitter only permutes")
}

func TestSortLineDrawOrder(t *testing.T) {
	p := noneParams()
	p.Jitter = 2
	p.Falloff = 1
	buf := randomBuffer(30, 1, 4)
	rng := newCountingRNG(3)

	stats := SortLine(buf.Row(0), []Span{{0, 10}, {10, 30}}, p, nil, rng)
	assert.Equal(t, 2+stats.Pixels, rng.draws)
}

func TestSortLineSelection(t *testing.T) {
	t.Run("partial coverage blends", func(t *testing.T) {
		buf := grayRow(200, 10)
		SortLine(buf.Row(0), wholeLine(buf), noneParams(), maskLine{128, 255}, nil)
		// 200 + (10-200)*128/255 truncates to 105.
		assert.Equal(t, []uint8{105, 200}, grays(buf))
	})

	t.Run("zero coverage is untouched", func(t *testing.T) {
		buf := grayRow(250, 200, 10)
		SortLine(buf.Row(0), wholeLine(buf), noneParams(), maskLine{0, 255, 255}, nil)
		assert.Equal(t, []uint8{250, 10, 200}, grays(buf))
	})

	t.Run("full coverage matches unmasked", func(t *testing.T) {
		masked := randomBuffer(20, 1, 8)
		plain := masked.Clone()
		full := make(maskLine, 20)
		for i := range full {
			full[i] = 255
		}
		SortLine(masked.Row(0), wholeLine(masked), noneParams(), full, nil)
		SortLine(plain.Row(0), wholeLine(plain), noneParams(), nil, nil)
		assert.Equal(t, plain.Pix, masked.Pix)
	})

	t.Run("fewer than two selected", func(t *testing.T) {
		buf := grayRow(200, 10, 5)
		stats := SortLine(buf.Row(0), wholeLine(buf), noneParams(), maskLine{0, 255, 0}, nil)
		assert.Equal(t, []uint8{200, 10, 5}, grays(buf))
		assert.Zero(t, stats.Sorted)
	})
}

func TestBlend(t *testing.T) {
	tests := []struct {
		orig, sorted, m, want uint8
	}{
		{200, 10, 128, 105},
		{10, 200, 128, 105},
		{0, 255, 1, 1},
		{255, 0, 1, 254},
		{100, 50, 255, 50},
		{100, 50, 0, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, blend(tt.orig, tt.sorted, tt.m), "blend(%d,%d,%d)", tt.orig, tt.sorted, tt.m)
	}
}

func pixels(pix []uint8) [][3]uint8 {
	out := make([][3]uint8, 0, len(pix)/3)
	for i := 0; i+2 < len(pix); i += 3 {
		out = append(out, [3]uint8{pix[i], pix[i+1], pix[i+2]})
	}
	return out
}
