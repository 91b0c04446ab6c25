package pixelsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const keyDelta = 1e-3

func TestValue(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		key     SortKey
		want    float32
	}{
		{"brightness white", 255, 255, 255, Brightness, 255},
		{"brightness red", 255, 0, 0, Brightness, 0.299 * 255},
		{"intensity", 30, 60, 90, Intensity, 60},
		{"minimum", 30, 60, 90, Minimum, 30},
		{"red", 200, 1, 2, Red, 200},
		{"green", 200, 1, 2, Green, 1},
		{"blue", 200, 1, 2, Blue, 2},
		{"hue red", 255, 0, 0, Hue, 0},
		{"hue green", 0, 255, 0, Hue, 120},
		{"hue blue", 0, 0, 255, Hue, 240},
		{"hue wraps negative", 255, 0, 128, Hue, 360 - 60*128.0/255},
		{"hue gray", 90, 90, 90, Hue, 0},
		{"saturation pure", 255, 0, 0, Saturation, 1},
		{"saturation half", 100, 50, 50, Saturation, 0.5},
		{"saturation black", 0, 0, 0, Saturation, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Value(tt.r, tt.g, tt.b, tt.key), keyDelta)
		})
	}
}

func TestNormValue(t *testing.T) {
	assert.InDelta(t, 1.0/3, NormValue(0, 255, 0, Hue), keyDelta)
	assert.InDelta(t, 0.5, NormValue(100, 50, 50, Saturation), keyDelta)
	assert.InDelta(t, 1, NormValue(255, 255, 255, Brightness), keyDelta)
	assert.InDelta(t, 0, NormValue(0, 0, 0, Intensity), keyDelta)
}

func TestNormValueRange(t *testing.T) {
	for _, key := range []SortKey{Brightness, Hue, Saturation, Intensity, Minimum, Red, Green, Blue} {
		for r := 0; r < 256; r += 17 {
			for g := 0; g < 256; g += 51 {
				for b := 0; b < 256; b += 85 {
					v := NormValue(uint8(r), uint8(g), uint8(b), key)
					assert.GreaterOrEqual(t, v, float32(0), "%s(%d,%d,%d)", key, r, g, b)
					assert.LessOrEqual(t, v, float32(1)+keyDelta, "%s(%d,%d,%d)", key, r, g, b)
				}
			}
		}
	}
}
