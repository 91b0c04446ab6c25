package pixelsort

import (
	"fmt"
	"strings"
)

// Direction selects whether rows or columns are sorted.
type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

var directionNames = []string{"horizontal", "vertical"}

// SortKey selects the scalar pixel property used to order pixels within a span.
type SortKey int

const (
	Brightness SortKey = iota
	Hue
	Saturation
	Intensity
	Minimum
	Red
	Green
	Blue
)

var sortKeyNames = []string{"brightness", "hue", "saturation", "intensity", "minimum", "red", "green", "blue"}

// IntervalMode selects the strategy used to decide where spans begin and end.
type IntervalMode int

const (
	Threshold IntervalMode = iota
	Random
	Edges
	Waves
	None
)

var intervalModeNames = []string{"threshold", "random", "edges", "waves", "none"}

// Parameter bounds.
const (
	MaxThreshold = 255
	MaxJitter    = 100
	MaxSpan      = 10000
	MaxFalloff   = 100
)

// Params is the per-pass configuration of the effect.
//
// A Params value handed to the engine is assumed to be clamped; call Clamp
// on anything that came from a user.
type Params struct {
	Direction      Direction    `json:"direction" toml:"direction"`
	SortKey        SortKey      `json:"sort_key" toml:"sort_key"`
	IntervalMode   IntervalMode `json:"interval_mode" toml:"interval_mode"`
	LowerThreshold int          `json:"lower_threshold" toml:"lower_threshold"`
	UpperThreshold int          `json:"upper_threshold" toml:"upper_threshold"`
	Reverse        bool         `json:"reverse" toml:"reverse"`
	Jitter         int          `json:"jitter" toml:"jitter"`
	SpanMin        int          `json:"span_min" toml:"span_min"`
	SpanMax        int          `json:"span_max" toml:"span_max"` // 0 = unlimited
	Angle          int          `json:"angle" toml:"angle"`
	Falloff        int          `json:"falloff" toml:"falloff"`
}

// DefaultParams returns the parameters a fresh filter instance starts with.
func DefaultParams() Params {
	return Params{
		Direction:      Horizontal,
		SortKey:        Brightness,
		IntervalMode:   Threshold,
		LowerThreshold: 64,
		UpperThreshold: 204,
		SpanMin:        1,
	}
}

// Clamp returns a copy of p with every field repaired into its valid range.
// Unknown enum values fall back to their defaults, the angle wraps modulo
// 360, and the upper threshold and span maximum are raised to their lower
// counterparts when inverted.
func (p Params) Clamp() Params {
	if p.Direction < Horizontal || p.Direction > Vertical {
		p.Direction = Horizontal
	}
	if p.SortKey < Brightness || p.SortKey > Blue {
		p.SortKey = Brightness
	}
	if p.IntervalMode < Threshold || p.IntervalMode > None {
		p.IntervalMode = Threshold
	}

	p.LowerThreshold = clampInt(p.LowerThreshold, 0, MaxThreshold)
	p.UpperThreshold = clampInt(p.UpperThreshold, 0, MaxThreshold)
	if p.UpperThreshold < p.LowerThreshold {
		p.UpperThreshold = p.LowerThreshold
	}

	p.Jitter = clampInt(p.Jitter, 0, MaxJitter)
	p.SpanMin = clampInt(p.SpanMin, 1, MaxSpan)
	p.SpanMax = clampInt(p.SpanMax, 0, MaxSpan)
	if p.SpanMax > 0 && p.SpanMax < p.SpanMin {
		p.SpanMax = p.SpanMin
	}

	p.Angle = ((p.Angle % 360) + 360) % 360
	p.Falloff = clampInt(p.Falloff, 0, MaxFalloff)
	return p
}

// String renders p in a compact single-line form used in log output.
func (p Params) String() string {
	return fmt.Sprintf("dir=%s key=%s mode=%s lo=%d hi=%d rev=%t jit=%d smin=%d smax=%d ang=%d fall=%d",
		p.Direction, p.SortKey, p.IntervalMode,
		p.LowerThreshold, p.UpperThreshold,
		p.Reverse, p.Jitter, p.SpanMin, p.SpanMax, p.Angle, p.Falloff)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// =============================================================================
// Enum text encoding
// =============================================================================

func (d Direction) String() string { return enumName(directionNames, int(d)) }

func (k SortKey) String() string { return enumName(sortKeyNames, int(k)) }

func (m IntervalMode) String() string { return enumName(intervalModeNames, int(m)) }

// MarshalText implements encoding.TextMarshaler so directions round-trip through TOML and JSON.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (k SortKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (m IntervalMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	*d = v
	return err
}

func (k *SortKey) UnmarshalText(b []byte) error {
	v, err := ParseSortKey(string(b))
	*k = v
	return err
}

func (m *IntervalMode) UnmarshalText(b []byte) error {
	v, err := ParseIntervalMode(string(b))
	*m = v
	return err
}

// ParseDirection parses a direction name ("horizontal", "vertical", or "h"/"v").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h":
		return Horizontal, nil
	case "v":
		return Vertical, nil
	}
	i, err := parseEnum("direction", directionNames, s)
	return Direction(i), err
}

// ParseSortKey parses a sort key name such as "hue" or "brightness".
func ParseSortKey(s string) (SortKey, error) {
	i, err := parseEnum("sort key", sortKeyNames, s)
	return SortKey(i), err
}

// ParseIntervalMode parses an interval mode name such as "edges".
func ParseIntervalMode(s string) (IntervalMode, error) {
	i, err := parseEnum("interval mode", intervalModeNames, s)
	return IntervalMode(i), err
}

// Directions lists the accepted direction names in enum order.
func Directions() []string { return append([]string(nil), directionNames...) }

// SortKeys lists the accepted sort key names in enum order.
func SortKeys() []string { return append([]string(nil), sortKeyNames...) }

// IntervalModes lists the accepted interval mode names in enum order.
func IntervalModes() []string { return append([]string(nil), intervalModeNames...) }

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func parseEnum(kind string, names []string, s string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid %s: %q (must be one of: %s)", kind, s, strings.Join(names, ", "))
}
