package server

import (
	"net/url"
	"strconv"

	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// paramsFromQuery overrides fields of base with query values. Names match
// the CLI flags. The result is clamped.
func paramsFromQuery(base pixelsort.Params, q url.Values) (pixelsort.Params, error) {
	p := base
	var err error

	if v := q.Get("direction"); v != "" {
		if p.Direction, err = pixelsort.ParseDirection(v); err != nil {
			return p, invalid(err)
		}
	}
	if v := q.Get("key"); v != "" {
		if p.SortKey, err = pixelsort.ParseSortKey(v); err != nil {
			return p, invalid(err)
		}
	}
	if v := q.Get("mode"); v != "" {
		if p.IntervalMode, err = pixelsort.ParseIntervalMode(v); err != nil {
			return p, invalid(err)
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"lower", &p.LowerThreshold},
		{"upper", &p.UpperThreshold},
		{"jitter", &p.Jitter},
		{"span-min", &p.SpanMin},
		{"span-max", &p.SpanMax},
		{"angle", &p.Angle},
		{"falloff", &p.Falloff},
	}
	for _, f := range ints {
		if err := queryInt(q, f.name, f.dst); err != nil {
			return p, err
		}
	}
	if err := queryBool(q, "reverse", &p.Reverse); err != nil {
		return p, err
	}

	return p.Clamp(), nil
}

// optionsFromQuery applies the non-parameter query values.
func optionsFromQuery(o *pipeline.Options, q url.Values) error {
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidParams, "invalid seed: %q", v)
		}
		o.Seed = seed
	}
	if v := q.Get("format"); v != "" {
		o.Format = v
	}
	if err := queryInt(q, "quality", &o.Quality); err != nil {
		return err
	}
	if err := queryBool(q, "alpha-mask", &o.UseAlphaMask); err != nil {
		return err
	}
	return queryBool(q, "refresh", &o.Refresh)
}

func queryInt(q url.Values, name string, dst *int) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidParams, "invalid %s: %q is not an integer", name, v)
	}
	*dst = n
	return nil
}

func queryBool(q url.Values, name string, dst *bool) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidParams, "invalid %s: %q is not a boolean", name, v)
	}
	*dst = b
	return nil
}

func invalid(err error) error {
	return errors.New(errors.ErrCodeInvalidParams, "%v", err)
}
