package pixelsort

import (
	"cmp"
	"slices"
)

// fullCoverage is the mask value at which sorted pixels replace the
// original outright.
const fullCoverage = 255

// falloffRoll is the exclusive upper bound of the per-span falloff draw.
const falloffRoll = 100

// LineStats counts what happened to the spans of one line.
type LineStats struct {
	Spans   int // spans handed to the sorter
	Sorted  int // spans that were reordered and written back
	Dropped int // spans skipped by the falloff roll
	Pixels  int // pixels written
}

// add accumulates o into s.
func (s *LineStats) add(o LineStats) {
	s.Spans += o.Spans
	s.Sorted += o.Sorted
	s.Dropped += o.Dropped
	s.Pixels += o.Pixels
}

// sample is one pixel of a span while it is being sorted.
type sample struct {
	r, g, b uint8
	value   float32
}

// lineSorter keeps the per-span scratch slices so consecutive lines reuse
// their allocations.
type lineSorter struct {
	samples   []sample
	positions []int
}

// SortLine reorders the pixels of every span in line according to p and
// writes them back in place. sel may be nil when there is no selection.
// rng is drawn from once per span of length ≥ 2 when p.Falloff > 0 and once
// per sorted pixel when p.Jitter > 0, always in span order.
func SortLine(line Line, spans []Span, p Params, sel Coverage, rng RNG) LineStats {
	var ls lineSorter
	return ls.sort(line, spans, p, sel, rng)
}

func (ls *lineSorter) sort(line Line, spans []Span, p Params, sel Coverage, rng RNG) LineStats {
	stats := LineStats{Spans: len(spans)}
	n := line.Len()

	for _, span := range spans {
		if span.Len() < 2 {
			continue
		}
		if p.Falloff > 0 && rng.IntN(falloffRoll) < p.Falloff {
			stats.Dropped++
			continue
		}

		ls.collect(line, span, n, p.SortKey, sel)
		count := len(ls.samples)
		if count < 2 {
			continue
		}

		slices.SortStableFunc(ls.samples, func(a, b sample) int {
			return cmp.Compare(a.value, b.value)
		})
		if p.Reverse {
			slices.Reverse(ls.samples)
		}
		if p.Jitter > 0 {
			jitter(ls.samples, p.Jitter, rng)
		}

		ls.writeBack(line, sel)
		stats.Sorted++
		stats.Pixels += count
	}
	return stats
}

// collect gathers the participating pixels of span. Positions with zero
// coverage never take part.
func (ls *lineSorter) collect(line Line, span Span, n int, key SortKey, sel Coverage) {
	ls.samples = ls.samples[:0]
	ls.positions = ls.positions[:0]
	for i := span.Start; i < span.End && i < n; i++ {
		if sel != nil && sel.At(i) == 0 {
			continue
		}
		r, g, b := line.RGB(i)
		ls.samples = append(ls.samples, sample{r, g, b, Value(r, g, b, key)})
		ls.positions = append(ls.positions, i)
	}
}

// jitter walks the sorted samples once, swapping each with a neighbour up
// to amount positions away. An offset is drawn for every position even
// when the clamped target is the position itself.
func jitter(samples []sample, amount int, rng RNG) {
	last := len(samples) - 1
	for i := range samples {
		j := clampInt(i+uniform(rng, -amount, amount), 0, last)
		samples[i], samples[j] = samples[j], samples[i]
	}
}

func (ls *lineSorter) writeBack(line Line, sel Coverage) {
	for k, pos := range ls.positions {
		s := ls.samples[k]
		m := uint8(fullCoverage)
		if sel != nil {
			m = sel.At(pos)
		}
		if m == fullCoverage {
			line.SetRGB(pos, s.r, s.g, s.b)
			continue
		}
		or, og, ob := line.RGB(pos)
		line.SetRGB(pos, blend(or, s.r, m), blend(og, s.g, m), blend(ob, s.b, m))
	}
}

// blend mixes sorted into orig by coverage m/255, truncating toward zero.
func blend(orig, sorted, m uint8) uint8 {
	o := int(orig)
	return uint8(o + (int(sorted)-o)*int(m)/fullCoverage)
}
