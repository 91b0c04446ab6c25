package pixelsort

import "math"

// Span is a half-open interval [Start, End) of line-local positions that is
// reordered as a unit.
type Span struct {
	Start int
	End   int
}

// Len returns the number of positions in the span.
func (s Span) Len() int { return s.End - s.Start }

// RNG is the random source threaded through a pass. IntN returns a uniform
// integer in [0, n). *math/rand/v2.Rand satisfies it.
type RNG interface {
	IntN(n int) int
}

// uniform draws an integer uniformly from the closed interval [lo, hi].
func uniform(rng RNG, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// Random-mode span and gap bounds.
const (
	randomSpanMin = 10
	randomSpanCap = 11
	randomGapMin  = 1
	randomGapMax  = 20
)

// Waves-mode shape.
const (
	waveMinLength  = 10
	waveDivisor    = 8
	wavePhaseStep  = 0.5
	wavePhaseShift = 0.1
	waveMinSpan    = 2
)

// DetectSpans partitions line into spans using the strategy selected by
// p.IntervalMode, then applies the span length filters. lineIndex feeds the
// Waves phase; rng is consumed only in Random mode.
func DetectSpans(line Line, p Params, lineIndex int, rng RNG) []Span {
	n := line.Len()
	if n <= 0 {
		return nil
	}

	var spans []Span
	switch p.IntervalMode {
	case Threshold:
		spans = thresholdSpans(normValues(line, p.SortKey),
			float32(p.LowerThreshold)/MaxThreshold,
			float32(p.UpperThreshold)/MaxThreshold)
	case Random:
		spans = randomSpans(n, rng)
	case Edges:
		spans = edgeSpans(normValues(line, Brightness))
	case Waves:
		spans = waveSpans(n, lineIndex)
	default:
		spans = []Span{{0, n}}
	}
	return FilterSpans(spans, p.SpanMin, p.SpanMax)
}

// FilterSpans drops spans shorter than spanMin and, when spanMax is
// positive, cuts every remaining span into consecutive pieces of at most
// spanMax positions. Original span boundaries are never merged across.
func FilterSpans(spans []Span, spanMin, spanMax int) []Span {
	if spanMin > 1 {
		kept := make([]Span, 0, len(spans))
		for _, s := range spans {
			if s.Len() >= spanMin {
				kept = append(kept, s)
			}
		}
		spans = kept
	}
	if spanMax <= 0 {
		return spans
	}

	capped := make([]Span, 0, len(spans))
	for _, s := range spans {
		for start := s.Start; start < s.End; {
			end := min(start+spanMax, s.End)
			capped = append(capped, Span{start, end})
			start = end
		}
	}
	return capped
}

func normValues(line Line, key SortKey) []float32 {
	vals := make([]float32, line.Len())
	for i := range vals {
		r, g, b := line.RGB(i)
		vals[i] = NormValue(r, g, b, key)
	}
	return vals
}

// thresholdSpans returns the maximal runs of values inside [lo, hi].
func thresholdSpans(vals []float32, lo, hi float32) []Span {
	var spans []Span
	start := -1
	for i, v := range vals {
		in := v >= lo && v <= hi
		switch {
		case in && start < 0:
			start = i
		case !in && start >= 0:
			spans = append(spans, Span{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{start, len(vals)})
	}
	return spans
}

// randomSpans ignores pixel content and lays out random-length spans
// separated by random gaps.
func randomSpans(n int, rng RNG) []Span {
	maxLen := max(randomSpanCap, n/4)
	var spans []Span
	for i := 0; i < n; {
		end := min(i+uniform(rng, randomSpanMin, maxLen), n)
		spans = append(spans, Span{i, end})
		i = end + uniform(rng, randomGapMin, randomGapMax)
	}
	return spans
}

// edgeThreshold returns mean + stddev of the edge magnitudes. Squares are
// taken in float32 and accumulated in float64.
func edgeThreshold(edges []float32) float32 {
	var sum, sumSq float64
	for _, e := range edges {
		sum += float64(e)
		sumSq += float64(e * e)
	}
	mean := sum / float64(len(edges))
	variance := max(sumSq/float64(len(edges))-mean*mean, 0)
	return float32(mean + math.Sqrt(variance))
}

// edgeSpans splits the line wherever the brightness step between
// neighbours exceeds the mean step by more than one standard deviation.
func edgeSpans(bright []float32) []Span {
	n := len(bright)
	if n == 1 {
		return []Span{{0, 1}}
	}

	edges := make([]float32, n-1)
	for i := range edges {
		edges[i] = float32(math.Abs(float64(bright[i+1] - bright[i])))
	}
	threshold := edgeThreshold(edges)

	var spans []Span
	prev := 0
	for i, e := range edges {
		if e <= threshold {
			continue
		}
		split := i + 1
		if split > prev {
			spans = append(spans, Span{prev, split})
		}
		prev = split
	}
	if n > prev {
		spans = append(spans, Span{prev, n})
	}
	return spans
}

// waveSpans lays out spans whose length follows a sine wave. The phase is
// derived from lineIndex so neighbouring lines drift against each other.
func waveSpans(n, lineIndex int) []Span {
	wavelength := float64(max(waveMinLength, n/waveDivisor))
	phase := float64(lineIndex) * wavePhaseShift

	var spans []Span
	for i := 0; i < n; {
		length := max(waveMinSpan, int(math.Round(wavelength*(0.5+0.5*math.Sin(phase)))))
		end := min(i+length, n)
		spans = append(spans, Span{i, end})
		i = end
		phase += wavePhaseStep
	}
	return spans
}
