// Package pixelsort implements a deterministic pixel-sorting effect.
//
// # Overview
//
// A pass walks every row (or column) of an RGB [PixelBuffer], cuts each
// line into spans, and reorders the pixels inside every span by a scalar
// sort key:
//
//	sorter := pixelsort.NewSorter(params)
//	stats, err := sorter.Sort(ctx, buf, mask)
//
// The same seed, parameters and input always produce the same bytes.
//
// # Sort Keys
//
// [Value] maps an RGB triple to the ordering value for a [SortKey]:
// brightness (Rec. 601 luma), HSV hue and saturation, intensity, minimum
// channel, or a single channel. [NormValue] scales it to [0,1] for
// threshold comparisons.
//
// # Spans
//
// [DetectSpans] chooses span boundaries with one of five [IntervalMode]
// strategies:
//
//   - Threshold: runs of pixels whose normalized key is within the thresholds
//   - Random: random lengths and gaps, independent of content
//   - Edges: splits where the brightness step is unusually large
//   - Waves: lengths following a sine wave whose phase drifts per line
//   - None: the whole line
//
// [FilterSpans] then drops short spans and cuts long ones.
//
// # Sorting
//
// [SortLine] sorts each span stably, optionally reverses it, perturbs it
// with bounded jitter, and may skip it entirely according to the falloff
// percentage. With a [SelectionMask], zero-coverage pixels never move and
// partial coverage blends the sorted pixel with the original.
//
// # Angles
//
// Horizontal sorting at a non-zero angle rotates the image onto a larger
// canvas with [Rotate], sorts its rows, and maps the result back with
// [Unrotate]. Both use nearest-neighbour sampling, so the round trip is
// lossy at angles that are not multiples of 90. The selection mask is then
// applied per pixel by [BlendSelection].
//
// # Randomness
//
// All randomness comes from an explicit [RNG]. A sequential pass shares
// one stream across lines in order; a parallel pass ([Sorter].Workers > 1)
// gives every line its own stream from [LineRNG].
package pixelsort
