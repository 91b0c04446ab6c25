package pixelsort

import "math/rand/v2"

// grayRow builds a width×1 buffer of gray pixels.
func grayRow(values ...uint8) *PixelBuffer {
	buf := NewPixelBuffer(len(values), 1)
	for x, v := range values {
		buf.SetRGB(x, 0, v, v, v)
	}
	return buf
}

// grays returns the red channel of every pixel in row 0.
func grays(buf *PixelBuffer) []uint8 {
	out := make([]uint8, buf.Width)
	for x := range out {
		out[x], _, _ = buf.RGB(x, 0)
	}
	return out
}

func randomBuffer(w, h int, seed uint64) *PixelBuffer {
	rng := rand.New(rand.NewPCG(seed, seed))
	buf := NewPixelBuffer(w, h)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(rng.IntN(256))
	}
	return buf
}

// countingRNG records how many draws were made.
type countingRNG struct {
	rng   *rand.Rand
	draws int
}

func newCountingRNG(seed uint64) *countingRNG {
	return &countingRNG{rng: NewRNG(seed)}
}

func (c *countingRNG) IntN(n int) int {
	c.draws++
	return c.rng.IntN(n)
}

// maskLine is a literal coverage line.
type maskLine []uint8

func (m maskLine) At(i int) uint8 { return m[i] }
