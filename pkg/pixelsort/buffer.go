package pixelsort

// bytesPerPixel is the packed RGB layout used by PixelBuffer.
const bytesPerPixel = 3

// Line is a one-dimensional read/write window over pixels. Span detection
// and sorting only ever talk to a Line, so they do not care whether it is
// a row, a column, or something the host owns.
type Line interface {
	Len() int
	RGB(i int) (r, g, b uint8)
	SetRGB(i int, r, g, b uint8)
}

// Coverage is a read-only per-position selection value for one line.
// 0 excludes the position, 255 includes it fully.
type Coverage interface {
	At(i int) uint8
}

// =============================================================================
// PixelBuffer
// =============================================================================

// PixelBuffer is a width×height grid of packed 8-bit RGB triples, row-major,
// with an explicit row stride in bytes.
type PixelBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed buffer with a tight stride.
func NewPixelBuffer(width, height int) *PixelBuffer {
	width, height = max(width, 0), max(height, 0)
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Stride: width * bytesPerPixel,
		Pix:    make([]uint8, width*height*bytesPerPixel),
	}
}

func (p *PixelBuffer) offset(x, y int) int {
	return y*p.Stride + x*bytesPerPixel
}

// RGB returns the pixel at (x, y). Callers must stay in bounds.
func (p *PixelBuffer) RGB(x, y int) (r, g, b uint8) {
	i := p.offset(x, y)
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2]
}

// SetRGB writes the pixel at (x, y). Callers must stay in bounds.
func (p *PixelBuffer) SetRGB(x, y int, r, g, b uint8) {
	i := p.offset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = r, g, b
}

// Clone returns a deep copy of p.
func (p *PixelBuffer) Clone() *PixelBuffer {
	c := *p
	c.Pix = append([]uint8(nil), p.Pix...)
	return &c
}

// Row returns a view of row y.
func (p *PixelBuffer) Row(y int) LineView {
	return LineView{pix: p.Pix, off: y * p.Stride, step: bytesPerPixel, n: p.Width}
}

// Column returns a view of column x.
func (p *PixelBuffer) Column(x int) LineView {
	return LineView{pix: p.Pix, off: x * bytesPerPixel, step: p.Stride, n: p.Height}
}

// LineView is a strided window over a row or column of a PixelBuffer.
// It does not own the pixels.
type LineView struct {
	pix  []uint8
	off  int
	step int
	n    int
}

// Len returns the number of pixels in the line.
func (l LineView) Len() int { return l.n }

// RGB returns the i-th pixel of the line.
func (l LineView) RGB(i int) (r, g, b uint8) {
	j := l.off + i*l.step
	return l.pix[j], l.pix[j+1], l.pix[j+2]
}

// SetRGB writes the i-th pixel of the line.
func (l LineView) SetRGB(i int, r, g, b uint8) {
	j := l.off + i*l.step
	l.pix[j], l.pix[j+1], l.pix[j+2] = r, g, b
}

// =============================================================================
// SelectionMask
// =============================================================================

// SelectionMask holds per-pixel coverage values with the same dimensions as
// the PixelBuffer it applies to. It is never written during a pass.
type SelectionMask struct {
	Width  int
	Height int
	Data   []uint8
}

// NewSelectionMask creates a mask with every pixel excluded.
func NewSelectionMask(width, height int) *SelectionMask {
	width, height = max(width, 0), max(height, 0)
	return &SelectionMask{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// At returns the coverage at (x, y), or 0 outside the mask.
func (m *SelectionMask) At(x, y int) uint8 {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return 0
	}
	return m.Data[y*m.Width+x]
}

// Set writes the coverage at (x, y). Out-of-bounds writes are ignored.
func (m *SelectionMask) Set(x, y int, v uint8) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Data[y*m.Width+x] = v
}

// Fill sets every coverage value to v.
func (m *SelectionMask) Fill(v uint8) {
	for i := range m.Data {
		m.Data[i] = v
	}
}

// Row returns the coverage of row y as a line.
func (m *SelectionMask) Row(y int) MaskLine {
	return MaskLine{data: m.Data, off: y * m.Width, step: 1}
}

// Column returns the coverage of column x as a line.
func (m *SelectionMask) Column(x int) MaskLine {
	return MaskLine{data: m.Data, off: x, step: m.Width}
}

// MaskLine is a strided window over one row or column of a SelectionMask.
type MaskLine struct {
	data []uint8
	off  int
	step int
}

// At returns the coverage of the i-th position.
func (l MaskLine) At(i int) uint8 { return l.data[l.off+i*l.step] }

// =============================================================================
// Host surfaces
// =============================================================================

// Surface describes an interleaved pixel buffer owned by the host. Channel
// indices may be non-canonical (BGRA, ARGB, ...) and are honoured on both
// gather and scatter; any channel not named R, G or B is left untouched.
type Surface struct {
	Pix        []uint8
	Width      int
	Height     int
	RowBytes   int
	PixelBytes int
	R, G, B    int
}

// Gather copies the surface into a new contiguous PixelBuffer.
func (s Surface) Gather() *PixelBuffer {
	buf := NewPixelBuffer(s.Width, s.Height)
	for y := 0; y < s.Height; y++ {
		row := s.Pix[y*s.RowBytes:]
		for x := 0; x < s.Width; x++ {
			px := row[x*s.PixelBytes:]
			buf.SetRGB(x, y, px[s.R], px[s.G], px[s.B])
		}
	}
	return buf
}

// Scatter writes buf back into the surface. buf must have the surface's
// dimensions.
func (s Surface) Scatter(buf *PixelBuffer) {
	for y := 0; y < s.Height; y++ {
		row := s.Pix[y*s.RowBytes:]
		for x := 0; x < s.Width; x++ {
			px := row[x*s.PixelBytes:]
			px[s.R], px[s.G], px[s.B] = buf.RGB(x, y)
		}
	}
}

// MaskSurface describes a host-owned single-channel coverage buffer.
type MaskSurface struct {
	Pix        []uint8
	Width      int
	Height     int
	RowBytes   int
	PixelBytes int
}

// Gather copies the coverage surface into a new SelectionMask.
func (s MaskSurface) Gather() *SelectionMask {
	m := NewSelectionMask(s.Width, s.Height)
	step := max(s.PixelBytes, 1)
	for y := 0; y < s.Height; y++ {
		row := s.Pix[y*s.RowBytes:]
		for x := 0; x < s.Width; x++ {
			m.Data[y*s.Width+x] = row[x*step]
		}
	}
	return m
}
