package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/observability"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	failGet bool
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, cache.ErrNetwork
	}
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

// encodePNG builds a w×h PNG whose rows run from bright to dark.
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255 - (x*255)/max(w-1, 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func sortAll() pixelsort.Params {
	p := pixelsort.DefaultParams()
	p.IntervalMode = pixelsort.None
	return p
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Params: pixelsort.Params{Angle: -30, SpanMin: 0}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %d, want %d", opts.Seed, DefaultSeed)
	}
	if opts.Quality != DefaultQuality {
		t.Errorf("Quality = %d, want %d", opts.Quality, DefaultQuality)
	}
	if opts.MaxPixels != DefaultMaxPixels {
		t.Errorf("MaxPixels = %d, want %d", opts.MaxPixels, DefaultMaxPixels)
	}
	if opts.Params.Angle != 330 || opts.Params.SpanMin != 1 {
		t.Errorf("Params not clamped: %s", opts.Params)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"bad format", Options{Format: "svg"}, errors.ErrCodeInvalidFormat},
		{"webp output", Options{Format: "webp"}, errors.ErrCodeUnsupported},
		{"bad quality", Options{Quality: 150}, errors.ErrCodeInvalidParams},
	}
	for _, tt := range tests {
		err := tt.opts.ValidateAndSetDefaults()
		if !errors.Is(err, tt.code) {
			t.Errorf("%s: error = %v, want code %s", tt.name, err, tt.code)
		}
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		format, input, want string
	}{
		{"", "png", "png"},
		{"", "jpeg", "jpeg"},
		{"", "webp", "png"},
		{"bmp", "png", "bmp"},
	}
	for _, tt := range tests {
		o := Options{Format: tt.format}
		if got := o.OutputFormat(tt.input); got != tt.want {
			t.Errorf("OutputFormat(%q) with Format=%q = %q, want %q", tt.input, tt.format, got, tt.want)
		}
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Quality: 70, Workers: 4}
	if got := o.ArtifactKeyOpts("png").Quality; got != 0 {
		t.Errorf("png key Quality = %d, want 0", got)
	}
	if got := o.ArtifactKeyOpts("jpeg").Quality; got != 70 {
		t.Errorf("jpeg key Quality = %d, want 70", got)
	}
	if !o.ArtifactKeyOpts("png").Parallel {
		t.Error("Workers > 1 should mark the key parallel")
	}
}

func TestExecute(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	in := Input{Image: encodePNG(t, 8, 3)}

	res, err := r.Execute(context.Background(), in, Options{Params: sortAll()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.Hit {
		t.Error("first run should miss the cache")
	}
	if res.Format != "png" || res.Width != 8 || res.Height != 3 {
		t.Errorf("Result = %s %dx%d, want png 8x3", res.Format, res.Width, res.Height)
	}
	if res.Stats.Sort.Lines != 3 || res.Stats.Sort.Pixels != 24 {
		t.Errorf("Sort stats = %+v, want 3 lines / 24 pixels", res.Stats.Sort)
	}

	img, _, err := imageio.Decode(res.Artifact, 0)
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	for y := 0; y < 3; y++ {
		prev := -1
		for x := 0; x < 8; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if int(r) < prev {
				t.Fatalf("row %d not ascending at x=%d", y, x)
			}
			prev = int(r)
		}
	}

	again, err := r.Execute(context.Background(), in, Options{Params: sortAll()})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !again.CacheInfo.Hit {
		t.Error("second run should hit the cache")
	}
	if !bytes.Equal(again.Artifact, res.Artifact) {
		t.Error("cached artifact differs")
	}
	if again.Width != 8 || again.Height != 3 {
		t.Errorf("cached Result size = %dx%d, want 8x3", again.Width, again.Height)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	in := Input{Image: encodePNG(t, 16, 16)}
	p := pixelsort.DefaultParams()
	p.IntervalMode = pixelsort.Random
	p.Jitter = 20
	p.Angle = 25

	a, err := NewRunner(nil, nil, nil).Execute(context.Background(), in, Options{Params: p})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	b, err := NewRunner(nil, nil, nil).Execute(context.Background(), in, Options{Params: p})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !bytes.Equal(a.Artifact, b.Artifact) {
		t.Error("same input and options should give identical output")
	}
}

func TestExecuteRefresh(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	in := Input{Image: encodePNG(t, 4, 4)}

	if _, err := r.Execute(context.Background(), in, Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, err := r.Execute(context.Background(), in, Options{Refresh: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.Hit {
		t.Error("refresh should bypass the cache")
	}
	if c.gets != 1 || c.sets != 2 {
		t.Errorf("gets/sets = %d/%d, want 1/2", c.gets, c.sets)
	}
}

func TestExecuteCacheFailureFallsBack(t *testing.T) {
	c := newMemCache()
	c.failGet = true
	res, err := NewRunner(c, nil, nil).Execute(context.Background(), Input{Image: encodePNG(t, 4, 4)}, Options{})
	if err != nil {
		t.Fatalf("Execute should recompute on cache failure: %v", err)
	}
	if res.CacheInfo.Hit || len(res.Artifact) == 0 {
		t.Errorf("Result = %+v, want recomputed artifact", res.CacheInfo)
	}
}

func TestExecuteKeyDependsOnOptions(t *testing.T) {
	r := NewRunner(newMemCache(), nil, nil)
	in := Input{Image: encodePNG(t, 4, 4)}

	a, _ := r.Execute(context.Background(), in, Options{})
	b, _ := r.Execute(context.Background(), in, Options{Seed: 7})
	c, _ := r.Execute(context.Background(), in, Options{Format: "bmp"})
	if a.CacheInfo.Key == b.CacheInfo.Key || a.CacheInfo.Key == c.CacheInfo.Key {
		t.Error("seed and format must be part of the cache key")
	}
	if c.Format != "bmp" {
		t.Errorf("Format = %q, want bmp", c.Format)
	}
}

func TestExecuteMask(t *testing.T) {
	in := Input{Image: encodePNG(t, 8, 2)}

	black := image.NewGray(image.Rect(0, 0, 4, 1))
	var mask bytes.Buffer
	if err := png.Encode(&mask, black); err != nil {
		t.Fatal(err)
	}
	in.Mask = mask.Bytes()

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), in, Options{Params: sortAll()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	orig, _, _ := imageio.Decode(in.Image, 0)
	got, _, _ := imageio.Decode(res.Artifact, 0)
	for x := 0; x < 8; x++ {
		if got.At(x, 0) != orig.At(x, 0) {
			t.Fatalf("pixel %d changed under an all-black mask", x)
		}
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	if _, err := r.Execute(ctx, Input{}, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty input error = %v, want INVALID_INPUT", err)
	}
	if _, err := r.Execute(ctx, Input{Image: []byte("nope")}, Options{}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("garbage input error = %v, want UNSUPPORTED", err)
	}

	img := encodePNG(t, 10, 10)
	if _, err := r.Execute(ctx, Input{Image: img}, Options{MaxPixels: 50}); !errors.Is(err, errors.ErrCodeImageTooLarge) {
		t.Errorf("large input error = %v, want IMAGE_TOO_LARGE", err)
	}
	if _, err := r.Execute(ctx, Input{Image: img, Mask: img}, Options{UseAlphaMask: true}); !errors.Is(err, errors.ErrCodeInvalidParams) {
		t.Errorf("mask + alpha error = %v, want INVALID_PARAMS", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := r.Execute(cancelled, Input{Image: img}, Options{}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v, want context.Canceled", err)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	events []string
}

func (h *recordingHooks) OnDecode(context.Context, string, int, int, time.Duration, error) {
	h.events = append(h.events, "decode")
}

func (h *recordingHooks) OnSortStart(_ context.Context, axis string, lines int) {
	h.events = append(h.events, "start:"+axis)
}

func (h *recordingHooks) OnSortComplete(context.Context, string, int, time.Duration, error) {
	h.events = append(h.events, "complete")
}

func (h *recordingHooks) OnEncode(context.Context, string, int, time.Duration, error) {
	h.events = append(h.events, "encode")
}

func TestExecuteHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	p := pixelsort.DefaultParams()
	p.Direction = pixelsort.Vertical
	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), Input{Image: encodePNG(t, 4, 4)}, Options{Params: p}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"decode", "start:columns", "complete", "encode"}
	if len(hooks.events) != len(want) {
		t.Fatalf("events = %v, want %v", hooks.events, want)
	}
	for i := range want {
		if hooks.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, hooks.events[i], want[i])
		}
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		axis  pixelsort.Axis
		angle int
		want  int
	}{
		{pixelsort.AxisRows, 0, 5},
		{pixelsort.AxisColumns, 0, 10},
		{pixelsort.AxisRotatedRows, 90, 10},
	}
	for _, tt := range tests {
		if got := lineCount(tt.axis, 10, 5, tt.angle); got != tt.want {
			t.Errorf("lineCount(%s, 10x5, %d) = %d, want %d", tt.axis, tt.angle, got, tt.want)
		}
	}
}
