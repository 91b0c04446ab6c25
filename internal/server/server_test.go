package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pixelsort/pkg/cache"
	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/observability"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error { return nil }
func (c *memCache) Close() error                               { return nil }

var _ cache.Cache = (*memCache)(nil)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(&memCache{data: map[string][]byte{}}, nil, logger)
	return New(runner, config.Default(), logger, opts)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(250 - x*20)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, Options{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	var body struct {
		Status string `json:"status"`
		Build  struct {
			Version string `json:"version"`
		} `json:"build"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Build.Version)
}

func TestRequestIDPassthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "trace-123")
	rec := do(newTestServer(t, Options{}), req)
	assert.Equal(t, "trace-123", rec.Header().Get(HeaderRequestID))
}

func TestPresets(t *testing.T) {
	rec := do(newTestServer(t, Options{}), httptest.NewRequest(http.MethodGet, "/v1/presets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var presets []presetBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&presets))
	require.NotEmpty(t, presets)

	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
		assert.True(t, p.Builtin)
	}
	assert.Contains(t, names, "melt")
	assert.Contains(t, names, "default")
}

func TestSortRawBody(t *testing.T) {
	s := newTestServer(t, Options{})
	body := testPNG(t, 6, 2)

	req := httptest.NewRequest(http.MethodPost, "/v1/sort?mode=none&format=png", bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/png")
	rec := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rec.Header().Get(HeaderCache))
	assert.Equal(t, "6x2", rec.Header().Get(HeaderImageSize))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	prev := uint32(0)
	for x := 0; x < 6; x++ {
		r, _, _, _ := img.At(x, 0).RGBA()
		assert.GreaterOrEqual(t, r, prev, "x=%d", x)
		prev = r
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/sort?mode=none&format=png", bytes.NewReader(body))
	rec = do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get(HeaderCache))
}

func TestSortMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "in.png")
	require.NoError(t, err)
	_, err = part.Write(testPNG(t, 6, 2))
	require.NoError(t, err)

	var mask bytes.Buffer
	require.NoError(t, png.Encode(&mask, image.NewGray(image.Rect(0, 0, 6, 2))))
	part, err = mw.CreateFormFile("mask", "mask.png")
	require.NoError(t, err)
	_, err = part.Write(mask.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sort?preset=default&mode=none&format=bmp", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(newTestServer(t, Options{}), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/bmp", rec.Header().Get("Content-Type"))
}

func TestSortMultipartMissingImage(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no image here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sort", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(newTestServer(t, Options{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidInput, decodeError(t, rec).Code)
}

func TestSortErrors(t *testing.T) {
	img := testPNG(t, 4, 4)
	tests := []struct {
		name   string
		query  string
		body   []byte
		status int
		code   errors.Code
	}{
		{"unknown preset", "preset=nope", img, http.StatusNotFound, errors.ErrCodePresetNotFound},
		{"bad key", "key=chroma", img, http.StatusBadRequest, errors.ErrCodeInvalidParams},
		{"bad int", "angle=left", img, http.StatusBadRequest, errors.ErrCodeInvalidParams},
		{"bad bool", "reverse=maybe", img, http.StatusBadRequest, errors.ErrCodeInvalidParams},
		{"bad seed", "seed=-1", img, http.StatusBadRequest, errors.ErrCodeInvalidParams},
		{"bad format", "format=svg", img, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"webp output", "format=webp", img, http.StatusUnsupportedMediaType, errors.ErrCodeUnsupported},
		{"empty body", "", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not an image", "", []byte("hello"), http.StatusUnsupportedMediaType, errors.ErrCodeUnsupported},
	}
	s := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sort?"+tt.query, bytes.NewReader(tt.body))
			rec := do(s, req)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, rec.Header().Get(HeaderRequestID), body.RequestID)
		})
	}
}

func TestSortBodyTooLarge(t *testing.T) {
	s := newTestServer(t, Options{MaxBodyBytes: 16})
	req := httptest.NewRequest(http.MethodPost, "/v1/sort", bytes.NewReader(testPNG(t, 4, 4)))
	rec := do(s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, errors.ErrCodeImageTooLarge, decodeError(t, rec).Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/v2/sort", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/v1/sort", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParamsFromQuery(t *testing.T) {
	q := url.Values{
		"direction": {"v"},
		"key":       {"hue"},
		"mode":      {"waves"},
		"lower":     {"10"},
		"upper":     {"5"},
		"reverse":   {"true"},
		"span-min":  {"3"},
		"angle":     {"-45"},
	}
	p, err := paramsFromQuery(pixelsort.DefaultParams(), q)
	require.NoError(t, err)

	assert.Equal(t, pixelsort.Vertical, p.Direction)
	assert.Equal(t, pixelsort.Hue, p.SortKey)
	assert.Equal(t, pixelsort.Waves, p.IntervalMode)
	assert.Equal(t, 10, p.LowerThreshold)
	assert.Equal(t, 10, p.UpperThreshold, "inverted thresholds are clamped")
	assert.True(t, p.Reverse)
	assert.Equal(t, 3, p.SpanMin)
	assert.Equal(t, 315, p.Angle)
	assert.Equal(t, 0, p.Jitter, "unset fields keep the base value")
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	mu       sync.Mutex
	statuses []int
	errs     int
}

func (h *httpRecorder) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *httpRecorder) OnError(context.Context, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs++
}

func TestHTTPHooks(t *testing.T) {
	hooks := &httpRecorder{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	s := newTestServer(t, Options{})
	do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	do(s, httptest.NewRequest(http.MethodPost, "/v1/sort?preset=nope", nil))

	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, hooks.statuses)
	assert.Equal(t, 1, hooks.errs)
}
