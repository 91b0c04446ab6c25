package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/matzehuels/pixelsort/pkg/buildinfo"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/observability"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// Response headers.
const (
	HeaderCache     = "X-Cache"
	HeaderImageSize = "X-Image-Size"
)

type errorBody struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

type presetBody struct {
	Name    string           `json:"name"`
	Builtin bool             `json:"builtin"`
	Params  pixelsort.Params `json:"params"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	names := s.config.PresetNames()
	out := make([]presetBody, 0, len(names))
	for _, name := range names {
		p, _ := s.config.Preset(name)
		out = append(out, presetBody{Name: name, Builtin: s.config.IsBuiltin(name), Params: p})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	opts, err := s.sortOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in, err := s.readInput(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(ctx, in, opts)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(errors.ErrCodeTimeout, err, "sort timed out after %s", s.opts.Timeout)
		}
		s.writeError(w, r, err)
		return
	}

	cacheState := "miss"
	if res.CacheInfo.Hit {
		cacheState = "hit"
	}
	w.Header().Set("Content-Type", imageio.ContentType(res.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Artifact)))
	w.Header().Set(HeaderCache, cacheState)
	w.Header().Set(HeaderImageSize, strconv.Itoa(res.Width)+"x"+strconv.Itoa(res.Height))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifact)
}

// sortOptions builds pipeline options from the query string on top of the
// configured defaults.
func (s *Server) sortOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	base, err := s.config.Resolve(q.Get("preset"))
	if err != nil {
		return pipeline.Options{}, err
	}
	params, err := paramsFromQuery(base, q)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Params:  params,
		Seed:    s.config.Seed,
		Workers: s.opts.Workers,
		Format:  s.config.Format,
		Quality: s.config.Quality,
		Logger:  s.logger.With("request_id", RequestID(r.Context())),
	}
	if err := optionsFromQuery(&opts, q); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// readInput reads the image (and mask) from a raw or multipart body.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (pipeline.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return pipeline.Input{}, bodyError(err)
		}
		return pipeline.Input{Image: data}, nil
	}

	if err := r.ParseMultipartForm(s.opts.MaxBodyBytes); err != nil {
		return pipeline.Input{}, bodyError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	image, err := formFile(r.MultipartForm, "image")
	if err != nil {
		return pipeline.Input{}, err
	}
	if image == nil {
		return pipeline.Input{}, errors.New(errors.ErrCodeInvalidInput, "multipart body needs an \"image\" part")
	}
	mask, err := formFile(r.MultipartForm, "mask")
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Image: image, Mask: mask}, nil
}

// formFile reads the first file of a multipart field, or nil when absent.
func formFile(form *multipart.Form, field string) ([]byte, error) {
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read %s", field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read %s", field)
	}
	return data, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.Wrap(errors.ErrCodeImageTooLarge, err, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read request body")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)

	if stderrors.Is(err, context.Canceled) {
		s.logger.Debug("request cancelled", "id", RequestID(r.Context()))
		return
	}

	status := errors.StatusCode(err)
	body := errorBody{
		Code:      errors.GetCode(err),
		Message:   errors.UserMessage(err),
		RequestID: RequestID(r.Context()),
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "id", body.RequestID, "error", err)
		body.Code = errors.ErrCodeInternal
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
