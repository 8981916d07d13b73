package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultMaxUploadMB = 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Default().Warn("failed to encode response: %v", err)
	}
}

// decodeJSON decodes exactly one JSON value and rejects unknown fields.
func decodeJSON(r *http.Request, v any) error {
	return decodeStrict(r.Body, v)
}

func decodeStrict(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if appErr, ok := errors.As(err); ok {
			return appErr
		}
		return errors.NewBadRequestError(fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return errors.NewBadRequestError("invalid request body: trailing data")
	}
	return nil
}

func pathID(r *http.Request) (primitive.ObjectID, error) {
	return services.ParseID("id", chi.URLParam(r, "id"))
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewBadRequestError(fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

// parseMultipart reads a multipart form bounded by the upload limit.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		return errors.NewBadRequestError(fmt.Sprintf("invalid multipart form: %v", err))
	}
	return nil
}

// formFiles opens every file of the parsed form. Fields not listed in only are
// skipped when only is non-empty. The returned func closes all of them.
func formFiles(form *multipart.Form, only ...string) ([]storage.File, func(), error) {
	var (
		files   []storage.File
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	allowed := make(map[string]bool, len(only))
	for _, f := range only {
		allowed[f] = true
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		if len(allowed) == 0 || allowed[field] {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, h := range form.File[field] {
			f, err := h.Open()
			if err != nil {
				closeAll()
				return nil, func() {}, errors.NewBadRequestError(fmt.Sprintf("cannot read file %q", h.Filename))
			}
			closers = append(closers, f)
			files = append(files, storage.File{Field: field, Name: h.Filename, Content: f})
		}
	}
	return files, closeAll, nil
}
