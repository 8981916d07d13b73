package api

import (
	"net/http"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
)

const uploadField = "files"

// handleUpload stores every file of the "files" field and reports each outcome.
// The response is 200 even when some files fail; each result names its error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if !isMultipart(r) {
		handleError(w, r, errors.NewBadRequestError("expected multipart/form-data"))
		return
	}
	if err := s.parseMultipart(w, r); err != nil {
		handleError(w, r, err)
		return
	}

	files, closeAll, err := formFiles(r.MultipartForm, uploadField)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer closeAll()
	if len(files) == 0 {
		handleError(w, r, errors.NewValidationError(uploadField, "no files uploaded"))
		return
	}

	results := s.UploadService.UploadFiles(r.Context(), files)
	log.Debug("uploaded %d files", len(results))
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
