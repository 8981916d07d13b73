package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
)

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []errors.FieldError `json:"fields,omitempty"`
	Write   *errors.WriteReport `json:"write,omitempty"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(map[string]errorBody{
		"error": {
			Code:    appErr.Code,
			Message: appErr.Message,
			Fields:  appErr.Fields,
			Write:   appErr.Write,
		},
	})
}
