package api

import (
	"net/http"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
)

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	user, err := s.UserService.GetUser(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser accepts a JSON patch, or a multipart form with an optional
// "name" value and an optional "profile_picture" file.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := userIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var (
		patch   models.UserPatch
		picture *storage.File
	)
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			handleError(w, r, err)
			return
		}
		if names := r.MultipartForm.Value["name"]; len(names) > 0 {
			patch.Name = &names[0]
		}
		files, closeAll, err := formFiles(r.MultipartForm, services.ProfilePictureField)
		if err != nil {
			handleError(w, r, err)
			return
		}
		defer closeAll()
		switch len(files) {
		case 0:
		case 1:
			picture = &files[0]
		default:
			handleError(w, r, errors.NewValidationError(services.ProfilePictureField, "accepts a single file"))
			return
		}
	} else if err := decodeJSON(r, &patch); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.UserService.UpdateUser(r.Context(), actor, id, patch, picture)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuestHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	history, err := s.UserService.QuestHistory(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := userIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var input services.HistoryInput
	if err := decodeJSON(r, &input); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.UserService.AppendQuestHistory(r.Context(), actor, id, input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
