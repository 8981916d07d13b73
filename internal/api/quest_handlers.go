package api

import (
	"net/http"
	"strings"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
)

// questDataField carries the JSON draft of a multipart quest submission.
const questDataField = "data"

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.QuestFilter{Difficulty: q.Get("difficulty")}

	if v := q.Get("created_by"); v != "" {
		id, err := services.ParseID("created_by", v)
		if err != nil {
			handleError(w, r, err)
			return
		}
		filter.CreatedBy = &id
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		handleError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		handleError(w, r, err)
		return
	}

	quests, err := s.QuestService.ListQuests(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

func (s *Server) handleGetQuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	quest, err := s.QuestService.GetQuest(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quest)
}

// handleCreateQuest accepts either a JSON draft or a multipart form whose
// "data" field holds the draft and whose files are keyed by main_picture or level id.
func (s *Server) handleCreateQuest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	creator, _ := userIDFromContext(r.Context())

	var (
		draft models.QuestDraft
		files []storage.File
	)
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			handleError(w, r, err)
			return
		}
		data := r.MultipartForm.Value[questDataField]
		if len(data) != 1 {
			handleError(w, r, errors.NewValidationError(questDataField, "must hold exactly one quest document"))
			return
		}
		if err := decodeStrict(strings.NewReader(data[0]), &draft); err != nil {
			handleError(w, r, err)
			return
		}
		opened, closeAll, err := formFiles(r.MultipartForm)
		if err != nil {
			handleError(w, r, err)
			return
		}
		defer closeAll()
		files = opened
	} else if err := decodeJSON(r, &draft); err != nil {
		handleError(w, r, err)
		return
	}

	quest, err := s.QuestService.CreateQuest(r.Context(), creator, draft, files)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("quest created: id=%s files=%d", quest.ID.Hex(), len(files))
	writeJSON(w, http.StatusCreated, quest)
}

func (s *Server) handleUpdateQuest(w http.ResponseWriter, r *http.Request) {
	actor, _ := userIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var patch models.QuestPatch
	if err := decodeJSON(r, &patch); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.QuestService.UpdateQuest(r.Context(), actor, id, patch)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRateQuest(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var body struct {
		Rating int     `json:"rating"`
		Review *string `json:"review"`
	}
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.QuestService.RateQuest(r.Context(), id, userID, body.Rating, body.Review)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuestRatings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	ratings, err := s.QuestService.QuestRatings(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratings)
}
