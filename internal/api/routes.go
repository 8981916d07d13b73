package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quests/internal/errors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/auth", func(r chi.Router) {
		if s.AuthLimiter != nil {
			r.Use(s.AuthLimiter.Middleware)
		}
		r.Post("/signup/email", s.handleSignup)
		r.Post("/login/email", s.handleLogin)
	})

	r.Get("/quests", s.handleListQuests)
	r.Get("/quests/{id}", s.handleGetQuest)
	r.Get("/quests/{id}/ratings", s.handleQuestRatings)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Put("/upload", s.handleUpload)

		r.Post("/quests", s.handleCreateQuest)
		r.Patch("/quests/{id}", s.handleUpdateQuest)
		r.Post("/quests/{id}/ratings", s.handleRateQuest)

		r.Get("/users/{id}", s.handleGetUser)
		r.Patch("/users/{id}", s.handleUpdateUser)
		r.Get("/users/{id}/history", s.handleQuestHistory)
		r.Post("/users/{id}/history", s.handleAppendHistory)
	})

	if s.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", s.Media))
	}
	return r
}
