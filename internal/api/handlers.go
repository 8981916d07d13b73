package api

import (
	"context"
	"net/http"

	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/services"
)

// TokenVerifier resolves a bearer token to the id of the user it was issued to.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	AuthService   services.AuthService
	QuestService  services.QuestService
	UserService   services.UserService
	UploadService services.UploadService
	Tokens        TokenVerifier
	Store         Pinger
	Media         http.Handler
	AuthLimiter   *IPLimiter
	MaxUploadMB   int
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.AuthService.Signup(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("user signed up: id=%s", res.User.ID)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.AuthService.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("user logged in: id=%s", res.User.ID)
	writeJSON(w, http.StatusOK, res)
}
