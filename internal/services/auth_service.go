package services

import (
	"context"
	"strings"
	"time"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"github.com/vytor/quests/internal/validation"
)

// TokenIssuer signs tokens for a subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string          `json:"token"`
	User  models.UserView `json:"user"`
}

// AuthService handles signup and login
type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokens    TokenIssuer
	passwords PasswordHasher
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer, passwords PasswordHasher) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens, passwords: passwords}
}

const msgEmailInUse = "email already in use"

func (s *authService) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	log := logger.FromContext(ctx)
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	log.Debug("signing up: email=%s", email)

	var fields []errors.FieldError
	if name == "" {
		fields = append(fields, errors.FieldError{Field: "name", Reason: "is required"})
	}
	if err := validation.Email(email); err != nil {
		fields = append(fields, errors.FieldError{Field: "email", Reason: "must be a valid email address"})
	}
	if password == "" {
		fields = append(fields, errors.FieldError{Field: "password", Reason: "is required"})
	}
	if len(fields) > 0 {
		return nil, errors.NewValidationFailed(fields...)
	}

	// The unique index still catches a signup racing this check.
	_, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		log.Debug("email already registered: %s", email)
		return nil, errors.NewConflictError(msgEmailInUse)
	case !errors.IsCode(err, errors.ErrCodeNotFound):
		log.Error("failed to check email: %v", err)
		return nil, errors.Wrap(err)
	}

	digest, err := s.passwords.Hash(password)
	if err != nil {
		log.Error("failed to hash password: %v", err)
		return nil, errors.NewInternalError(err)
	}

	user := models.NewUser(name, email, digest, time.Now().UTC().Truncate(time.Millisecond))
	id, err := s.userRepo.Insert(ctx, user)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			return nil, errors.NewConflictError(msgEmailInUse)
		}
		log.Error("failed to insert user: %v", err)
		return nil, errors.Wrap(err)
	}
	user.ID = id

	log.Info("user signed up: id=%s", id.Hex())
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	log := logger.FromContext(ctx)
	email = normalizeEmail(email)
	log.Debug("logging in: email=%s", email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, errors.NewUnauthorizedError("wrong credentials")
	}
	if err != nil {
		log.Error("failed to load user: %v", err)
		return nil, errors.Wrap(err)
	}

	ok, err := s.passwords.Verify(password, user.Password)
	if err != nil {
		log.Error("failed to verify password for user %s: %v", user.ID.Hex(), err)
		return nil, errors.NewInternalError(err)
	}
	if !ok {
		log.Debug("wrong password for user %s", user.ID.Hex())
		return nil, errors.NewUnauthorizedError("wrong credentials")
	}

	return s.issue(*user)
}

func (s *authService) issue(user models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user.View()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
