package services

import (
	"context"
	"time"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"github.com/vytor/quests/internal/storage"
	"github.com/vytor/quests/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfilePictureField is the upload field of a user's picture.
const ProfilePictureField = "profile_picture"

// HistoryInput is one attempt reported by a client. The server sets the time.
type HistoryInput struct {
	QuestID   string   `json:"quest_id"`
	Result    *int     `json:"result,omitempty"`
	Completed bool     `json:"completed"`
	TimeSpent *float64 `json:"time_spent,omitempty"`
}

// UserService handles user-related business logic
type UserService interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.UserView, error)
	UpdateUser(ctx context.Context, actorID, userID primitive.ObjectID, patch models.UserPatch, picture *storage.File) (models.UpdateResult, error)
	AppendQuestHistory(ctx context.Context, actorID, userID primitive.ObjectID, input HistoryInput) (models.UpdateResult, error)
	QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error)
}

type userService struct {
	userRepo  repository.UserRepository
	questRepo repository.QuestRepository
	uploads   UploadService
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, questRepo repository.QuestRepository, uploads UploadService) UserService {
	return &userService{userRepo: userRepo, questRepo: questRepo, uploads: uploads}
}

func (s *userService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.UserView, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting user: id=%s", id.Hex())

	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	view := user.View()
	return &view, nil
}

func (s *userService) UpdateUser(ctx context.Context, actorID, userID primitive.ObjectID, patch models.UserPatch, picture *storage.File) (models.UpdateResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating user: id=%s", userID.Hex())

	if actorID != userID {
		log.Warn("user %s tried to edit user %s", actorID.Hex(), userID.Hex())
		return models.UpdateResult{}, errors.NewUnauthorizedError("cannot edit another user")
	}

	if picture == nil && patch.IsEmpty() {
		return models.UpdateResult{}, errors.NewValidationError("patch", "no fields to update")
	}
	if err := validation.Validate(validation.UserUpdate, patch).Err(); err != nil {
		return models.UpdateResult{}, err
	}

	if picture != nil {
		picture.Field = ProfilePictureField
		urls, err := s.uploads.Store(ctx, []storage.File{*picture})
		if err != nil {
			return models.UpdateResult{}, err
		}
		url := urls[ProfilePictureField][0]
		patch.ProfilePicture = &url
	}

	res, err := s.userRepo.Update(ctx, userID, patch)
	if err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}
	return res, nil
}

func (s *userService) AppendQuestHistory(ctx context.Context, actorID, userID primitive.ObjectID, input HistoryInput) (models.UpdateResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("appending quest history: user=%s quest=%s", userID.Hex(), input.QuestID)

	if actorID != userID {
		log.Warn("user %s tried to write history of user %s", actorID.Hex(), userID.Hex())
		return models.UpdateResult{}, errors.NewUnauthorizedError("cannot edit another user")
	}

	questID, err := ParseID("quest_id", input.QuestID)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if _, err := s.questRepo.Get(ctx, questID); err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}

	entry := models.QuestHistoryEntry{
		QuestID:     questID,
		Result:      input.Result,
		Completed:   input.Completed,
		TimeSpent:   input.TimeSpent,
		AttemptedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	res, err := s.userRepo.PushQuestHistory(ctx, userID, entry)
	if err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}

	if _, err := s.questRepo.IncrementTimesPlayed(ctx, questID); err != nil {
		log.Warn("history saved but play of quest %s not counted: %v", questID.Hex(), err)
	}
	return res, nil
}

func (s *userService) QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting quest history: user=%s", userID.Hex())

	if _, err := s.userRepo.Get(ctx, userID); err != nil {
		return nil, errors.Wrap(err)
	}
	history, err := s.userRepo.QuestHistory(ctx, userID)
	if err != nil {
		log.Error("failed to aggregate quest history: %v", err)
		return nil, errors.Wrap(err)
	}
	return history, nil
}
