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

// MainPictureField is the upload field holding a quest's cover image. Any
// other field must name a level id.
const MainPictureField = "main_picture"

// QuestService handles quest-related business logic
type QuestService interface {
	CreateQuest(ctx context.Context, creatorID primitive.ObjectID, draft models.QuestDraft, files []storage.File) (*models.Quest, error)
	GetQuest(ctx context.Context, id primitive.ObjectID) (*models.Quest, error)
	ListQuests(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error)
	UpdateQuest(ctx context.Context, actorID, questID primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error)
	RateQuest(ctx context.Context, questID, userID primitive.ObjectID, rating int, review *string) (models.UpdateResult, error)
	QuestRatings(ctx context.Context, questID primitive.ObjectID) ([]models.RatingView, error)
}

type questService struct {
	questRepo repository.QuestRepository
	userRepo  repository.UserRepository
	uploads   UploadService
}

// NewQuestService creates a new QuestService
func NewQuestService(questRepo repository.QuestRepository, userRepo repository.UserRepository, uploads UploadService) QuestService {
	return &questService{questRepo: questRepo, userRepo: userRepo, uploads: uploads}
}

func (s *questService) CreateQuest(ctx context.Context, creatorID primitive.ObjectID, draft models.QuestDraft, files []storage.File) (*models.Quest, error) {
	log := logger.FromContext(ctx).WithField("creator", creatorID.Hex())
	log.Debug("creating quest: name=%s levels=%d files=%d", draft.Name, len(draft.Levels), len(files))

	if err := checkUploadFields(draft.Levels, files); err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	if err := validation.Validate(validation.QuestCreate, models.NewQuest(draft, creatorID, createdAt)).Err(); err != nil {
		log.Debug("quest rejected: %v", err)
		return nil, err
	}
	exists, err := s.userRepo.Exists(ctx, creatorID)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	if !exists {
		return nil, errors.NewNotFoundError("user", creatorID.Hex())
	}

	urls, err := s.uploads.Store(ctx, files)
	if err != nil {
		return nil, err
	}
	if pics := urls[MainPictureField]; len(pics) > 0 {
		draft.MainPicture = &pics[0]
	}
	levels := make(models.Levels, len(draft.Levels))
	for i, lvl := range draft.Levels {
		levels[i] = lvl
		if pics := urls[lvl.LevelID()]; len(pics) > 0 {
			levels[i] = models.WithPictures(lvl, pics...)
		}
	}
	draft.Levels = levels

	quest := models.NewQuest(draft, creatorID, createdAt)
	id, err := s.questRepo.Insert(ctx, quest)
	if err != nil {
		log.Debug("quest rejected: %v", err)
		return nil, errors.Wrap(err)
	}
	quest.ID = id

	if _, err := s.userRepo.AddCreatedQuest(ctx, creatorID, id); err != nil {
		log.Error("failed to link quest %s to creator: %v", id.Hex(), err)
		return nil, errors.Wrap(err)
	}

	log.Info("quest created: id=%s", id.Hex())
	return &quest, nil
}

// checkUploadFields rejects files whose field names neither the cover nor a level.
func checkUploadFields(levels models.Levels, files []storage.File) error {
	known := map[string]bool{MainPictureField: true}
	for _, lvl := range levels {
		known[lvl.LevelID()] = true
	}

	var fields []errors.FieldError
	covers := 0
	for i, f := range files {
		if f.Field == MainPictureField {
			covers++
		}
		if !known[f.Field] {
			fields = append(fields, errors.FieldError{Record: i, Field: f.Field, Reason: "must be main_picture or a level id"})
		}
	}
	if covers > 1 {
		fields = append(fields, errors.FieldError{Field: MainPictureField, Reason: "accepts a single file"})
	}
	if len(fields) > 0 {
		return errors.NewValidationFailed(fields...)
	}
	return nil
}

func (s *questService) GetQuest(ctx context.Context, id primitive.ObjectID) (*models.Quest, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting quest: id=%s", id.Hex())

	quest, err := s.questRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err)
	}
	return quest, nil
}

func (s *questService) ListQuests(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing quests: difficulty=%q limit=%d offset=%d", filter.Difficulty, filter.Limit, filter.Offset)

	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, errors.NewBadRequestError("limit and offset cannot be negative")
	}
	if filter.Difficulty != "" && !validDifficulty(filter.Difficulty) {
		return nil, errors.NewValidationError("difficulty", "must be one of easy medium hard")
	}

	quests, err := s.questRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list quests: %v", err)
		return nil, errors.Wrap(err)
	}
	return quests, nil
}

func (s *questService) UpdateQuest(ctx context.Context, actorID, questID primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating quest: id=%s actor=%s", questID.Hex(), actorID.Hex())

	if patch.IsEmpty() {
		return models.UpdateResult{}, errors.NewValidationError("patch", "no fields to update")
	}

	quest, err := s.questRepo.Get(ctx, questID)
	if err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}
	if quest.CreatedBy != actorID {
		log.Warn("user %s tried to edit quest %s", actorID.Hex(), questID.Hex())
		return models.UpdateResult{}, errors.NewUnauthorizedError("only the creator can edit this quest")
	}

	res, err := s.questRepo.Update(ctx, questID, patch)
	if err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}
	return res, nil
}

func (s *questService) RateQuest(ctx context.Context, questID, userID primitive.ObjectID, rating int, review *string) (models.UpdateResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("rating quest: id=%s user=%s rating=%d", questID.Hex(), userID.Hex(), rating)

	res, err := s.questRepo.AddRating(ctx, questID, models.Rating{UserID: userID, Rating: rating, Review: review})
	if err != nil {
		return models.UpdateResult{}, errors.Wrap(err)
	}
	return res, nil
}

func (s *questService) QuestRatings(ctx context.Context, questID primitive.ObjectID) ([]models.RatingView, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting ratings: quest=%s", questID.Hex())

	if _, err := s.questRepo.Get(ctx, questID); err != nil {
		return nil, errors.Wrap(err)
	}
	ratings, err := s.questRepo.Ratings(ctx, questID)
	if err != nil {
		log.Error("failed to aggregate ratings: %v", err)
		return nil, errors.Wrap(err)
	}
	return ratings, nil
}

func validDifficulty(d string) bool {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}
