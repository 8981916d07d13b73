package repository

import (
	"context"

	"github.com/vytor/quests/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository handles user data access
type UserRepository interface {
	Insert(ctx context.Context, user models.User, opts ...WriteOption) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (models.UpdateResult, error)
	AddCreatedQuest(ctx context.Context, userID, questID primitive.ObjectID) (models.UpdateResult, error)
	PushQuestHistory(ctx context.Context, userID primitive.ObjectID, entry models.QuestHistoryEntry) (models.UpdateResult, error)
	QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error)
}

// QuestRepository handles quest data access
type QuestRepository interface {
	Insert(ctx context.Context, quest models.Quest, opts ...WriteOption) (primitive.ObjectID, error)
	InsertBatch(ctx context.Context, quests []models.Quest, opts ...WriteOption) ([]primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Quest, error)
	List(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error)
	AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) (models.UpdateResult, error)
	Ratings(ctx context.Context, id primitive.ObjectID) ([]models.RatingView, error)
	IncrementTimesPlayed(ctx context.Context, id primitive.ObjectID) (models.UpdateResult, error)
}
