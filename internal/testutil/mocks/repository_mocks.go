package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Insert(ctx context.Context, user models.User, opts ...repository.WriteOption) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockUserRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (models.UpdateResult, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockUserRepository) AddCreatedQuest(ctx context.Context, userID, questID primitive.ObjectID) (models.UpdateResult, error) {
	args := m.Called(ctx, userID, questID)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockUserRepository) PushQuestHistory(ctx context.Context, userID primitive.ObjectID, entry models.QuestHistoryEntry) (models.UpdateResult, error) {
	args := m.Called(ctx, userID, entry)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockUserRepository) QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuestHistoryView), args.Error(1)
}

// MockQuestRepository is a mock implementation of repository.QuestRepository
type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) Insert(ctx context.Context, quest models.Quest, opts ...repository.WriteOption) (primitive.ObjectID, error) {
	args := m.Called(ctx, quest)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockQuestRepository) InsertBatch(ctx context.Context, quests []models.Quest, opts ...repository.WriteOption) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, quests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}

func (m *MockQuestRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quest), args.Error(1)
}

func (m *MockQuestRepository) List(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Quest), args.Error(1)
}

func (m *MockQuestRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockQuestRepository) AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) (models.UpdateResult, error) {
	args := m.Called(ctx, id, rating)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockQuestRepository) Ratings(ctx context.Context, id primitive.ObjectID) ([]models.RatingView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatingView), args.Error(1)
}

func (m *MockQuestRepository) IncrementTimesPlayed(ctx context.Context, id primitive.ObjectID) (models.UpdateResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}
