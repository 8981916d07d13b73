package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUploader is a mock implementation of storage.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, f storage.File) (string, error) {
	args := m.Called(ctx, f)
	return args.String(0), args.Error(1)
}

// MockUploadService is a mock implementation of services.UploadService
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) UploadFiles(ctx context.Context, files []storage.File) []services.UploadResult {
	args := m.Called(ctx, files)
	return args.Get(0).([]services.UploadResult)
}

func (m *MockUploadService) Store(ctx context.Context, files []storage.File) (map[string][]string, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

// MockAuthService is a mock implementation of services.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, name, email, password string) (*services.AuthResult, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

// MockQuestService is a mock implementation of services.QuestService
type MockQuestService struct {
	mock.Mock
}

func (m *MockQuestService) CreateQuest(ctx context.Context, creatorID primitive.ObjectID, draft models.QuestDraft, files []storage.File) (*models.Quest, error) {
	args := m.Called(ctx, creatorID, draft, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quest), args.Error(1)
}

func (m *MockQuestService) GetQuest(ctx context.Context, id primitive.ObjectID) (*models.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quest), args.Error(1)
}

func (m *MockQuestService) ListQuests(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Quest), args.Error(1)
}

func (m *MockQuestService) UpdateQuest(ctx context.Context, actorID, questID primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error) {
	args := m.Called(ctx, actorID, questID, patch)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockQuestService) RateQuest(ctx context.Context, questID, userID primitive.ObjectID, rating int, review *string) (models.UpdateResult, error) {
	args := m.Called(ctx, questID, userID, rating, review)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockQuestService) QuestRatings(ctx context.Context, questID primitive.ObjectID) ([]models.RatingView, error) {
	args := m.Called(ctx, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatingView), args.Error(1)
}

// MockUserService is a mock implementation of services.UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.UserView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserView), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actorID, userID primitive.ObjectID, patch models.UserPatch, picture *storage.File) (models.UpdateResult, error) {
	args := m.Called(ctx, actorID, userID, patch, picture)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockUserService) AppendQuestHistory(ctx context.Context, actorID, userID primitive.ObjectID, input services.HistoryInput) (models.UpdateResult, error) {
	args := m.Called(ctx, actorID, userID, input)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockUserService) QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuestHistoryView), args.Error(1)
}
