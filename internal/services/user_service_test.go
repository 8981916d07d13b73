package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
	"github.com/vytor/quests/internal/testutil"
	"github.com/vytor/quests/internal/testutil/mocks"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userFixture struct {
	users   *mocks.MockUserRepository
	quests  *mocks.MockQuestRepository
	uploads *mocks.MockUploadService
	svc     services.UserService
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:   new(mocks.MockUserRepository),
		quests:  new(mocks.MockQuestRepository),
		uploads: new(mocks.MockUploadService),
	}
	f.svc = services.NewUserService(f.users, f.quests, f.uploads)
	return f
}

func TestGetUser_HidesPassword(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	user := testutil.NewUser("Ada", "ada@x.com")
	user.ID = primitive.NewObjectID()
	f.users.On("Get", ctx, user.ID).Return(&user, nil)

	view, err := f.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), view.ID)
	assert.Equal(t, "ada@x.com", view.Email)
	assert.Empty(t, view.QuestHistory)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	id := primitive.NewObjectID()

	t.Run("another user", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.svc.UpdateUser(ctx, primitive.NewObjectID(), id, models.UserPatch{Name: testutil.Ptr("Eve")}, nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty patch", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.svc.UpdateUser(ctx, id, id, models.UserPatch{}, nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	})

	t.Run("picture is stored first", func(t *testing.T) {
		f := newUserFixture()
		picture := &storage.File{Name: "me.png", Content: strings.NewReader("png")}
		f.uploads.On("Store", ctx, mock.MatchedBy(func(files []storage.File) bool {
			return len(files) == 1 && files[0].Field == services.ProfilePictureField
		})).Return(map[string][]string{services.ProfilePictureField: {"http://media/me.png"}}, nil)
		f.users.On("Update", ctx, id, models.UserPatch{ProfilePicture: testutil.Ptr("http://media/me.png")}).
			Return(models.NewUpdateResult(1, 1), nil)

		res, err := f.svc.UpdateUser(ctx, id, id, models.UserPatch{}, picture)
		require.NoError(t, err)
		assert.Equal(t, models.StatusUpdated, res.Status)
	})

	t.Run("invalid name keeps picture unstored", func(t *testing.T) {
		f := newUserFixture()
		picture := &storage.File{Name: "me.png", Content: strings.NewReader("png")}

		_, err := f.svc.UpdateUser(ctx, id, id, models.UserPatch{Name: testutil.Ptr("")}, picture)

		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
		assert.Equal(t, "name", appErr.Fields[0].Field)
		f.uploads.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("same values", func(t *testing.T) {
		f := newUserFixture()
		patch := models.UserPatch{Name: testutil.Ptr("Ada")}
		f.users.On("Update", ctx, id, patch).Return(models.NewUpdateResult(1, 0), nil)

		res, err := f.svc.UpdateUser(ctx, id, id, patch, nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNoChanges, res.Status)
		assert.Equal(t, "No changes were made.", res.Message)
	})
}

func TestAppendQuestHistory(t *testing.T) {
	ctx := context.Background()
	userID, questID := primitive.NewObjectID(), primitive.NewObjectID()
	input := services.HistoryInput{QuestID: questID.Hex(), Result: testutil.Ptr(7), Completed: true, TimeSpent: testutil.Ptr(12.5)}

	t.Run("records attempt and counts play", func(t *testing.T) {
		f := newUserFixture()
		quest := testutil.NewQuest(primitive.NewObjectID())
		before := time.Now().UTC().Add(-time.Second)

		f.quests.On("Get", ctx, questID).Return(&quest, nil)
		f.users.On("PushQuestHistory", ctx, userID, mock.MatchedBy(func(e models.QuestHistoryEntry) bool {
			return e.QuestID == questID && *e.Result == 7 && e.Completed && e.AttemptedAt.After(before)
		})).Return(models.NewUpdateResult(1, 1), nil)
		f.quests.On("IncrementTimesPlayed", ctx, questID).Return(models.NewUpdateResult(1, 1), nil)

		_, err := f.svc.AppendQuestHistory(ctx, userID, userID, input)
		require.NoError(t, err)
		f.users.AssertExpectations(t)
		f.quests.AssertExpectations(t)
	})

	t.Run("play counter failure keeps the saved attempt", func(t *testing.T) {
		f := newUserFixture()
		quest := testutil.NewQuest(primitive.NewObjectID())

		f.quests.On("Get", ctx, questID).Return(&quest, nil)
		f.users.On("PushQuestHistory", ctx, userID, mock.Anything).Return(models.NewUpdateResult(1, 1), nil)
		f.quests.On("IncrementTimesPlayed", ctx, questID).
			Return(models.UpdateResult{}, errors.NewWriteFailed(nil, assert.AnError))

		res, err := f.svc.AppendQuestHistory(ctx, userID, userID, input)
		require.NoError(t, err)
		assert.Equal(t, models.StatusUpdated, res.Status)
		f.users.AssertNumberOfCalls(t, "PushQuestHistory", 1)
	})

	t.Run("another user", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.svc.AppendQuestHistory(ctx, primitive.NewObjectID(), userID, input)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	})

	t.Run("malformed quest id", func(t *testing.T) {
		f := newUserFixture()
		_, err := f.svc.AppendQuestHistory(ctx, userID, userID, services.HistoryInput{QuestID: "nope"})

		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
		assert.Equal(t, "quest_id", appErr.Fields[0].Field)
	})

	t.Run("missing quest", func(t *testing.T) {
		f := newUserFixture()
		f.quests.On("Get", ctx, questID).Return(nil, errors.NewNotFoundError("quest", questID.Hex()))

		_, err := f.svc.AppendQuestHistory(ctx, userID, userID, input)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
		f.users.AssertNotCalled(t, "PushQuestHistory", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestQuestHistory_MissingUser(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()
	id := primitive.NewObjectID()
	f.users.On("Get", ctx, id).Return(nil, errors.NewNotFoundError("user", id.Hex()))

	_, err := f.svc.QuestHistory(ctx, id)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}
