package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/auth"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/testutil/mocks"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef"

func newAuthService(repo *mocks.MockUserRepository) (services.AuthService, *auth.Tokens, *auth.Passwords) {
	tokens := auth.NewTokens(testSecret, time.Hour)
	passwords := auth.NewPasswords(bcrypt.MinCost)
	return services.NewAuthService(repo, tokens, passwords), tokens, passwords
}

func TestSignup_Success(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc, tokens, passwords := newAuthService(repo)
	id := primitive.NewObjectID()

	repo.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.NewNotFoundError("user", "email=a@x.com"))
	repo.On("Insert", ctx, mock.MatchedBy(func(u models.User) bool {
		ok, _ := passwords.Verify("pw", u.Password)
		return u.Name == "A" && u.Email == "a@x.com" && ok && !u.CreatedAt.IsZero()
	})).Return(id, nil)

	res, err := svc.Signup(ctx, "A", "a@x.com", "pw")
	require.NoError(t, err)

	sub, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), sub)
	assert.Equal(t, id.Hex(), res.User.ID)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	repo.AssertExpectations(t)
}

func TestSignup_EmailInUse(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc, _, _ := newAuthService(repo)

	existing := models.NewUser("A", "a@x.com", "digest", time.Now())
	repo.On("GetByEmail", ctx, "a@x.com").Return(&existing, nil)

	_, err := svc.Signup(ctx, "B", "A@X.com ", "other")

	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSignup_RaceCaughtByUniqueIndex(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc, _, _ := newAuthService(repo)

	repo.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.NewNotFoundError("user", "email=a@x.com"))
	repo.On("Insert", ctx, mock.Anything).Return(primitive.NilObjectID, errors.NewConflictError("user already exists"))

	_, err := svc.Signup(ctx, "A", "a@x.com", "pw")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConflict, appErr.Code)
	assert.Equal(t, "email already in use", appErr.Message)
}

func TestSignup_InvalidInput(t *testing.T) {
	repo := new(mocks.MockUserRepository)
	svc, _, _ := newAuthService(repo)

	_, err := svc.Signup(context.Background(), " ", "not-an-email", "")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
	var fields []string
	for _, f := range appErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"name", "email", "password"}, fields)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestSignup_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc, _, _ := newAuthService(repo)

	repo.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.NewStorageUnavailable(context.DeadlineExceeded))

	_, err := svc.Signup(ctx, "A", "a@x.com", "pw")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageUnavailable))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc, tokens, passwords := newAuthService(repo)

	digest, err := passwords.Hash("pw")
	require.NoError(t, err)
	user := models.NewUser("A", "a@x.com", digest, time.Now())
	user.ID = primitive.NewObjectID()

	repo.On("GetByEmail", ctx, "a@x.com").Return(&user, nil)
	repo.On("GetByEmail", ctx, "b@x.com").Return(nil, errors.NewNotFoundError("user", "email=b@x.com"))

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "a@x.com", "wrong")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "b@x.com", "pw")
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
	})

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, " A@X.com ", "pw")
		require.NoError(t, err)
		sub, err := tokens.Verify(res.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), sub)
		assert.Equal(t, "A", res.User.Name)
	})
}
