package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/api"
	"github.com/vytor/quests/internal/auth"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/services"
	"github.com/vytor/quests/internal/storage"
	"github.com/vytor/quests/internal/testutil"
	"github.com/vytor/quests/internal/testutil/mocks"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "0123456789abcdef"

type pinger func(context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

type harness struct {
	auth    *mocks.MockAuthService
	quests  *mocks.MockQuestService
	users   *mocks.MockUserService
	uploads *mocks.MockUploadService
	tokens  *auth.Tokens
	handler http.Handler
}

func newHarness(t *testing.T, opts ...func(*api.Server)) *harness {
	t.Helper()
	h := &harness{
		auth:    new(mocks.MockAuthService),
		quests:  new(mocks.MockQuestService),
		users:   new(mocks.MockUserService),
		uploads: new(mocks.MockUploadService),
		tokens:  auth.NewTokens(secret, time.Hour),
	}
	srv := &api.Server{
		AuthService:   h.auth,
		QuestService:  h.quests,
		UserService:   h.users,
		UploadService: h.uploads,
		Tokens:        h.tokens,
		Store:         pinger(func(context.Context) error { return nil }),
	}
	for _, opt := range opts {
		opt(srv)
	}
	h.handler = srv.Routes()
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) bearer(t *testing.T, req *http.Request, userID primitive.ObjectID) *http.Request {
	token, err := h.tokens.Issue(userID.Hex())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type errorResponse struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  []errors.FieldError `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t, func(s *api.Server) {
		s.Store = pinger(func(context.Context) error { return errors.NewStorageUnavailable(stderrors.New("down")) })
	})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeNotFound, decodeError(t, rec).Error.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSignup(t *testing.T) {
	h := newHarness(t)
	view := models.UserView{ID: primitive.NewObjectID().Hex(), Name: "A", Email: "a@x.com"}
	h.auth.On("Signup", mock.Anything, "A", "a@x.com", "pw").Return(&services.AuthResult{Token: "t", User: view}, nil)
	h.auth.On("Signup", mock.Anything, "B", "a@x.com", "pw").Return(nil, errors.NewConflictError("email already in use"))

	rec := h.do(jsonRequest(http.MethodPost, "/auth/signup/email", `{"name":"A","email":"a@x.com","password":"pw"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = h.do(jsonRequest(http.MethodPost, "/auth/signup/email", `{"name":"B","email":"a@x.com","password":"pw"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already in use", decodeError(t, rec).Error.Message)
}

func TestSignup_RejectsUnknownFields(t *testing.T) {
	h := newHarness(t)

	rec := h.do(jsonRequest(http.MethodPost, "/auth/signup/email", `{"name":"A","email":"a@x.com","password":"pw","admin":true}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeBadRequest, decodeError(t, rec).Error.Code)
	h.auth.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_WrongCredentials(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Login", mock.Anything, " a@x.com ", "nope").Return(nil, errors.NewUnauthorizedError("wrong credentials"))

	rec := h.do(jsonRequest(http.MethodPost, "/auth/login/email", `{"email":" a@x.com ","password":"nope"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	h := newHarness(t, func(s *api.Server) { s.AuthLimiter = api.NewIPLimiter(1, 1) })
	h.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.NewUnauthorizedError("wrong credentials"))

	first := h.do(jsonRequest(http.MethodPost, "/auth/login/email", `{"email":"a@x.com","password":"x"}`))
	second := h.do(jsonRequest(http.MethodPost, "/auth/login/email", `{"email":"a@x.com","password":"x"}`))

	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, errors.ErrCodeRateLimited, decodeError(t, second).Error.Code)
}

func TestProtectedRoutes(t *testing.T) {
	h := newHarness(t)
	userID := primitive.NewObjectID()
	h.users.On("GetUser", mock.Anything, userID).Return(&models.UserView{ID: userID.Hex(), Name: "A"}, nil)

	t.Run("missing token", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/users/"+userID.Hex(), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/"+userID.Hex(), nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := h.do(req)
		assert.Equal(t, "invalid token", decodeError(t, rec).Error.Message)
	})

	t.Run("expired token", func(t *testing.T) {
		old := h.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
		token, err := old.Issue(userID.Hex())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/users/"+userID.Hex(), nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := h.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token expired", decodeError(t, rec).Error.Message)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := h.do(h.bearer(t, httptest.NewRequest(http.MethodGet, "/users/"+userID.Hex(), nil), userID))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := h.do(h.bearer(t, httptest.NewRequest(http.MethodGet, "/users/xyz", nil), userID))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "id", decodeError(t, rec).Error.Fields[0].Field)
	})
}

func TestCreateQuest_JSON(t *testing.T) {
	h := newHarness(t)
	creator := primitive.NewObjectID()
	quest := testutil.NewQuest(creator)
	quest.ID = primitive.NewObjectID()

	h.quests.On("CreateQuest", mock.Anything, creator, mock.MatchedBy(func(d models.QuestDraft) bool {
		return d.Name == "harbor-hunt" && len(d.Levels) == 1
	}), []storage.File(nil)).Return(&quest, nil)

	body := `{"name":"harbor-hunt","title":"Harbor Hunt","description":"d","time_limit":45,"difficulty":"medium",
		"levels":[{"type":"input","id":"anchor","name":"Anchor","question":"q","picture_urls":[],"try_limit":3}]}`
	rec := h.do(h.bearer(t, jsonRequest(http.MethodPost, "/quests", body), creator))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Quest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, quest.ID, got.ID)
}

func TestCreateQuest_LevelFieldsAreStrict(t *testing.T) {
	h := newHarness(t)

	body := `{"name":"n","title":"t","description":"d","time_limit":1,"difficulty":"easy",
		"levels":[{"type":"input","id":"a","name":"A","question":"q","options":[]}]}`
	rec := h.do(h.bearer(t, jsonRequest(http.MethodPost, "/quests", body), primitive.NewObjectID()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	h.quests.AssertNotCalled(t, "CreateQuest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateQuest_Multipart(t *testing.T) {
	h := newHarness(t)
	creator := primitive.NewObjectID()
	quest := testutil.NewQuest(creator)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data", `{"name":"n","title":"t","description":"d","time_limit":1,"difficulty":"easy","levels":[]}`))
	part, err := mw.CreateFormFile("main_picture", "cover.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	h.quests.On("CreateQuest", mock.Anything, creator, mock.Anything, mock.MatchedBy(func(files []storage.File) bool {
		return len(files) == 1 && files[0].Field == "main_picture" && files[0].Name == "cover.png"
	})).Return(&quest, nil)

	req := httptest.NewRequest(http.MethodPost, "/quests", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := h.do(h.bearer(t, req, creator))

	assert.Equal(t, http.StatusCreated, rec.Code)
	h.quests.AssertExpectations(t)
}

func TestValidationErrorListsFields(t *testing.T) {
	h := newHarness(t)
	userID := primitive.NewObjectID()
	questID := primitive.NewObjectID()
	h.quests.On("RateQuest", mock.Anything, questID, userID, 9, (*string)(nil)).
		Return(models.UpdateResult{}, errors.NewValidationFailed(errors.FieldError{Field: "rating", Reason: "must be at most 5"}))

	rec := h.do(h.bearer(t, jsonRequest(http.MethodPost, "/quests/"+questID.Hex()+"/ratings", `{"rating":9}`), userID))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, errors.ErrCodeValidation, body.Error.Code)
	require.Len(t, body.Error.Fields, 1)
	assert.Equal(t, "rating", body.Error.Fields[0].Field)
}

func TestUpdateQuest_ReturnsUpdateResult(t *testing.T) {
	h := newHarness(t)
	actor := primitive.NewObjectID()
	questID := primitive.NewObjectID()
	patch := models.QuestPatch{Title: testutil.Ptr("New")}
	h.quests.On("UpdateQuest", mock.Anything, actor, questID, patch).Return(models.NewUpdateResult(1, 0), nil)

	rec := h.do(h.bearer(t, jsonRequest(http.MethodPatch, "/quests/"+questID.Hex(), `{"title":"New"}`), actor))

	require.Equal(t, http.StatusOK, rec.Code)
	var res models.UpdateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.StatusNoChanges, res.Status)
}

func TestListQuests_Query(t *testing.T) {
	h := newHarness(t)
	h.quests.On("ListQuests", mock.Anything, models.QuestFilter{Difficulty: "hard", Limit: 5}).Return([]models.Quest{}, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/quests?difficulty=hard&limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(httptest.NewRequest(http.MethodGet, "/quests?limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendHistory(t *testing.T) {
	h := newHarness(t)
	userID := primitive.NewObjectID()
	questID := primitive.NewObjectID()
	input := services.HistoryInput{QuestID: questID.Hex(), Completed: true}
	h.users.On("AppendQuestHistory", mock.Anything, userID, userID, input).Return(models.NewUpdateResult(1, 1), nil)

	rec := h.do(h.bearer(t, jsonRequest(http.MethodPost, "/users/"+userID.Hex()+"/history",
		`{"quest_id":"`+questID.Hex()+`","completed":true}`), userID))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpload_ReportsEachFile(t *testing.T) {
	h := newHarness(t)
	userID := primitive.NewObjectID()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.exe"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(name))
	}
	require.NoError(t, mw.Close())

	h.uploads.On("UploadFiles", mock.Anything, mock.MatchedBy(func(files []storage.File) bool { return len(files) == 2 })).
		Return([]services.UploadResult{
			{Field: "files", Name: "a.png", URL: "http://media/a.png"},
			{Field: "files", Name: "b.exe", Error: "unsupported media type"},
		})

	req := httptest.NewRequest(http.MethodPut, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := h.do(h.bearer(t, req, userID))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []services.UploadResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Results, 2)
	assert.Equal(t, "unsupported media type", body.Results[1].Error)
}

func TestRecoveryRendersInternalError(t *testing.T) {
	h := newHarness(t)
	h.quests.On("QuestRatings", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	rec := h.do(httptest.NewRequest(http.MethodGet, "/quests/"+primitive.NewObjectID().Hex()+"/ratings", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errors.ErrCodeInternal, decodeError(t, rec).Error.Code)
}
