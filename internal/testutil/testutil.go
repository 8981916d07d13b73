package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/db"
	"github.com/vytor/quests/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Now is a fixed, millisecond-precise instant that survives a BSON round trip.
var Now = time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)

func Ptr[T any](v T) *T { return &v }

// NewUser returns a user that passes the create schema.
func NewUser(name, email string) models.User {
	return models.NewUser(name, email, "$2a$04$0123456789012345678901uAbCdEfGhIjKlMnOpQrStUvWxYz012", Now)
}

// NewQuest returns a quest with one level of each type that passes the create schema.
func NewQuest(creator primitive.ObjectID) models.Quest {
	draft := models.QuestDraft{
		Name:        "harbor-hunt",
		Title:       "Harbor Hunt",
		Description: "Follow the clues along the old harbor.",
		TimeLimit:   45,
		Difficulty:  models.DifficultyMedium,
		Levels: models.Levels{
			models.QuizLevel{
				Type:     models.LevelQuiz,
				ID:       "lighthouse",
				Name:     "Lighthouse",
				Question: "What color is the lighthouse roof?",
				Options: []models.QuizOption{
					{Text: "Red", ID: "red"},
					{Text: "Green", ID: "green"},
				},
				CorrectOptionID: "red",
				PictureURLs:     []string{},
			},
			models.InputLevel{
				Type:        models.LevelInput,
				ID:          "anchor",
				Name:        "Anchor",
				Question:    "How many links does the anchor chain have?",
				PictureURLs: []string{},
				TryLimit:    Ptr(3),
			},
		},
	}
	return models.NewQuest(draft, creator, Now)
}

// NewTestDB connects to the store named by QUESTS_TEST_MONGO_URI using a
// throwaway database. The test is skipped when the variable is unset.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	uri := os.Getenv("QUESTS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("QUESTS_TEST_MONGO_URI not set")
	}

	name := "quests_test_" + primitive.NewObjectID().Hex()
	store, err := db.Open(context.Background(), uri, name, 5*time.Second)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = store.Users().Database().Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}
