package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quests/internal/db"
	apperrors "github.com/vytor/quests/internal/errors"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexes_UniqueEmail(t *testing.T) {
	idx := db.Indexes()

	users := idx[db.UsersCollection]
	require.Len(t, users, 1)
	assert.Equal(t, bson.D{{Key: "email", Value: 1}}, users[0].Keys)
	require.NotNil(t, users[0].Options.Unique)
	assert.True(t, *users[0].Options.Unique)

	assert.NotEmpty(t, idx[db.QuestsCollection])
}

func TestOpen_InvalidURI(t *testing.T) {
	_, err := db.Open(context.Background(), "not-a-uri", "quests", time.Second)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageUnavailable))
}
