package mongodb

import (
	"context"

	"github.com/vytor/quests/internal/db"
	apperrors "github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"github.com/vytor/quests/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepository struct {
	docs *documents
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(coll db.Collection) repository.UserRepository {
	return &userRepository{docs: &documents{
		coll:   coll,
		entity: "user",
		create: validation.UserCreate,
		update: validation.UserUpdate,
		elements: map[string]validation.Schema{
			"created_quests": validation.ObjectID,
			"quest_history":  validation.QuestHistory,
		},
	}}
}

func (r *userRepository) Insert(ctx context.Context, user models.User, opts ...repository.WriteOption) (primitive.ObjectID, error) {
	return r.docs.Insert(ctx, user, opts...)
}

func (r *userRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.docs.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, &u, repository.FindOptions{}); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.docs.FindOne(ctx, bson.D{{Key: "email", Value: email}}, &u, repository.FindOptions{}); err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists looks a user up without reading its profile or history.
func (r *userRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	var doc bson.Raw
	err := r.docs.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, &doc, repository.FindOptions{
		ExcludeID:  true,
		Projection: bson.D{{Key: "email", Value: 1}},
	})
	if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *userRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (models.UpdateResult, error) {
	return r.docs.Update(ctx, id, repository.OpSet, patch)
}

func (r *userRepository) AddCreatedQuest(ctx context.Context, userID, questID primitive.ObjectID) (models.UpdateResult, error) {
	return r.docs.Update(ctx, userID, repository.OpAddToSet, bson.D{{Key: "created_quests", Value: questID}})
}

func (r *userRepository) PushQuestHistory(ctx context.Context, userID primitive.ObjectID, entry models.QuestHistoryEntry) (models.UpdateResult, error) {
	return r.docs.Update(ctx, userID, repository.OpPush, bson.D{{Key: "quest_history", Value: entry}})
}

func (r *userRepository) QuestHistory(ctx context.Context, userID primitive.ObjectID) ([]models.QuestHistoryView, error) {
	history := []models.QuestHistoryView{}
	if err := r.docs.Aggregate(ctx, questHistoryPipeline(userID), &history); err != nil {
		return nil, err
	}
	return history, nil
}
