package mongodb

import (
	"context"

	"github.com/vytor/quests/internal/db"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"github.com/vytor/quests/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultListLimit caps a quest listing that does not set its own limit.
const DefaultListLimit = 50

type questRepository struct {
	docs *documents
}

// NewQuestRepository creates a new QuestRepository implementation
func NewQuestRepository(coll db.Collection) repository.QuestRepository {
	return &questRepository{docs: &documents{
		coll:   coll,
		entity: "quest",
		create: validation.QuestCreate,
		update: validation.QuestUpdate,
		elements: map[string]validation.Schema{
			"ratings": validation.Rating,
		},
	}}
}

func (r *questRepository) Insert(ctx context.Context, quest models.Quest, opts ...repository.WriteOption) (primitive.ObjectID, error) {
	return r.docs.Insert(ctx, quest, opts...)
}

func (r *questRepository) InsertBatch(ctx context.Context, quests []models.Quest, opts ...repository.WriteOption) ([]primitive.ObjectID, error) {
	docs := make([]any, len(quests))
	for i := range quests {
		docs[i] = quests[i]
	}
	return r.docs.InsertMany(ctx, docs, opts...)
}

func (r *questRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Quest, error) {
	var q models.Quest
	if err := r.docs.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, &q, repository.FindOptions{}); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questRepository) List(ctx context.Context, filter models.QuestFilter) ([]models.Quest, error) {
	query := bson.D{}
	if filter.CreatedBy != nil {
		query = append(query, bson.E{Key: "created_by", Value: *filter.CreatedBy})
	}
	if filter.Difficulty != "" {
		query = append(query, bson.E{Key: "difficulty", Value: filter.Difficulty})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	quests := []models.Quest{}
	err := r.docs.FindMany(ctx, query, &quests, repository.FindOptions{
		Sort:  bson.D{{Key: "created_at", Value: -1}},
		Limit: int64(limit),
		Skip:  int64(filter.Offset),
	})
	if err != nil {
		return nil, err
	}
	return quests, nil
}

func (r *questRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.QuestPatch) (models.UpdateResult, error) {
	return r.docs.Update(ctx, id, repository.OpSet, patch)
}

func (r *questRepository) AddRating(ctx context.Context, id primitive.ObjectID, rating models.Rating) (models.UpdateResult, error) {
	return r.docs.CustomUpdate(ctx, id, ratingUpdate(rating), &validation.Rating, rating)
}

func (r *questRepository) Ratings(ctx context.Context, id primitive.ObjectID) ([]models.RatingView, error) {
	ratings := []models.RatingView{}
	if err := r.docs.Aggregate(ctx, ratingsPipeline(id), &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *questRepository) IncrementTimesPlayed(ctx context.Context, id primitive.ObjectID) (models.UpdateResult, error) {
	inc := bson.D{{Key: "$inc", Value: bson.D{{Key: "times_played", Value: 1}}}}
	return r.docs.CustomUpdate(ctx, id, inc, nil, nil)
}
