package mongodb

import (
	"github.com/vytor/quests/internal/db"
	"github.com/vytor/quests/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ratingUpdate appends rating and recomputes avg_rating from the full array
// inside the same update, so concurrent raters cannot overwrite each other.
func ratingUpdate(rating models.Rating) mongo.Pipeline {
	existing := bson.D{{Key: "$ifNull", Value: bson.A{"$ratings", bson.A{}}}}
	added := bson.D{{Key: "$literal", Value: bson.A{rating}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "ratings", Value: bson.D{{Key: "$concatArrays", Value: bson.A{existing, added}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "avg_rating", Value: bson.D{{Key: "$round", Value: bson.A{
				bson.D{{Key: "$avg", Value: "$ratings.rating"}}, 1,
			}}}},
		}}},
	}
}

// joinPipeline unwinds an array of sub-documents, joins each element to a
// document of another collection and projects the merged view.
func joinPipeline(id primitive.ObjectID, array, localKey, from string, project bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}},
		{{Key: "$unwind", Value: "$" + array}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: array + "." + localKey},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "joined"},
		}}},
		{{Key: "$unwind", Value: "$joined"}},
		{{Key: "$project", Value: append(bson.D{{Key: "_id", Value: 0}}, project...)}},
	}
}

func ratingsPipeline(questID primitive.ObjectID) mongo.Pipeline {
	return joinPipeline(questID, "ratings", "user_id", db.UsersCollection, bson.D{
		{Key: "user_id", Value: "$ratings.user_id"},
		{Key: "rating", Value: "$ratings.rating"},
		{Key: "review", Value: "$ratings.review"},
		{Key: "name", Value: "$joined.name"},
		{Key: "profile_picture", Value: "$joined.profile_picture"},
	})
}

func questHistoryPipeline(userID primitive.ObjectID) mongo.Pipeline {
	return joinPipeline(userID, "quest_history", "quest_id", db.QuestsCollection, bson.D{
		{Key: "quest_id", Value: "$quest_history.quest_id"},
		{Key: "result", Value: "$quest_history.result"},
		{Key: "completed", Value: "$quest_history.completed"},
		{Key: "time_spent", Value: "$quest_history.time_spent"},
		{Key: "attempted_at", Value: "$quest_history.attempted_at"},
		{Key: "name", Value: "$joined.name"},
		{Key: "difficulty", Value: "$joined.difficulty"},
		{Key: "main_picture", Value: "$joined.main_picture"},
	})
}
