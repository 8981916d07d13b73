package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Quest is a document of the Quests collection. Levels and ratings are embedded.
type Quest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required,max=200"`
	Title       string             `bson:"title" json:"title" validate:"required,max=200"`
	Description string             `bson:"description" json:"description" validate:"required"`
	TimeLimit   int                `bson:"time_limit" json:"time_limit" validate:"required,gte=1"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at" validate:"required"`
	Difficulty  string             `bson:"difficulty" json:"difficulty" validate:"required,oneof=easy medium hard"`
	MainPicture *string            `bson:"main_picture" json:"main_picture" validate:"omitempty,url"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by" validate:"required"`
	Levels      Levels             `bson:"levels" json:"levels" validate:"dive"`
	Ratings     []Rating           `bson:"ratings" json:"ratings" validate:"dive"`
	TimesPlayed int                `bson:"times_played" json:"times_played" validate:"gte=0"`
	AvgRating   float64            `bson:"avg_rating" json:"avg_rating" validate:"gte=0,lte=5"`
}

// QuestDraft is what a creator submits; server-assigned fields are filled in on creation.
type QuestDraft struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TimeLimit   int     `json:"time_limit"`
	Difficulty  string  `json:"difficulty"`
	MainPicture *string `json:"main_picture,omitempty"`
	Levels      Levels  `json:"levels"`
}

// NewQuest turns a draft into a quest document owned by creator.
func NewQuest(draft QuestDraft, creator primitive.ObjectID, now time.Time) Quest {
	levels := draft.Levels
	if levels == nil {
		levels = Levels{}
	}
	return Quest{
		Name:        draft.Name,
		Title:       draft.Title,
		Description: draft.Description,
		TimeLimit:   draft.TimeLimit,
		CreatedAt:   now,
		Difficulty:  draft.Difficulty,
		MainPicture: draft.MainPicture,
		CreatedBy:   creator,
		Levels:      levels,
		Ratings:     []Rating{},
	}
}

// QuestPatch is a partial update of a quest. Nil fields are left untouched.
type QuestPatch struct {
	Name        *string `bson:"name,omitempty" json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Title       *string `bson:"title,omitempty" json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `bson:"description,omitempty" json:"description,omitempty" validate:"omitempty,min=1"`
	TimeLimit   *int    `bson:"time_limit,omitempty" json:"time_limit,omitempty" validate:"omitempty,gte=1"`
	Difficulty  *string `bson:"difficulty,omitempty" json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	MainPicture *string `bson:"main_picture,omitempty" json:"main_picture,omitempty" validate:"omitempty,url"`
	Levels      *Levels `bson:"levels,omitempty" json:"levels,omitempty" validate:"omitempty,dive"`
}

// IsEmpty reports whether the patch changes nothing.
func (p QuestPatch) IsEmpty() bool {
	return p.Name == nil && p.Title == nil && p.Description == nil && p.TimeLimit == nil &&
		p.Difficulty == nil && p.MainPicture == nil && p.Levels == nil
}

// QuestFilter narrows a quest listing. Zero values do not filter.
type QuestFilter struct {
	CreatedBy  *primitive.ObjectID
	Difficulty string
	Limit      int
	Offset     int
}

// Rating is one user's score of a quest, embedded in Quest.Ratings.
type Rating struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id" validate:"required"`
	Rating int                `bson:"rating" json:"rating" validate:"required,gte=1,lte=5"`
	Review *string            `bson:"review" json:"review" validate:"omitempty,max=2000"`
}

// RatingView is a rating joined with the rater's public profile.
type RatingView struct {
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Rating         int                `bson:"rating" json:"rating"`
	Review         *string            `bson:"review" json:"review"`
	Name           string             `bson:"name" json:"name"`
	ProfilePicture *string            `bson:"profile_picture" json:"profile_picture"`
}

// AverageRating is the mean of all ratings rounded to one decimal, half to even,
// matching the store-side $round used when a rating is added.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(ratings))
	return math.RoundToEven(mean*10) / 10
}
