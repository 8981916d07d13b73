package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a document of the Users collection.
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name" validate:"required,max=100"`
	Email          string               `bson:"email" json:"email" validate:"required,email"`
	Password       string               `bson:"password" json:"-" validate:"required"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at" validate:"required"`
	ProfilePicture *string              `bson:"profile_picture" json:"profile_picture" validate:"omitempty,url"`
	CreatedQuests  []primitive.ObjectID `bson:"created_quests" json:"created_quests"`
	QuestHistory   []QuestHistoryEntry  `bson:"quest_history" json:"quest_history" validate:"dive"`
}

// NewUser builds a user with empty embedded arrays so later $push and $addToSet
// operators always target an array.
func NewUser(name, email, passwordHash string, now time.Time) User {
	return User{
		Name:          name,
		Email:         email,
		Password:      passwordHash,
		CreatedAt:     now,
		CreatedQuests: []primitive.ObjectID{},
		QuestHistory:  []QuestHistoryEntry{},
	}
}

// QuestHistoryEntry records one attempt of a quest by a user.
type QuestHistoryEntry struct {
	QuestID     primitive.ObjectID `bson:"quest_id" json:"quest_id" validate:"required"`
	Result      *int               `bson:"result" json:"result" validate:"omitempty,gte=0"`
	Completed   bool               `bson:"completed" json:"completed"`
	TimeSpent   *float64           `bson:"time_spent" json:"time_spent" validate:"omitempty,gte=0"`
	AttemptedAt time.Time          `bson:"attempted_at" json:"attempted_at" validate:"required"`
}

// UserPatch is a partial update of a user. Nil fields are left untouched.
type UserPatch struct {
	Name           *string `bson:"name,omitempty" json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	ProfilePicture *string `bson:"profile_picture,omitempty" json:"profile_picture,omitempty" validate:"omitempty,url"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.ProfilePicture == nil
}

// UserView is the public shape of a user; it never carries the password digest.
type UserView struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	CreatedAt      time.Time           `json:"created_at"`
	ProfilePicture *string             `json:"profile_picture"`
	CreatedQuests  []string            `json:"created_quests"`
	QuestHistory   []QuestHistoryEntry `json:"quest_history"`
}

// View strips private fields from u.
func (u User) View() UserView {
	created := make([]string, 0, len(u.CreatedQuests))
	for _, id := range u.CreatedQuests {
		created = append(created, id.Hex())
	}
	history := u.QuestHistory
	if history == nil {
		history = []QuestHistoryEntry{}
	}
	return UserView{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Email:          u.Email,
		CreatedAt:      u.CreatedAt,
		ProfilePicture: u.ProfilePicture,
		CreatedQuests:  created,
		QuestHistory:   history,
	}
}

// QuestHistoryView is a history entry joined with the quest it refers to.
type QuestHistoryView struct {
	QuestID     primitive.ObjectID `bson:"quest_id" json:"quest_id"`
	Result      *int               `bson:"result" json:"result"`
	Completed   bool               `bson:"completed" json:"completed"`
	TimeSpent   *float64           `bson:"time_spent" json:"time_spent"`
	AttemptedAt time.Time          `bson:"attempted_at" json:"attempted_at"`
	Name        string             `bson:"name" json:"name"`
	Difficulty  string             `bson:"difficulty" json:"difficulty"`
	MainPicture *string            `bson:"main_picture" json:"main_picture"`
}
