// Command seed fills an empty database with a demo creator and a few quests.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/vytor/quests/internal/auth"
	"github.com/vytor/quests/internal/config"
	"github.com/vytor/quests/internal/db"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	email := flag.String("email", "demo@quests.local", "email of the demo creator")
	password := flag.String("password", "demo-password", "password of the demo creator")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel))).WithPrefix("seed")
	logger.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := db.Open(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoConnectTimeout)
	if err != nil {
		log.Error("failed to open document store: %v", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	users := mongodb.NewUserRepository(store.Users())
	quests := mongodb.NewQuestRepository(store.Quests())

	digest, err := auth.NewPasswords(cfg.BcryptCost).Hash(*password)
	if err != nil {
		log.Error("failed to hash password: %v", err)
		os.Exit(1)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	creatorID, err := users.Insert(ctx, models.NewUser("Demo Creator", *email, digest, now))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			log.Warn("demo creator %s already exists, nothing to do", *email)
			return
		}
		log.Error("failed to create demo creator: %v", err)
		os.Exit(1)
	}
	log.Info("demo creator created: id=%s", creatorID.Hex())

	batch := demoQuests(creatorID, now)
	ids, err := quests.InsertBatch(ctx, batch)
	if appErr, ok := errors.As(err); ok && appErr.Write != nil {
		for _, f := range appErr.Write.Failed {
			log.Error("quest %d (%s) not stored: %s", f.Index, batch[f.Index].Name, f.Message)
		}
	} else if err != nil {
		log.Error("failed to seed quests: %v", err)
		os.Exit(1)
	}

	for _, id := range ids {
		if _, err := users.AddCreatedQuest(ctx, creatorID, id); err != nil {
			log.Error("failed to link quest %s: %v", id.Hex(), err)
			os.Exit(1)
		}
	}
	log.Info("seeded %d of %d quests", len(ids), len(batch))
}

func demoQuests(creator primitive.ObjectID, now time.Time) []models.Quest {
	three := 3
	drafts := []models.QuestDraft{
		{
			Name:        "old-town-walk",
			Title:       "Old Town Walk",
			Description: "A gentle loop around the old town square.",
			TimeLimit:   30,
			Difficulty:  models.DifficultyEasy,
			Levels: models.Levels{
				models.QuizLevel{
					Type:     models.LevelQuiz,
					ID:       "clock-tower",
					Name:     "Clock Tower",
					Question: "How many faces does the clock tower have?",
					Options: []models.QuizOption{
						{Text: "Two", ID: "two"},
						{Text: "Four", ID: "four"},
					},
					CorrectOptionID: "four",
					PictureURLs:     []string{},
				},
			},
		},
		{
			Name:        "river-trail",
			Title:       "River Trail",
			Description: "Follow the river from the mill to the bridge.",
			TimeLimit:   60,
			Difficulty:  models.DifficultyMedium,
			Levels: models.Levels{
				models.InputLevel{
					Type:        models.LevelInput,
					ID:          "mill-year",
					Name:        "The Mill",
					Question:    "What year is carved above the mill door?",
					PictureURLs: []string{},
					TryLimit:    &three,
				},
			},
		},
	}

	out := make([]models.Quest, len(drafts))
	for i, d := range drafts {
		q := models.NewQuest(d, creator, now)
		q.Ratings = []models.Rating{{UserID: creator, Rating: 4}, {UserID: creator, Rating: 5}}
		q.AvgRating = models.AverageRating(q.Ratings)
		out[i] = q
	}
	return out
}
