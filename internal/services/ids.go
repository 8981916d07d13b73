package services

import (
	"github.com/vytor/quests/internal/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID parses a hex object id, reporting a validation failure on field.
func ParseID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.NewValidationError(field, "must be a valid object id")
	}
	return id, nil
}
