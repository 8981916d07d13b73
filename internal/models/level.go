package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// LevelType is the discriminant of the Level sum type.
type LevelType string

const (
	LevelQuiz  LevelType = "quiz"
	LevelInput LevelType = "input"
)

// Level is one step of a quest. It is implemented only by QuizLevel and InputLevel.
type Level interface {
	Kind() LevelType
	LevelID() string
	isLevel()
}

type QuizOption struct {
	Text string `bson:"text" json:"text" validate:"required"`
	ID   string `bson:"id" json:"id" validate:"required"`
}

type QuizLevel struct {
	Type            LevelType    `bson:"type" json:"type" validate:"eq=quiz"`
	ID              string       `bson:"id" json:"id" validate:"required"`
	Name            string       `bson:"name" json:"name" validate:"required"`
	Question        string       `bson:"question" json:"question" validate:"required"`
	PictureURLs     []string     `bson:"picture_urls" json:"picture_urls" validate:"dive,url"`
	Options         []QuizOption `bson:"options" json:"options" validate:"required,min=1,dive"`
	CorrectOptionID string       `bson:"correct_option_id" json:"correct_option_id" validate:"required"`
}

func (QuizLevel) Kind() LevelType   { return LevelQuiz }
func (l QuizLevel) LevelID() string { return l.ID }
func (QuizLevel) isLevel()          {}

type InputLevel struct {
	Type        LevelType `bson:"type" json:"type" validate:"eq=input"`
	ID          string    `bson:"id" json:"id" validate:"required"`
	Name        string    `bson:"name" json:"name" validate:"required"`
	Question    string    `bson:"question" json:"question" validate:"required"`
	PictureURLs []string  `bson:"picture_urls" json:"picture_urls" validate:"dive,url"`
	TryLimit    *int      `bson:"try_limit" json:"try_limit" validate:"omitempty,gte=1"`
}

func (InputLevel) Kind() LevelType   { return LevelInput }
func (l InputLevel) LevelID() string { return l.ID }
func (InputLevel) isLevel()          {}

// LevelOf returns the zero value of the variant named by kind.
func LevelOf(kind LevelType) (Level, bool) {
	switch kind {
	case LevelQuiz:
		return QuizLevel{Type: LevelQuiz}, true
	case LevelInput:
		return InputLevel{Type: LevelInput}, true
	}
	return nil, false
}

// WithPictures returns a copy of lvl with urls appended to its picture list.
func WithPictures(lvl Level, urls ...string) Level {
	switch l := lvl.(type) {
	case QuizLevel:
		l.PictureURLs = append(append([]string{}, l.PictureURLs...), urls...)
		return l
	case InputLevel:
		l.PictureURLs = append(append([]string{}, l.PictureURLs...), urls...)
		return l
	}
	return lvl
}

// Levels is the ordered list of a quest's levels. Its encodings dispatch on "type".
type Levels []Level

func decodeLevel(kind LevelType, decode func(any) error) (Level, error) {
	switch kind {
	case LevelQuiz:
		var q QuizLevel
		if err := decode(&q); err != nil {
			return nil, err
		}
		q.Type = LevelQuiz
		return q, nil
	case LevelInput:
		var in InputLevel
		if err := decode(&in); err != nil {
			return nil, err
		}
		in.Type = LevelInput
		return in, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownLevelType, kind)
}

// ErrUnknownLevelType is returned when a level's discriminant names no variant.
var ErrUnknownLevelType = errors.New("unknown level type")

func levelError(i int, err error) error {
	if errors.Is(err, ErrUnknownLevelType) {
		return fmt.Errorf("levels[%d].type: %w", i, err)
	}
	return fmt.Errorf("levels[%d]: %w", i, err)
}

// UnmarshalJSON decodes each level strictly: fields outside the selected variant are rejected.
func (l *Levels) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Levels, 0, len(raws))
	for i, raw := range raws {
		var head struct {
			Type LevelType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("levels[%d]: %w", i, err)
		}
		lvl, err := decodeLevel(head.Type, func(v any) error {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			return dec.Decode(v)
		})
		if err != nil {
			return levelError(i, err)
		}
		out = append(out, lvl)
	}
	*l = out
	return nil
}

// MarshalBSONValue stores levels as an array of documents, each tagged with its type.
func (l Levels) MarshalBSONValue() (bsontype.Type, []byte, error) {
	arr := make(bson.A, 0, len(l))
	for _, lvl := range l {
		switch v := lvl.(type) {
		case QuizLevel:
			v.Type = LevelQuiz
			arr = append(arr, v)
		case InputLevel:
			v.Type = LevelInput
			arr = append(arr, v)
		default:
			return 0, nil, fmt.Errorf("unsupported level %T", lvl)
		}
	}
	return bson.MarshalValue(arr)
}

// UnmarshalBSONValue restores the concrete variant of every stored level.
func (l *Levels) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*l = nil
		return nil
	}
	if t != bsontype.Array {
		return fmt.Errorf("levels: expected array, got %s", t)
	}
	values, err := bson.Raw(data).Values()
	if err != nil {
		return err
	}
	out := make(Levels, 0, len(values))
	for i, v := range values {
		doc, ok := v.DocumentOK()
		if !ok {
			return fmt.Errorf("levels[%d]: expected document, got %s", i, v.Type)
		}
		kind, _ := doc.Lookup("type").StringValueOK()
		lvl, err := decodeLevel(LevelType(kind), func(dst any) error {
			return bson.Unmarshal(doc, dst)
		})
		if err != nil {
			return levelError(i, err)
		}
		out = append(out, lvl)
	}
	*l = out
	return nil
}
