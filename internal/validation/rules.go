package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return bsonKey(f)
	})
	v.RegisterStructValidation(quizLevelRules, models.QuizLevel{})
	v.RegisterStructValidation(questRules, models.Quest{})
	v.RegisterStructValidation(questPatchRules, models.QuestPatch{})
	return v
}

func quizLevelRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.QuizLevel)
	if q.CorrectOptionID == "" {
		return
	}
	ids := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		if ids[opt.ID] {
			sl.ReportError(q.Options[i].ID, "options", "Options", "unique_option_ids", "")
			return
		}
		ids[opt.ID] = true
	}
	if !ids[q.CorrectOptionID] {
		sl.ReportError(q.CorrectOptionID, "correct_option_id", "CorrectOptionID", "option_ref", "")
	}
}

func questRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(models.Quest)
	uniqueLevelIDs(sl, q.Levels)
}

func questPatchRules(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.QuestPatch)
	if p.Levels != nil {
		uniqueLevelIDs(sl, *p.Levels)
	}
}

func uniqueLevelIDs(sl validator.StructLevel, levels models.Levels) {
	seen := make(map[string]bool, len(levels))
	for _, lvl := range levels {
		id := lvl.LevelID()
		if id == "" {
			continue
		}
		if seen[id] {
			sl.ReportError(levels, "levels", "Levels", "unique_level_ids", "")
			return
		}
		seen[id] = true
	}
}

// ruleErrors flattens validator output into field errors keyed by document path.
func ruleErrors(err error) []apperrors.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "record", Reason: err.Error()}}
	}
	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.FieldError{Field: fieldPath(fe.Namespace()), Reason: reason(fe)})
	}
	return out
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + fe.Param()
	case "eq":
		return "must be " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "option_ref":
		return "must match the id of one of the options"
	case "unique_option_ids":
		return "option ids must be unique"
	case "unique_level_ids":
		return "level ids must be unique"
	}
	return "failed " + fe.Tag() + " rule"
}
