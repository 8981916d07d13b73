// Package validation checks candidate documents against closed schemas before
// they reach the store.
package validation

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	apperrors "github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schema is a named closed shape. Document schemas are backed by a model struct:
// its bson tags are the allowed keys and its validate tags are the rules.
type Schema struct {
	name  string
	check func(record any) []apperrors.FieldError
}

func (s Schema) Name() string { return s.name }

var (
	UserCreate   = documentSchema("user_create", models.User{})
	UserUpdate   = documentSchema("user_update", models.UserPatch{})
	QuestCreate  = documentSchema("quest_create", models.Quest{})
	QuestUpdate  = documentSchema("quest_update", models.QuestPatch{})
	Rating       = documentSchema("rating", models.Rating{})
	QuestHistory = documentSchema("quest_history", models.QuestHistoryEntry{})
	ObjectID     = Schema{name: "object_id", check: checkObjectID}
)

// Failure is one rejected record of a batch.
type Failure struct {
	Index  int
	Record any
	Errors []apperrors.FieldError
}

// Result is the outcome of validating a batch. Every record is checked.
type Result struct {
	Valid    bool
	Failures []Failure
}

// Err returns nil for a valid result and a ValidationFailed error listing every
// field error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	var fields []apperrors.FieldError
	for _, f := range r.Failures {
		fields = append(fields, f.Errors...)
	}
	return apperrors.NewValidationFailed(fields...)
}

// Validate checks each record against schema and collects all failures.
func Validate(schema Schema, records ...any) Result {
	res := Result{Valid: true}
	for i, rec := range records {
		errs := schema.check(rec)
		if len(errs) == 0 {
			continue
		}
		for j := range errs {
			errs[j].Record = i
		}
		res.Valid = false
		res.Failures = append(res.Failures, Failure{Index: i, Record: rec, Errors: errs})
	}
	return res
}

var (
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
	levelsType   = reflect.TypeOf(models.Levels{})
	timeType     = reflect.TypeOf(time.Time{})
)

func documentSchema(name string, model any) Schema {
	target := reflect.TypeOf(model)
	return Schema{
		name: name,
		check: func(record any) []apperrors.FieldError {
			return checkDocument(target, record)
		},
	}
}

func checkDocument(target reflect.Type, record any) []apperrors.FieldError {
	raw, err := toRaw(record)
	if err != nil {
		return []apperrors.FieldError{{Field: "record", Reason: "must be a document: " + err.Error()}}
	}

	errs := unknownFields(raw, target, "")

	out := reflect.New(target)
	if err := bson.Unmarshal(raw, out.Interface()); err != nil {
		if len(errs) == 0 {
			errs = append(errs, apperrors.FieldError{Field: "record", Reason: err.Error()})
		}
		return errs
	}

	return append(errs, ruleErrors(validate.Struct(out.Elem().Interface()))...)
}

func toRaw(record any) (bson.Raw, error) {
	switch r := record.(type) {
	case bson.Raw:
		return r, r.Validate()
	case []byte:
		raw := bson.Raw(r)
		return raw, raw.Validate()
	}
	b, err := bson.Marshal(record)
	if err != nil {
		return nil, err
	}
	return bson.Raw(b), nil
}

func checkObjectID(record any) []apperrors.FieldError {
	switch v := record.(type) {
	case primitive.ObjectID:
		if !v.IsZero() {
			return nil
		}
	case string:
		if primitive.IsValidObjectID(v) {
			return nil
		}
	}
	return []apperrors.FieldError{{Field: "value", Reason: "must be a valid object id"}}
}

// Email reports whether addr is an acceptable email address.
func Email(addr string) error {
	if err := validate.Var(addr, "required,email,max=254"); err != nil {
		return apperrors.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

// bsonKey returns the document key a struct field is stored under, or "" when skipped.
func bsonKey(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("bson")
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

func unknownFields(doc bson.Raw, target reflect.Type, path string) []apperrors.FieldError {
	fields := make(map[string]reflect.Type)
	for i := 0; i < target.NumField(); i++ {
		f := target.Field(i)
		if key := bsonKey(f); key != "" {
			fields[key] = f.Type
		}
	}

	elems, err := doc.Elements()
	if err != nil {
		return []apperrors.FieldError{{Field: strings.TrimSuffix(path, "."), Reason: err.Error()}}
	}

	var errs []apperrors.FieldError
	for _, el := range elems {
		key := el.Key()
		ft, ok := fields[key]
		if !ok {
			errs = append(errs, apperrors.FieldError{Field: path + key, Reason: "unknown field"})
			continue
		}
		if want := typeMismatch(el.Value(), ft); want != "" {
			errs = append(errs, apperrors.FieldError{Field: path + key, Reason: "must be " + want})
			continue
		}
		errs = append(errs, nested(el.Value(), deref(ft), path+key)...)
	}
	return errs
}

// typeMismatch names the expected type when val cannot decode into ft.
// Null is accepted everywhere; required rules catch it after decoding.
func typeMismatch(val bson.RawValue, ft reflect.Type) string {
	if val.Type == bsontype.Null {
		return ""
	}
	t := deref(ft)
	switch t {
	case objectIDType:
		return expect(val.Type == bsontype.ObjectID, "an object id")
	case timeType:
		return expect(val.Type == bsontype.DateTime, "a date")
	case levelsType:
		return expect(val.Type == bsontype.Array, "an array")
	}

	switch t.Kind() {
	case reflect.String:
		return expect(val.Type == bsontype.String, "a string")
	case reflect.Bool:
		return expect(val.Type == bsontype.Boolean, "a boolean")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val.Type == bsontype.Double {
			f := val.Double()
			return expect(f == math.Trunc(f), "an integer")
		}
		return expect(val.Type == bsontype.Int32 || val.Type == bsontype.Int64, "an integer")
	case reflect.Float32, reflect.Float64:
		return expect(val.IsNumber(), "a number")
	case reflect.Slice, reflect.Array:
		return expect(val.Type == bsontype.Array, "an array")
	case reflect.Struct, reflect.Map:
		return expect(val.Type == bsontype.EmbeddedDocument, "a document")
	}
	return ""
}

func expect(ok bool, want string) string {
	if ok {
		return ""
	}
	return want
}

func nested(val bson.RawValue, ft reflect.Type, path string) []apperrors.FieldError {
	if ft == levelsType {
		return levelFields(val, path)
	}
	if isDocumentStruct(ft) {
		if sub, ok := val.DocumentOK(); ok {
			return unknownFields(sub, ft, path+".")
		}
		return nil
	}
	if ft.Kind() == reflect.Slice && isDocumentStruct(deref(ft.Elem())) {
		arr, ok := val.ArrayOK()
		if !ok {
			return nil
		}
		values, _ := arr.Values()
		var errs []apperrors.FieldError
		for i, v := range values {
			if sub, ok := v.DocumentOK(); ok {
				errs = append(errs, unknownFields(sub, deref(ft.Elem()), fmt.Sprintf("%s[%d].", path, i))...)
			}
		}
		return errs
	}
	return nil
}

// levelFields selects each level's variant by its "type" key before checking keys.
func levelFields(val bson.RawValue, path string) []apperrors.FieldError {
	arr, ok := val.ArrayOK()
	if !ok {
		return nil
	}
	values, _ := arr.Values()
	var errs []apperrors.FieldError
	for i, v := range values {
		at := fmt.Sprintf("%s[%d]", path, i)
		doc, ok := v.DocumentOK()
		if !ok {
			errs = append(errs, apperrors.FieldError{Field: at, Reason: "must be a document"})
			continue
		}
		kind, _ := doc.Lookup("type").StringValueOK()
		lvl, ok := models.LevelOf(models.LevelType(kind))
		if !ok {
			errs = append(errs, apperrors.FieldError{Field: at + ".type", Reason: "must be one of quiz input"})
			continue
		}
		errs = append(errs, unknownFields(doc, reflect.TypeOf(lvl), at+".")...)
	}
	return errs
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func isDocumentStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	return t.PkgPath() == reflect.TypeOf(models.User{}).PkgPath()
}
