package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/vytor/quests/internal/db"
	apperrors "github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/models"
	"github.com/vytor/quests/internal/repository"
	"github.com/vytor/quests/internal/validation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// documents is the record access shared by every collection: validated
// inserts, reads, operator updates, custom updates and aggregations.
type documents struct {
	coll   db.Collection
	entity string
	create validation.Schema
	update validation.Schema
	// elements maps an array field to the schema of the values pushed into it.
	elements map[string]validation.Schema
}

func (d *documents) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithPrefix(d.entity + "_repo")
}

// Insert validates doc against the create schema and stores it. The id is
// assigned before the write unless doc already carries one.
func (d *documents) Insert(ctx context.Context, doc any, opts ...repository.WriteOption) (primitive.ObjectID, error) {
	log := d.log(ctx)
	o := repository.ApplyWriteOptions(opts...)

	if o.SkipValidation {
		log.Warn("inserting %s without validation", d.entity)
	} else if res := validation.Validate(d.create, doc); !res.Valid {
		log.Debug("rejected %s: %v", d.entity, res.Err())
		return primitive.NilObjectID, res.Err()
	}

	prepared, id, err := withID(doc)
	if err != nil {
		return primitive.NilObjectID, apperrors.NewValidationError("record", err.Error())
	}

	log.Debug("inserting %s: id=%s", d.entity, id.Hex())
	if _, err := d.coll.InsertOne(ctx, prepared); err != nil {
		log.Error("failed to insert %s: %v", d.entity, err)
		report := &apperrors.WriteReport{
			Succeeded: []string{},
			Failed:    []apperrors.FailedRecord{{Index: 0, ID: id.Hex(), Message: err.Error()}},
		}
		return primitive.NilObjectID, d.writeError(err, report)
	}
	return id, nil
}

// InsertMany validates the whole batch first and rejects it if any record
// fails. The write is unordered: on a partial failure the report lists which
// records were stored and which were not.
func (d *documents) InsertMany(ctx context.Context, docs []any, opts ...repository.WriteOption) ([]primitive.ObjectID, error) {
	log := d.log(ctx)
	if len(docs) == 0 {
		return []primitive.ObjectID{}, nil
	}
	o := repository.ApplyWriteOptions(opts...)

	if o.SkipValidation {
		log.Warn("inserting %d %s documents without validation", len(docs), d.entity)
	} else if res := validation.Validate(d.create, docs...); !res.Valid {
		log.Debug("rejected %d of %d %s documents", len(res.Failures), len(docs), d.entity)
		return nil, res.Err()
	}

	prepared := make([]interface{}, len(docs))
	ids := make([]primitive.ObjectID, len(docs))
	for i, doc := range docs {
		p, id, err := withID(doc)
		if err != nil {
			return nil, apperrors.NewValidationFailed(apperrors.FieldError{Record: i, Field: "record", Reason: err.Error()})
		}
		prepared[i], ids[i] = p, id
	}

	log.Debug("inserting %d %s documents", len(docs), d.entity)
	_, err := d.coll.InsertMany(ctx, prepared, options.InsertMany().SetOrdered(false))
	if err == nil {
		return ids, nil
	}

	log.Error("batch insert of %s failed: %v", d.entity, err)
	var bulk mongo.BulkWriteException
	if errors.As(err, &bulk) && len(bulk.WriteErrors) > 0 {
		report, stored := bulkReport(ids, bulk.WriteErrors)
		return stored, apperrors.NewWriteFailed(report, err)
	}

	report := &apperrors.WriteReport{Succeeded: []string{}}
	for i, id := range ids {
		report.Failed = append(report.Failed, apperrors.FailedRecord{Index: i, ID: id.Hex(), Message: err.Error()})
	}
	return nil, d.writeError(err, report)
}

func bulkReport(ids []primitive.ObjectID, writeErrors []mongo.BulkWriteError) (*apperrors.WriteReport, []primitive.ObjectID) {
	failed := make(map[int]string, len(writeErrors))
	for _, we := range writeErrors {
		failed[we.Index] = we.Message
	}

	report := &apperrors.WriteReport{Succeeded: []string{}, Failed: []apperrors.FailedRecord{}}
	stored := make([]primitive.ObjectID, 0, len(ids))
	for i, id := range ids {
		if msg, ok := failed[i]; ok {
			report.Failed = append(report.Failed, apperrors.FailedRecord{Index: i, ID: id.Hex(), Message: msg})
			continue
		}
		report.Succeeded = append(report.Succeeded, id.Hex())
		stored = append(stored, id)
	}
	return report, stored
}

// FindOne decodes the first document matching filter into out.
func (d *documents) FindOne(ctx context.Context, filter any, out any, opts repository.FindOptions) error {
	log := d.log(ctx)
	log.Debug("finding one %s: filter=%v", d.entity, filter)

	fo := options.FindOne()
	if proj := projection(opts); proj != nil {
		fo.SetProjection(proj)
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}

	err := d.coll.FindOne(ctx, filter, fo).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		log.Debug("%s not found: filter=%v", d.entity, filter)
		return apperrors.NewNotFoundError(d.entity, describe(filter))
	}
	if err != nil {
		log.Error("failed to find %s: %v", d.entity, err)
		return readError(err)
	}
	return nil
}

// FindMany decodes every matching document into out, a pointer to a slice.
func (d *documents) FindMany(ctx context.Context, filter any, out any, opts repository.FindOptions) error {
	log := d.log(ctx)
	log.Debug("finding %s documents: filter=%v", d.entity, filter)

	fo := options.Find()
	if proj := projection(opts); proj != nil {
		fo.SetProjection(proj)
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}

	cur, err := d.coll.Find(ctx, filter, fo)
	if err != nil {
		log.Error("failed to query %s: %v", d.entity, err)
		return readError(err)
	}
	if err := cur.All(ctx, out); err != nil {
		log.Error("failed to decode %s documents: %v", d.entity, err)
		return readError(err)
	}
	return nil
}

// Update applies patch to the document with the given id under op.
//
// A set patch is checked against the update schema. For push and addToSet
// the patch maps array fields to single values, each checked against the
// schema registered for that field.
func (d *documents) Update(ctx context.Context, id primitive.ObjectID, op repository.Operator, patch any, opts ...repository.WriteOption) (models.UpdateResult, error) {
	log := d.log(ctx)
	o := repository.ApplyWriteOptions(opts...)

	if !op.Valid() {
		return models.UpdateResult{}, apperrors.NewBadRequestError(fmt.Sprintf("unsupported update operator %q", op))
	}

	raw, err := toRaw(patch)
	if err != nil {
		return models.UpdateResult{}, apperrors.NewValidationError("patch", err.Error())
	}
	elems, err := raw.Elements()
	if err != nil {
		return models.UpdateResult{}, apperrors.NewValidationError("patch", err.Error())
	}
	if len(elems) == 0 {
		return models.UpdateResult{}, apperrors.NewValidationError("patch", "no fields to update")
	}

	if o.SkipValidation {
		log.Warn("updating %s %s with %s without validation", d.entity, id.Hex(), op)
	} else if err := d.checkPatch(op, patch, elems); err != nil {
		log.Debug("rejected %s patch for %s: %v", op, id.Hex(), err)
		return models.UpdateResult{}, err
	}

	return d.updateOne(ctx, id, bson.D{{Key: string(op), Value: raw}})
}

func (d *documents) checkPatch(op repository.Operator, patch any, elems []bson.RawElement) error {
	if op == repository.OpSet {
		return validation.Validate(d.update, patch).Err()
	}

	var fields []apperrors.FieldError
	for _, el := range elems {
		schema, ok := d.elements[el.Key()]
		if !ok {
			fields = append(fields, apperrors.FieldError{Field: el.Key(), Reason: "is not an array field"})
			continue
		}
		res := validation.Validate(schema, elementValue(el.Value()))
		for _, f := range res.Failures {
			for _, fe := range f.Errors {
				fe.Field = el.Key() + "." + fe.Field
				fields = append(fields, fe)
			}
		}
	}
	if len(fields) > 0 {
		return apperrors.NewValidationFailed(fields...)
	}
	return nil
}

// CustomUpdate runs one UpdateOne with a caller-built update document or
// pipeline, so several field changes land in a single atomic write. When
// schema is non-nil, data is checked against it first.
func (d *documents) CustomUpdate(ctx context.Context, id primitive.ObjectID, update any, schema *validation.Schema, data any, opts ...repository.WriteOption) (models.UpdateResult, error) {
	log := d.log(ctx)
	o := repository.ApplyWriteOptions(opts...)

	if schema != nil && !o.SkipValidation {
		if res := validation.Validate(*schema, data); !res.Valid {
			log.Debug("rejected custom update for %s: %v", id.Hex(), res.Err())
			return models.UpdateResult{}, res.Err()
		}
	}
	return d.updateOne(ctx, id, update)
}

func (d *documents) updateOne(ctx context.Context, id primitive.ObjectID, update any) (models.UpdateResult, error) {
	log := d.log(ctx)
	log.Debug("updating %s: id=%s", d.entity, id.Hex())

	res, err := d.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		log.Error("failed to update %s %s: %v", d.entity, id.Hex(), err)
		report := &apperrors.WriteReport{
			Succeeded: []string{},
			Failed:    []apperrors.FailedRecord{{Index: 0, ID: id.Hex(), Message: err.Error()}},
		}
		return models.UpdateResult{}, d.writeError(err, report)
	}
	if res.MatchedCount == 0 {
		log.Debug("%s not found for update: id=%s", d.entity, id.Hex())
		return models.UpdateResult{}, apperrors.NewNotFoundError(d.entity, id.Hex())
	}

	result := models.NewUpdateResult(res.MatchedCount, res.ModifiedCount)
	log.Debug("%s %s update status: %s", d.entity, id.Hex(), result.Status)
	return result, nil
}

// Aggregate runs pipeline and decodes every output document into out.
func (d *documents) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	log := d.log(ctx)
	log.Debug("running %s aggregation with %d stages", d.entity, len(pipeline))

	cur, err := d.coll.Aggregate(ctx, pipeline)
	if err != nil {
		log.Error("aggregation on %s failed: %v", d.entity, err)
		return readError(err)
	}
	if err := cur.All(ctx, out); err != nil {
		log.Error("failed to decode %s aggregation: %v", d.entity, err)
		return readError(err)
	}
	return nil
}

func (d *documents) writeError(err error, report *apperrors.WriteReport) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.NewConflictError(fmt.Sprintf("%s already exists", d.entity))
	}
	if unavailable(err) {
		return apperrors.NewStorageUnavailable(err)
	}
	return apperrors.NewWriteFailed(report, err)
}

func readError(err error) error {
	if unavailable(err) {
		return apperrors.NewStorageUnavailable(err)
	}
	return apperrors.NewInternalError(err)
}

func unavailable(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded)
}

// withID returns doc as an ordered document whose first key is _id.
func withID(doc any) (bson.D, primitive.ObjectID, error) {
	raw, err := toRaw(doc)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	id := primitive.NewObjectID()
	out := bson.D{{Key: "_id", Value: id}}
	for _, el := range elems {
		if el.Key() == "_id" {
			if oid, ok := el.Value().ObjectIDOK(); ok && !oid.IsZero() {
				id = oid
				out[0].Value = oid
			}
			continue
		}
		out = append(out, bson.E{Key: el.Key(), Value: el.Value()})
	}
	return out, id, nil
}

func toRaw(v any) (bson.Raw, error) {
	if raw, ok := v.(bson.Raw); ok {
		return raw, nil
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bson.Raw(b), nil
}

// elementValue unwraps a pushed value for validation.
func elementValue(v bson.RawValue) any {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		return v.Document()
	case bsontype.ObjectID:
		return v.ObjectID()
	case bsontype.String:
		return v.StringValue()
	}
	return v
}

func projection(opts repository.FindOptions) bson.D {
	proj := append(bson.D{}, opts.Projection...)
	if opts.ExcludeID {
		proj = append(proj, bson.E{Key: "_id", Value: 0})
	}
	if len(proj) == 0 {
		return nil
	}
	return proj
}

func describe(filter any) string {
	if f, ok := filter.(bson.D); ok && len(f) == 1 {
		if oid, ok := f[0].Value.(primitive.ObjectID); ok {
			return oid.Hex()
		}
		return fmt.Sprintf("%s=%v", f[0].Key, f[0].Value)
	}
	return fmt.Sprintf("%v", filter)
}
