package repository

import "go.mongodb.org/mongo-driver/bson"

// Operator selects how an update applies its patch.
type Operator string

const (
	OpSet      Operator = "$set"
	OpPush     Operator = "$push"
	OpAddToSet Operator = "$addToSet"
)

func (o Operator) Valid() bool {
	switch o {
	case OpSet, OpPush, OpAddToSet:
		return true
	}
	return false
}

type WriteOptions struct {
	SkipValidation bool
}

type WriteOption func(*WriteOptions)

// SkipValidation persists documents without checking them against the
// collection schema. Only trusted callers such as seeding use it.
func SkipValidation() WriteOption {
	return func(o *WriteOptions) { o.SkipValidation = true }
}

func ApplyWriteOptions(opts ...WriteOption) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FindOptions shapes the documents a read returns.
type FindOptions struct {
	ExcludeID  bool
	Projection bson.D
	Sort       bson.D
	Limit      int64
	Skip       int64
}
