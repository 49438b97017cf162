package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

const DefaultMaxRetries = 3

// Try executes an operation, retrying on duplicate key errors.
// Duplicate keys happen when a freshly generated ID collides; regenerating
// and retrying is cheaper than coordinating ID allocation up front.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries executes an operation up to 1+maxRetries times, retrying only
// when shouldRetry reports the error as retryable.
func WithRetries(op Operation, maxRetries int, shouldRetry func(err error) bool) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if shouldRetry(err) {
			time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond) // Simple incremental backoff
		} else {
			return err
		}
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// Identifiable is implemented by models that can (re)generate their own ID.
type Identifiable interface {
	GenID()
	GenIDIfEmpty()
}

// InsertOne inserts a document, generating an ID if the model has none and
// regenerating it on duplicate key collisions before retrying.
func InsertOne(ctx context.Context, coll *mongo.Collection, doc Identifiable) (Identifiable, error) {
	doc.GenIDIfEmpty()
	err := WithRetries(func() error {
		_, insertErr := coll.InsertOne(ctx, doc)
		if insertErr != nil && IsMongoDuplicateKeyError(insertErr) {
			doc.GenID()
		}
		return insertErr
	}, DefaultMaxRetries, IsMongoDuplicateKeyError)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
