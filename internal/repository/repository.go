package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// notFound converts mongo.ErrNoDocuments into apperr.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Newf(apperr.ErrNotFound, "%s not found", what)
	}
	return fmt.Errorf("failed to fetch %s: %v", what, err)
}

// duplicate converts a duplicate-key error into apperr.ErrAlreadyExists with msg.
func duplicate(err error, msg, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.New(apperr.ErrAlreadyExists, msg)
	}
	return fmt.Errorf("failed to %s: %v", op, err)
}

// incGuarded adds delta to field, never taking it below zero.
func incGuarded(ctx context.Context, coll *mongo.Collection, filter bson.M, field string, delta int64) error {
	f := bson.M{}
	for k, v := range filter {
		f[k] = v
	}
	if delta < 0 {
		f[field] = bson.M{"$gte": -delta}
	}
	_, err := coll.UpdateOne(ctx, f, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("failed to update %s: %v", field, err)
	}
	return nil
}

// findPage runs a paginated Find and the matching CountDocuments.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, sort bson.D, page models.Page) ([]T, int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %v", err)
	}

	opts := options.Find().SetSort(sort).SetSkip(page.Skip()).SetLimit(int64(page.Limit))
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch documents: %v", err)
	}
	defer cursor.Close(ctx)

	items := make([]T, 0, page.Limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode documents: %v", err)
	}
	return items, total, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %v", err)
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %v", err)
	}
	return items, nil
}
