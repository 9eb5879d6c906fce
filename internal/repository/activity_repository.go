package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		collection: db.Collection("activities"),
	}
}

// CreateActivity inserts a new activity log
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert activity")
		return fmt.Errorf("failed to insert activity: %v", err)
	}
	return nil
}

// CountSince counts the user's actions of one kind at or after since.
func (r *ActivityRepository) CountSince(ctx context.Context, user, action string, since time.Time) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"user": user, "action": action, "createdAt": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %v", err)
	}
	return n, nil
}

// GetUserActivities fetches recent activities of a specific user
func (r *ActivityRepository) GetUserActivities(ctx context.Context, user string, limit int) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return findAll[models.Activity](ctx, r.collection, bson.M{"user": user}, opts)
}

func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge activities: %v", err)
	}
	return res.DeletedCount, nil
}

type SyncStateRepository struct {
	collection *mongo.Collection
}

func NewSyncStateRepository(db *mongo.Database) *SyncStateRepository {
	return &SyncStateRepository{collection: db.Collection("sync_state")}
}

// LastBlock returns the checkpoint for key; ok is false when none is stored.
func (r *SyncStateRepository) LastBlock(ctx context.Context, key string) (uint64, bool, error) {
	var state models.SyncState
	err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&state)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read sync state: %v", err)
	}
	return state.LastBlock, true, nil
}

func (r *SyncStateRepository) SaveLastBlock(ctx context.Context, key string, block uint64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"lastBlock": block, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %v", err)
	}
	return nil
}
