package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{
		collection: db.Collection("tasks"),
	}
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %v", err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	task.ID = insertedID

	logrus.WithFields(logrus.Fields{"taskID": task.ID.Hex(), "name": task.Name}).Info("Task created")
	return task, nil
}

func (r *TaskRepository) GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, notFound(err, "Task")
	}
	return &task, nil
}

// GetActiveTaskByName finds an active task by its display name.
func (r *TaskRepository) GetActiveTaskByName(ctx context.Context, name string) (*models.Task, error) {
	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"name": name, "isActive": true}).Decode(&task); err != nil {
		return nil, notFound(err, "Task")
	}
	return &task, nil
}

// ListActive returns active tasks sorted by type, then by reward.
func (r *TaskRepository) ListActive(ctx context.Context) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "rewardPoints", Value: -1}})
	return findAll[models.Task](ctx, r.collection, bson.M{"isActive": true}, opts)
}

func (r *TaskRepository) UpdateTask(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Task, error) {
	set["updatedAt"] = time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var task models.Task
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&task); err != nil {
		return nil, notFound(err, "Task")
	}
	return &task, nil
}

type CompletedTaskRepository struct {
	collection *mongo.Collection
}

func NewCompletedTaskRepository(db *mongo.Database) *CompletedTaskRepository {
	return &CompletedTaskRepository{collection: db.Collection("completed_tasks")}
}

// Insert records a completion; a second completion in the same period fails with ErrAlreadyExists.
func (r *CompletedTaskRepository) Insert(ctx context.Context, c *models.CompletedTask) error {
	c.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		return duplicate(err, "Task already completed today", "insert completed task")
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

// Find returns the completion for the period, or nil.
func (r *CompletedTaskRepository) Find(ctx context.Context, user string, taskID primitive.ObjectID, period time.Time) (*models.CompletedTask, error) {
	var c models.CompletedTask
	err := r.collection.FindOne(ctx, bson.M{"user": user, "taskId": taskID, "completedForDate": period}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed task: %v", err)
	}
	return &c, nil
}

// ListSince returns the user's completions created at or after since.
func (r *CompletedTaskRepository) ListSince(ctx context.Context, user string, since time.Time) ([]models.CompletedTask, error) {
	return findAll[models.CompletedTask](ctx, r.collection, bson.M{"user": user, "createdAt": bson.M{"$gte": since}})
}

// DeleteRecurringBefore removes daily and weekly completions created before cutoff.
// One-time completions are never removed.
func (r *CompletedTaskRepository) DeleteRecurringBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"createdAt":        bson.M{"$lt": cutoff},
		"completedForDate": bson.M{"$gt": models.OneTimePeriod},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed tasks: %v", err)
	}
	return res.DeletedCount, nil
}

type CheckInRepository struct {
	collection *mongo.Collection
}

func NewCheckInRepository(db *mongo.Database) *CheckInRepository {
	return &CheckInRepository{collection: db.Collection("checkins")}
}

func (r *CheckInRepository) Insert(ctx context.Context, c *models.CheckIn) error {
	c.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		return duplicate(err, "Already checked in today", "insert check-in")
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

// Latest returns the user's most recent check-in, or nil.
func (r *CheckInRepository) Latest(ctx context.Context, user string) (*models.CheckIn, error) {
	var c models.CheckIn
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"user": user}, opts).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch check-in: %v", err)
	}
	return &c, nil
}
