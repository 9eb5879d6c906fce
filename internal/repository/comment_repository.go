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
)

type CommentRepository struct {
	collection *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	return &CommentRepository{
		collection: db.Collection("comments"),
	}
}

func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.Status = models.StatusActive

	result, err := r.collection.InsertOne(ctx, comment)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert comment")
		return nil, fmt.Errorf("failed to insert comment: %v", err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	comment.ID = insertedID
	return comment, nil
}

func (r *CommentRepository) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "status": models.StatusActive}).Decode(&comment)
	if err != nil {
		return nil, notFound(err, "Comment")
	}
	return &comment, nil
}

// ListByPost lists top-level comments of a post, newest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error) {
	filter := bson.M{"postId": postID, "parentId": nil, "status": models.StatusActive}
	return findPage[models.Comment](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: -1}}, page)
}

// ListReplies lists replies to a comment, oldest first.
func (r *CommentRepository) ListReplies(ctx context.Context, parentID primitive.ObjectID, page models.Page) ([]models.Comment, int64, error) {
	filter := bson.M{"parentId": parentID, "status": models.StatusActive}
	return findPage[models.Comment](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: 1}}, page)
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusDeleted, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment: %v", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *CommentRepository) IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error {
	return incGuarded(ctx, r.collection, bson.M{"_id": id}, field, delta)
}

func (r *CommentRepository) CountByAuthor(ctx context.Context, author string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"author": author, "status": models.StatusActive})
}
