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

type PostRepository struct {
	collection *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{
		collection: db.Collection("posts"),
	}
}

// CreatePost inserts a new post.
func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = models.StatusActive
	}

	result, err := r.collection.InsertOne(ctx, post)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert post")
		return nil, fmt.Errorf("failed to insert post: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	post.ID = insertedID

	logrus.WithFields(logrus.Fields{
		"postID": post.ID.Hex(),
		"author": post.Author,
	}).Info("Post created successfully")
	return post, nil
}

// GetPostByID returns an active post.
func (r *PostRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "status": models.StatusActive}).Decode(&post)
	if err != nil {
		return nil, notFound(err, "Post")
	}
	return &post, nil
}

// IncrementViews bumps viewCount and returns the updated post.
func (r *PostRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$inc": bson.M{"viewCount": 1}},
		opts,
	).Decode(&post)
	if err != nil {
		return nil, notFound(err, "Post")
	}
	return &post, nil
}

// SoftDelete marks the post deleted. It reports whether the post was active.
func (r *PostRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusDeleted, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %v", err)
	}
	return res.ModifiedCount > 0, nil
}

// IncCounter adjusts likeCount, commentCount or saveCount.
func (r *PostRepository) IncCounter(ctx context.Context, id primitive.ObjectID, field string, delta int64) error {
	return incGuarded(ctx, r.collection, bson.M{"_id": id}, field, delta)
}

// ListPosts returns active posts matching filter, newest first.
func (r *PostRepository) ListPosts(ctx context.Context, filter bson.M, page models.Page) ([]models.Post, int64, error) {
	f := bson.M{"status": models.StatusActive}
	for k, v := range filter {
		f[k] = v
	}
	return findPage[models.Post](ctx, r.collection, f, bson.D{{Key: "createdAt", Value: -1}}, page)
}

// ListByIDs returns active posts with the given ids, in no particular order.
func (r *PostRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	return findAll[models.Post](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}, "status": models.StatusActive})
}

// TrendingPosts scores active posts created after since in the database.
func (r *PostRepository) TrendingPosts(ctx context.Context, since time.Time, now time.Time, page models.Page) ([]models.Post, int64, error) {
	match := bson.M{"status": models.StatusActive, "createdAt": bson.M{"$gte": since}}

	total, err := r.collection.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trending posts: %v", err)
	}

	hours := bson.M{"$max": bson.A{0, bson.M{"$divide": bson.A{bson.M{"$subtract": bson.A{now, "$createdAt"}}, 3600000}}}}
	engagement := bson.M{"$add": bson.A{
		bson.M{"$multiply": bson.A{"$likeCount", 3}},
		bson.M{"$multiply": bson.A{"$commentCount", 2}},
		"$saveCount",
		bson.M{"$divide": bson.A{"$viewCount", 10}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"trendScore": bson.M{"$round": bson.A{
				bson.M{"$divide": bson.A{engagement, bson.M{"$pow": bson.A{bson.M{"$add": bson.A{hours, 2}}, 1.5}}}},
				2,
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "trendScore", Value: -1}, {Key: "createdAt", Value: -1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to aggregate trending posts: %v", err)
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("failed to decode trending posts: %v", err)
	}
	return posts, total, nil
}

// ActiveSince lists active posts created after since.
func (r *PostRepository) ActiveSince(ctx context.Context, since time.Time) ([]models.Post, error) {
	return findAll[models.Post](ctx, r.collection, bson.M{"status": models.StatusActive, "createdAt": bson.M{"$gte": since}})
}

// SetTrendScores writes the scores in one bulk operation.
func (r *PostRepository) SetTrendScores(ctx context.Context, scores map[primitive.ObjectID]float64) error {
	if len(scores) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(scores))
	for id, score := range scores {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"trendScore": score}}))
	}
	if _, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to update trend scores: %v", err)
	}
	return nil
}

// Search matches content or tags against the regex.
func (r *PostRepository) Search(ctx context.Context, pattern string, limit int) ([]models.Post, error) {
	regex := primitive.Regex{Pattern: pattern, Options: "i"}
	filter := bson.M{
		"status": models.StatusActive,
		"$or":    bson.A{bson.M{"content": regex}, bson.M{"tags": regex}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return findAll[models.Post](ctx, r.collection, filter, opts)
}

type TagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int64  `bson:"count" json:"count"`
}

// SearchTags counts active posts per tag for tags matching the regex.
func (r *PostRepository) SearchTags(ctx context.Context, pattern string, limit int) ([]TagCount, error) {
	regex := primitive.Regex{Pattern: pattern, Options: "i"}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusActive, "tags": regex}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$match", Value: bson.M{"tags": regex}}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tags: %v", err)
	}
	defer cursor.Close(ctx)

	tags := []TagCount{}
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %v", err)
	}
	return tags, nil
}

// CountByAuthor counts active posts by author.
func (r *PostRepository) CountByAuthor(ctx context.Context, author string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"author": author, "status": models.StatusActive})
}
