package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRelationRepository stores (user, postId) pairs: likes and saved posts.
type PostRelationRepository struct {
	collection *mongo.Collection
	duplicate  string
}

func NewLikeRepository(db *mongo.Database) *PostRelationRepository {
	return &PostRelationRepository{collection: db.Collection("likes"), duplicate: "Post already liked"}
}

func NewSavedPostRepository(db *mongo.Database) *PostRelationRepository {
	return &PostRelationRepository{collection: db.Collection("saved_posts"), duplicate: "Post already saved"}
}

// Add inserts the pair; an existing pair yields apperr.ErrAlreadyExists.
func (r *PostRelationRepository) Add(ctx context.Context, user string, postID primitive.ObjectID) error {
	_, err := r.collection.InsertOne(ctx, bson.M{"user": user, "postId": postID, "createdAt": time.Now()})
	if err != nil {
		return duplicate(err, r.duplicate, "insert relation")
	}
	return nil
}

// Remove deletes the pair and reports whether it existed.
func (r *PostRelationRepository) Remove(ctx context.Context, user string, postID primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"user": user, "postId": postID})
	if err != nil {
		return false, fmt.Errorf("failed to delete relation: %v", err)
	}
	return res.DeletedCount > 0, nil
}

// Marked returns the subset of postIDs the user has a pair for.
func (r *PostRelationRepository) Marked(ctx context.Context, user string, postIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := make(map[primitive.ObjectID]bool)
	if user == "" || len(postIDs) == 0 {
		return out, nil
	}
	rels, err := findAll[models.SavedPost](ctx, r.collection, bson.M{"user": user, "postId": bson.M{"$in": postIDs}})
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		out[rel.PostID] = true
	}
	return out, nil
}

// PostIDs pages the user's post ids, newest first.
func (r *PostRelationRepository) PostIDs(ctx context.Context, user string, page models.Page) ([]primitive.ObjectID, int64, error) {
	rels, total, err := findPage[models.SavedPost](ctx, r.collection, bson.M{"user": user}, bson.D{{Key: "createdAt", Value: -1}}, page)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]primitive.ObjectID, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.PostID)
	}
	return ids, total, nil
}

// FollowRepository handles follower/following edges.
type FollowRepository struct {
	collection *mongo.Collection
}

func NewFollowRepository(db *mongo.Database) *FollowRepository {
	return &FollowRepository{collection: db.Collection("follows")}
}

func (r *FollowRepository) Follow(ctx context.Context, follower, following string) error {
	_, err := r.collection.InsertOne(ctx, models.Follow{Follower: follower, Following: following, CreatedAt: time.Now()})
	if err != nil {
		return duplicate(err, "Already following this user", "insert follow")
	}
	return nil
}

func (r *FollowRepository) Unfollow(ctx context.Context, follower, following string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"follower": follower, "following": following})
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %v", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *FollowRepository) IsFollowing(ctx context.Context, follower, following string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"follower": follower, "following": following}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %v", err)
	}
	return n > 0, nil
}

// Followers pages the follow edges pointing at address, newest first.
func (r *FollowRepository) Followers(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error) {
	return findPage[models.Follow](ctx, r.collection, bson.M{"following": address}, bson.D{{Key: "createdAt", Value: -1}}, page)
}

// Following pages the follow edges leaving address, newest first.
func (r *FollowRepository) Following(ctx context.Context, address string, page models.Page) ([]models.Follow, int64, error) {
	return findPage[models.Follow](ctx, r.collection, bson.M{"follower": address}, bson.D{{Key: "createdAt", Value: -1}}, page)
}

// FollowingAddresses returns every address the user follows.
func (r *FollowRepository) FollowingAddresses(ctx context.Context, address string) ([]string, error) {
	edges, err := findAll[models.Follow](ctx, r.collection, bson.M{"follower": address})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Following)
	}
	return out, nil
}
