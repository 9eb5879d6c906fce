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

// UserRepository handles database operations related to users.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.LastActiveAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, duplicate(err, "User already exists", "insert user")
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	user.ID = insertedID

	logrus.WithField("address", user.WalletAddress).Info("User inserted successfully")
	return user, nil
}

// GetUserByAddress retrieves a user by wallet address.
func (r *UserRepository) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"walletAddress": address}).Decode(&user)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

// GetUsersByAddresses fetches users keyed by wallet address.
func (r *UserRepository) GetUsersByAddresses(ctx context.Context, addresses []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	users, err := findAll[models.User](ctx, r.collection, bson.M{"walletAddress": bson.M{"$in": addresses}})
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].WalletAddress] = &users[i]
	}
	return out, nil
}

// Exists reports whether a user with the address exists.
func (r *UserRepository) Exists(ctx context.Context, address string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"walletAddress": address}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check user: %v", err)
	}
	return n > 0, nil
}

// SetNonce stores a login nonce, creating the user record on first contact.
func (r *UserRepository) SetNonce(ctx context.Context, address, nonce string, expiry time.Time) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{
			"$set": bson.M{"nonce": nonce, "nonceExpiry": expiry, "updatedAt": now},
			"$setOnInsert": bson.M{
				"walletAddress":  address,
				"bio":            "",
				"followerCount":  0,
				"followingCount": 0,
				"postCount":      0,
				"nftCount":       0,
				"commentCount":   0,
				"points":         0,
				"checkInStreak":  0,
				"subscription":   models.Subscription{Level: 1},
				"isVerified":     false,
				"role":           models.RoleUser,
				"status":         models.UserStatusActive,
				"lastActiveAt":   now,
				"createdAt":      now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to store nonce")
		return fmt.Errorf("failed to store nonce: %v", err)
	}
	return nil
}

// CompleteLogin clears the nonce and stores the refresh token and role.
// A default username is assigned when the user has none yet.
func (r *UserRepository) CompleteLogin(ctx context.Context, address, refreshToken, role, defaultUsername string) (*models.User, error) {
	now := time.Now()
	set := bson.M{"refreshToken": refreshToken, "role": role, "lastActiveAt": now, "updatedAt": now}

	user, err := r.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if user.Username == "" && defaultUsername != "" {
		set["username"] = defaultUsername
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"walletAddress": address},
		bson.M{
			"$set":   set,
			"$unset": bson.M{"nonce": "", "nonceExpiry": ""},
		},
		opts,
	).Decode(&updated)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return &updated, nil
}

// SetRefreshToken replaces the stored refresh token. Empty clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, address, token string) error {
	update := bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now()}}
	if token == "" {
		update = bson.M{"$unset": bson.M{"refreshToken": ""}, "$set": bson.M{"updatedAt": time.Now()}}
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"walletAddress": address}, update); err != nil {
		return fmt.Errorf("failed to update refresh token: %v", err)
	}
	return nil
}

// ClearRefreshToken removes the refresh token wherever it is stored.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, token string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"refreshToken": token},
		bson.M{"$unset": bson.M{"refreshToken": ""}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear refresh token: %v", err)
	}
	return nil
}

// UpdateUser sets the given fields and returns the updated user.
func (r *UserRepository) UpdateUser(ctx context.Context, address string, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"walletAddress": address}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicate(err, "Username already taken", "update user")
		}
		logrus.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to update user")
		return nil, notFound(err, "User")
	}

	logrus.WithField("address", address).Info("User updated successfully")
	return &user, nil
}

// IncCounter adjusts one of the denormalised counters; it never goes below zero.
func (r *UserRepository) IncCounter(ctx context.Context, address, field string, delta int64) error {
	return incGuarded(ctx, r.collection, bson.M{"walletAddress": address}, field, delta)
}

// AddPoints credits reward points.
func (r *UserRepository) AddPoints(ctx context.Context, address string, points int64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{"$inc": bson.M{"points": points}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to add points: %v", err)
	}
	return nil
}

// RecordCheckIn credits check-in points and stores the new streak.
func (r *UserRepository) RecordCheckIn(ctx context.Context, address string, points int64, streak int, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{
			"$inc": bson.M{"points": points},
			"$set": bson.M{"checkInStreak": streak, "lastCheckIn": at, "updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record check-in: %v", err)
	}
	return nil
}

// UpdateSubscription stores the cached subscription.
func (r *UserRepository) UpdateSubscription(ctx context.Context, address string, sub models.Subscription) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{"$set": bson.M{"subscription": sub, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %v", err)
	}
	return nil
}

// UpdateLastActive touches lastActiveAt.
func (r *UserRepository) UpdateLastActive(ctx context.Context, address string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{"$set": bson.M{"lastActiveAt": time.Now()}},
	)
	return err
}

// SetStats overwrites the recounted counters.
func (r *UserRepository) SetStats(ctx context.Context, address string, posts, nfts, comments int64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"walletAddress": address},
		bson.M{"$set": bson.M{"postCount": posts, "nftCount": nfts, "commentCount": comments, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %v", err)
	}
	return nil
}

// Leaderboard lists active users by points.
func (r *UserRepository) Leaderboard(ctx context.Context, page models.Page) ([]models.User, int64, error) {
	return findPage[models.User](ctx, r.collection,
		bson.M{"status": models.UserStatusActive},
		bson.D{{Key: "points", Value: -1}, {Key: "createdAt", Value: 1}},
		page,
	)
}

// GetSubscribedUsers returns users whose cached level is above Standard.
func (r *UserRepository) GetSubscribedUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, r.collection, bson.M{"subscription.level": bson.M{"$gt": 1}})
}

// Search matches username, ENS name or bio against the regex.
func (r *UserRepository) Search(ctx context.Context, pattern string, limit int, sortByFollowers bool) ([]models.User, error) {
	regex := primitive.Regex{Pattern: pattern, Options: "i"}
	filter := bson.M{
		"status": models.UserStatusActive,
		"$or": bson.A{
			bson.M{"username": regex},
			bson.M{"ensName": regex},
			bson.M{"bio": regex},
		},
	}
	opts := options.Find().SetLimit(int64(limit))
	if sortByFollowers {
		opts.SetSort(bson.D{{Key: "followerCount", Value: -1}})
	}
	return findAll[models.User](ctx, r.collection, filter, opts)
}
