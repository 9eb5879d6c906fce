package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dxsocial/backend/internal/config"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB connects to MongoDB and verifies the connection with a ping.
func ConnectDB(cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	logrus.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return client.Database(cfg.MongoDB), nil
}

// Disconnect closes the client behind db.
func Disconnect(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %v", err)
	}
	logrus.Info("Disconnected from MongoDB")
	return nil
}

func unique(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

func index(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys}
}

// Indexes lists the indexes every collection needs.
var Indexes = map[string][]mongo.IndexModel{
	"users": {
		unique(bson.D{{Key: "walletAddress", Value: 1}}),
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		index(bson.D{{Key: "points", Value: -1}}),
		index(bson.D{{Key: "subscription.level", Value: 1}}),
		{
			Keys: bson.D{{Key: "username", Value: "text"}, {Key: "ensName", Value: "text"}, {Key: "bio", Value: "text"}},
		},
	},
	"posts": {
		index(bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}),
		index(bson.D{{Key: "tags", Value: 1}}),
		index(bson.D{{Key: "likeCount", Value: -1}}),
		index(bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}),
		{
			Keys: bson.D{{Key: "content", Value: "text"}, {Key: "tags", Value: "text"}},
		},
	},
	"comments": {
		index(bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: -1}}),
		index(bson.D{{Key: "parentId", Value: 1}}),
		index(bson.D{{Key: "author", Value: 1}}),
	},
	"likes": {
		unique(bson.D{{Key: "user", Value: 1}, {Key: "postId", Value: 1}}),
		index(bson.D{{Key: "postId", Value: 1}}),
	},
	"follows": {
		unique(bson.D{{Key: "follower", Value: 1}, {Key: "following", Value: 1}}),
		index(bson.D{{Key: "following", Value: 1}}),
	},
	"saved_posts": {
		unique(bson.D{{Key: "user", Value: 1}, {Key: "postId", Value: 1}}),
	},
	"nft_cache": {
		unique(bson.D{{Key: "tokenId", Value: 1}}),
		index(bson.D{{Key: "creator", Value: 1}}),
		index(bson.D{{Key: "owner", Value: 1}}),
		index(bson.D{{Key: "forSale", Value: 1}}),
		index(bson.D{{Key: "mintedAt", Value: -1}}),
		{
			Keys: bson.D{{Key: "metadata.name", Value: "text"}, {Key: "metadata.description", Value: "text"}},
		},
	},
	"tasks": {
		index(bson.D{{Key: "isActive", Value: 1}, {Key: "type", Value: 1}}),
	},
	"completed_tasks": {
		unique(bson.D{{Key: "user", Value: 1}, {Key: "taskId", Value: 1}, {Key: "completedForDate", Value: 1}}),
		index(bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}),
	},
	"checkins": {
		unique(bson.D{{Key: "user", Value: 1}, {Key: "date", Value: 1}}),
	},
	"notifications": {
		index(bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}),
		index(bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}}),
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	},
	"activities": {
		index(bson.D{{Key: "user", Value: 1}, {Key: "action", Value: 1}, {Key: "createdAt", Value: -1}}),
	},
	"sync_state": {
		unique(bson.D{{Key: "key", Value: 1}}),
	},
}

// EnsureIndexes creates the indexes listed in Indexes. Existing indexes are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range Indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %v", name, err)
		}
		logrus.WithFields(logrus.Fields{
			"collection": name,
			"count":      len(models),
		}).Debug("Indexes ensured")
	}
	return nil
}
