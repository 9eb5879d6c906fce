package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Like struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      string             `bson:"user" json:"user"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Follow struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Follower  string             `bson:"follower" json:"follower"`
	Following string             `bson:"following" json:"following"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type SavedPost struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      string             `bson:"user" json:"user"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
