package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actions tracked for task requirements.
const (
	ActionPost    = "post"
	ActionLike    = "like"
	ActionComment = "comment"
	ActionFollow  = "follow"
	ActionCheckIn = "check-in"
	ActionMintNFT = "mint-nft"
)

type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      string             `bson:"user" json:"user"`
	Action    string             `bson:"action" json:"action"`
	TargetID  string             `bson:"targetId,omitempty" json:"targetId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// SyncState is the checkpoint of a chain poller.
type SyncState struct {
	Key       string    `bson:"key" json:"key"`
	LastBlock uint64    `bson:"lastBlock" json:"lastBlock"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
