package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotifyLike     = "like"
	NotifyComment  = "comment"
	NotifyFollow   = "follow"
	NotifyMention  = "mention"
	NotifyPurchase = "purchase"
	NotifySale     = "sale"
	NotifySystem   = "system"
)

type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient  string             `bson:"recipient" json:"recipient"`
	Type       string             `bson:"type" json:"type"`
	Sender     string             `bson:"sender,omitempty" json:"sender,omitempty"`
	Content    string             `bson:"content" json:"content"`
	Read       bool               `bson:"read" json:"read"`
	TargetType string             `bson:"targetType,omitempty" json:"targetType,omitempty"`
	TargetID   string             `bson:"targetId,omitempty" json:"targetId,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"expiresAt"`
}
