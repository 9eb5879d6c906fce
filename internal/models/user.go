package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDeleted   = "deleted"
)

// Subscription is the cached copy of the on-chain subscription.
type Subscription struct {
	Level      int        `bson:"level" json:"level"`
	Expiration *time.Time `bson:"expiration,omitempty" json:"expiration,omitempty"`
}

// Active reports whether the subscription has not expired at now.
func (s Subscription) Active(now time.Time) bool {
	return s.Expiration != nil && s.Expiration.After(now)
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WalletAddress  string             `bson:"walletAddress" json:"walletAddress"`
	Username       string             `bson:"username,omitempty" json:"username,omitempty"`
	ENSName        string             `bson:"ensName,omitempty" json:"ensName,omitempty"`
	Bio            string             `bson:"bio" json:"bio"`
	MetadataURI    string             `bson:"metadataURI,omitempty" json:"metadataURI,omitempty"`
	AvatarURI      string             `bson:"avatarURI,omitempty" json:"avatarURI,omitempty"`
	CoverURI       string             `bson:"coverURI,omitempty" json:"coverURI,omitempty"`
	Nonce          string             `bson:"nonce,omitempty" json:"-"`
	NonceExpiry    *time.Time         `bson:"nonceExpiry,omitempty" json:"-"`
	RefreshToken   string             `bson:"refreshToken,omitempty" json:"-"`
	FollowerCount  int64              `bson:"followerCount" json:"followerCount"`
	FollowingCount int64              `bson:"followingCount" json:"followingCount"`
	PostCount      int64              `bson:"postCount" json:"postCount"`
	NFTCount       int64              `bson:"nftCount" json:"nftCount"`
	CommentCount   int64              `bson:"commentCount" json:"commentCount"`
	Points         int64              `bson:"points" json:"points"`
	LastCheckIn    *time.Time         `bson:"lastCheckIn,omitempty" json:"lastCheckIn,omitempty"`
	CheckInStreak  int                `bson:"checkInStreak" json:"checkInStreak"`
	Subscription   Subscription       `bson:"subscription" json:"subscription"`
	IsVerified     bool               `bson:"isVerified" json:"isVerified"`
	Role           string             `bson:"role" json:"role"`
	Status         string             `bson:"status" json:"status"`
	LastActiveAt   time.Time          `bson:"lastActiveAt,omitempty" json:"lastActiveAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsSubscribed reports whether the cached subscription is still running.
func (u *User) IsSubscribed() bool {
	return u.Subscription.Active(time.Now())
}

// AuthorDetails is the author summary embedded in post, comment and NFT responses.
type AuthorDetails struct {
	Username   string `json:"username"`
	AvatarURI  string `json:"avatarURI"`
	IsVerified bool   `json:"isVerified"`
}
