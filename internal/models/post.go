package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive  = "active"
	StatusHidden  = "hidden"
	StatusDeleted = "deleted"
)

type Media struct {
	Type     string `bson:"type" json:"type"`
	URI      string `bson:"uri" json:"uri"`
	MimeType string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
}

type Post struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author       string             `bson:"author" json:"author"`
	Content      string             `bson:"content" json:"content"`
	ContentURI   string             `bson:"contentURI,omitempty" json:"contentURI,omitempty"`
	Media        []Media            `bson:"media" json:"media"`
	Tags         []string           `bson:"tags" json:"tags"`
	Mentions     []string           `bson:"mentions" json:"mentions"`
	LikeCount    int64              `bson:"likeCount" json:"likeCount"`
	CommentCount int64              `bson:"commentCount" json:"commentCount"`
	SaveCount    int64              `bson:"saveCount" json:"saveCount"`
	ViewCount    int64              `bson:"viewCount" json:"viewCount"`
	TrendScore   float64            `bson:"trendScore" json:"trendScore"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PostView is a post as returned to a particular viewer.
type PostView struct {
	Post          `bson:",inline"`
	AuthorDetails *AuthorDetails `json:"authorDetails,omitempty"`
	IsLiked       bool           `json:"isLiked"`
	IsSaved       bool           `json:"isSaved"`
}

type Comment struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PostID     primitive.ObjectID  `bson:"postId" json:"postId"`
	Author     string              `bson:"author" json:"author"`
	Content    string              `bson:"content" json:"content"`
	ContentURI string              `bson:"contentURI,omitempty" json:"contentURI,omitempty"`
	ParentID   *primitive.ObjectID `bson:"parentId" json:"parentId"`
	Depth      int                 `bson:"depth" json:"depth"`
	Media      []Media             `bson:"media" json:"media"`
	LikeCount  int64               `bson:"likeCount" json:"likeCount"`
	ReplyCount int64               `bson:"replyCount" json:"replyCount"`
	Status     string              `bson:"status" json:"status"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type CommentView struct {
	Comment       `bson:",inline"`
	AuthorDetails *AuthorDetails `json:"authorDetails,omitempty"`
	Replies       int64          `json:"replies"`
}
