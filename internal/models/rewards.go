package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskDaily   = "daily"
	TaskWeekly  = "weekly"
	TaskSpecial = "special"
)

// OneTimePeriod is the completedForDate of special task completions.
var OneTimePeriod = time.Unix(0, 0).UTC()

type TaskRequirement struct {
	Action string `bson:"action" json:"action"`
	Count  int    `bson:"count" json:"count"`
}

type Task struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Type         string             `bson:"type" json:"type"`
	RewardPoints int64              `bson:"rewardPoints" json:"rewardPoints"`
	RewardTokens int64              `bson:"rewardTokens" json:"rewardTokens"`
	Requirements TaskRequirement    `bson:"requirements" json:"requirements"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CompletedTask struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             string             `bson:"user" json:"user"`
	TaskID           primitive.ObjectID `bson:"taskId" json:"taskId"`
	CompletedForDate time.Time          `bson:"completedForDate" json:"completedForDate"`
	PointsEarned     int64              `bson:"pointsEarned" json:"pointsEarned"`
	TokensEarned     int64              `bson:"tokensEarned" json:"tokensEarned"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserTask is a task annotated with the caller's progress for the current period.
type UserTask struct {
	Task        `bson:",inline"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type CheckIn struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User         string             `bson:"user" json:"user"`
	Date         time.Time          `bson:"date" json:"date"`
	Streak       int                `bson:"streak" json:"streak"`
	PointsEarned int64              `bson:"pointsEarned" json:"pointsEarned"`
	TokensEarned int64              `bson:"tokensEarned" json:"tokensEarned"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
