package services

import (
	"context"
	"time"

	"github.com/dxsocial/backend/internal/models"
	"github.com/sirupsen/logrus"
)

type activityRecorder interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetUserActivities(ctx context.Context, user string, limit int) ([]models.Activity, error)
}

// ActivityService records the user actions that task requirements count.
type ActivityService struct {
	repo activityRecorder
}

func NewActivityService(repo activityRecorder) *ActivityService {
	return &ActivityService{repo: repo}
}

// LogActivity logs a user activity. Errors are logged and swallowed so the
// calling action never fails on bookkeeping.
func (s *ActivityService) LogActivity(ctx context.Context, user, action, targetID string) {
	activity := &models.Activity{
		User:      user,
		Action:    action,
		TargetID:  targetID,
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		logrus.WithFields(logrus.Fields{
			"user":   user,
			"action": action,
			"error":  err,
		}).Error("Failed to log activity in service")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user":   user,
		"action": action,
	}).Debug("Activity logged successfully")
}

// GetRecentActivities returns recent actions performed by a user
func (s *ActivityService) GetRecentActivities(ctx context.Context, user string, limit int) ([]models.Activity, error) {
	return s.repo.GetUserActivities(ctx, user, limit)
}
