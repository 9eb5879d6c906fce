package services

import (
	"context"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pusher delivers a stored notification to live connections of recipient.
type Pusher interface {
	Push(recipient string, n *models.Notification)
}

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	enabled  bool
	pusher   Pusher
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, enabled bool) *NotificationService {
	return &NotificationService{
		repo:     repo,
		userRepo: userRepo,
		enabled:  enabled,
	}
}

// SetPusher attaches the live delivery hub.
func (s *NotificationService) SetPusher(p Pusher) {
	s.pusher = p
}

// Notify stores n and pushes it live. Self notifications, unknown recipients
// and a disabled feature flag are silently skipped.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	if !s.enabled || n.Recipient == "" {
		return
	}
	if n.Sender != "" && n.Sender == n.Recipient {
		return
	}

	exists, err := s.userRepo.Exists(ctx, n.Recipient)
	if err != nil {
		logrus.WithError(err).Warn("Failed to check notification recipient")
		return
	}
	if !exists {
		logrus.WithField("recipient", n.Recipient).Debug("Skipping notification for unknown recipient")
		return
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		logrus.WithFields(logrus.Fields{
			"recipient": n.Recipient,
			"type":      n.Type,
			"error":     err,
		}).Warn("Failed to create notification")
		return
	}
	if s.pusher != nil {
		s.pusher.Push(n.Recipient, n)
	}
}

type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	Pagination    models.Pagination     `json:"pagination"`
}

// GetUserNotifications pages the recipient's notifications, newest first.
func (s *NotificationService) GetUserNotifications(ctx context.Context, recipient string, unreadOnly bool, page models.Page) (*NotificationList, error) {
	items, total, err := s.repo.ListForRecipient(ctx, recipient, unreadOnly, page)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return &NotificationList{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    models.NewPagination(total, page.Page, page.Limit),
	}, nil
}

func parseNotificationID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.ErrInvalidInput, "Invalid notification ID")
	}
	return objID, nil
}

// MarkNotificationAsRead sets read on one of the recipient's notifications.
func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, id, recipient string) error {
	objID, err := parseNotificationID(id)
	if err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, objID, recipient)
}

// MarkAllAsRead returns the number of notifications it changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipient string) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, recipient)
}

func (s *NotificationService) DeleteNotification(ctx context.Context, id, recipient string) error {
	objID, err := parseNotificationID(id)
	if err != nil {
		return err
	}
	return s.repo.DeleteNotification(ctx, objID, recipient)
}

// DeleteExpiredNotifications removes notifications past expiresAt.
func (s *NotificationService) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.repo.DeleteExpiredNotifications(ctx)
	if err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"deleted":  n,
		"duration": time.Since(start).String(),
	}).Info("Expired notifications cleaned up")
	return n, nil
}
