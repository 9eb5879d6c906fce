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
)

// NotificationTTL is how long a notification is kept.
const NotificationTTL = 30 * 24 * time.Hour

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotification inserts a new notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) error {
	notif.CreatedAt = time.Now()
	notif.ExpiresAt = notif.CreatedAt.Add(NotificationTTL)

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return fmt.Errorf("failed to create notification: %v", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		notif.ID = id
	}
	return nil
}

// ListForRecipient pages notifications, newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipient string, unreadOnly bool, page models.Page) ([]models.Notification, int64, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["read"] = false
	}
	return findPage[models.Notification](ctx, r.collection, filter, bson.D{{Key: "createdAt", Value: -1}}, page)
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}

// MarkAsRead sets read on a notification owned by recipient.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID, recipient string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "recipient": recipient}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %v", err)
	}
	if res.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "Notification")
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, recipient string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx, bson.M{"recipient": recipient, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %v", err)
	}
	return res.ModifiedCount, nil
}

// DeleteNotification deletes a notification owned by recipient.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id primitive.ObjectID, recipient string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	if res.DeletedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "Notification")
	}
	return nil
}

// DeleteExpiredNotifications removes notifications past their expiry.
func (r *NotificationRepository) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %v", err)
	}
	logrus.Infof("Deleted %d expired notifications", result.DeletedCount)
	return result.DeletedCount, nil
}
