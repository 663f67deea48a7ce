package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if err := conn(ctx, r.db).Create(n).Error; err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uint) (*notification.Notification, error) {
	var n notification.Notification
	err := conn(ctx, r.db).Where("id = ?", id).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notification.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification %d: %w", id, err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*notification.Notification, error) {
	db := conn(ctx, r.db).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	var out []*notification.Notification
	if err := db.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Model(&notification.Notification{}).Where("id = ?", id).Update("is_read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&notification.Notification{}, id).Error
}
