package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"go.uber.org/zap"
)

type NotificationInput struct {
	Type        notification.Type
	Title       string
	Message     string
	RelatedID   *uint
	RelatedType notification.RelatedType
}

// NotificationSink is how workflow services tell a user something happened.
type NotificationSink interface {
	Notify(ctx context.Context, userID uint, in NotificationInput) (*notification.Notification, error)
}

type NotificationService struct {
	repo      notification.Repository
	publisher events.Publisher
	metrics   *metrics.Collector
	log       *zap.Logger
	now       func() time.Time
}

func NewNotificationService(repo notification.Repository, publisher events.Publisher, m *metrics.Collector, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, metrics: m, log: log, now: time.Now}
}

// Notify stores the notification and then announces it on the event bus.
// Only the store write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, userID uint, in NotificationInput) (*notification.Notification, error) {
	n := &notification.Notification{
		UserID:      userID,
		Title:       in.Title,
		Message:     in.Message,
		Type:        in.Type,
		RelatedID:   in.RelatedID,
		RelatedType: in.RelatedType,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	s.metrics.NotificationsTotal.WithLabelValues(string(n.Type)).Inc()

	err := s.publisher.Publish(ctx, events.Event{
		Name:       events.NotificationCreated,
		UserID:     userID,
		OccurredAt: s.now().UTC(),
		Data: map[string]any{
			"notification_id": n.ID,
			"type":            n.Type,
			"title":           n.Title,
			"related_id":      n.RelatedID,
			"related_type":    n.RelatedType,
		},
	})
	if err != nil {
		s.metrics.BestEffortFailures.WithLabelValues("event").Inc()
		s.log.Warn("failed to publish notification event",
			zap.Error(err),
			zap.Uint("notification_id", n.ID),
		)
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, caller *domain.User) ([]*notification.Notification, error) {
	return s.repo.ListByUser(ctx, caller.ID, false)
}

func (s *NotificationService) Unread(ctx context.Context, caller *domain.User) ([]*notification.Notification, error) {
	return s.repo.ListByUser(ctx, caller.ID, true)
}

func (s *NotificationService) CountUnread(ctx context.Context, caller *domain.User) (int64, error) {
	return s.repo.CountUnread(ctx, caller.ID)
}

func (s *NotificationService) MarkRead(ctx context.Context, caller *domain.User, id uint) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller *domain.User) (int64, error) {
	return s.repo.MarkAllRead(ctx, caller.ID)
}

func (s *NotificationService) Delete(ctx context.Context, caller *domain.User, id uint) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *NotificationService) owned(ctx context.Context, caller *domain.User, id uint) (*notification.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != caller.ID {
		return nil, ErrForbidden
	}
	return n, nil
}
