package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/repositories"
)

const defaultNotificationLimit = 50

// Notifier delivers a message to a user. Implementations never block the caller on failure.
type Notifier interface {
	Notify(ctx context.Context, userID int, message string)
}

// NotificationService stores notifications in the user's inbox.
type NotificationService struct {
	repo   repositories.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger.With(slog.String("component", "notifications"))}
}

var _ Notifier = (*NotificationService)(nil)

// Notify is best effort: errors are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, userID int, message string) {
	n := &models.Notification{UserID: userID, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to send notification", slog.Int("user_id", userID), slog.Any("error", err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID int) ([]*models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, defaultNotificationLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64, userID int) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return nil
}
