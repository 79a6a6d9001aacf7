package service

import (
	"context"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/notify"
)

// Notice is one member-facing message produced by a workflow.
type Notice struct {
	Type    models.NotificationType
	UserID  string
	LoanID  *int64
	BookID  *int64
	Title   string
	Message string
}

// Notifier is called after a workflow commits. Delivery failures are logged
// by the implementation and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotificationService interface {
	Notifier
	GetUnread(ctx context.Context, userID string) ([]models.Notification, error)
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type notificationService struct {
	store      repository.Store
	dispatcher notify.Dispatcher
	logger     *zap.Logger
	clock      Clock
}

// NewNotificationService stores every notice in the member's inbox and
// forwards it to the dispatcher.
func NewNotificationService(store repository.Store, dispatcher notify.Dispatcher, logger *zap.Logger, clock Clock) NotificationService {
	return &notificationService{store: store, dispatcher: dispatcher, logger: logger, clock: clock}
}

func (s *notificationService) Notify(ctx context.Context, n Notice) {
	row := &models.Notification{
		UserID:    n.UserID,
		Type:      n.Type,
		LoanID:    n.LoanID,
		BookID:    n.BookID,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: s.clock.now(),
	}
	if err := s.store.Notifications().Create(ctx, row); err != nil {
		s.logger.Error("notification_persist_failed",
			zap.String("type", string(n.Type)),
			zap.String("user_id", n.UserID),
			zap.Error(err))
	}

	msg := notify.Message{
		Type:   string(n.Type),
		UserID: n.UserID,
		Title:  n.Title,
		Body:   n.Message,
		LoanID: n.LoanID,
		BookID: n.BookID,
		SentAt: row.CreatedAt,
	}
	if user, err := s.store.Users().FindByID(ctx, n.UserID); err == nil {
		msg.Email = user.Email
	}
	s.dispatcher.Dispatch(msg)
}

func (s *notificationService) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	list, err := s.store.Notifications().GetUnreadByUser(ctx, userID)
	return list, systemError("list unread notifications", err)
}

func (s *notificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	list, err := s.store.Notifications().ListByUser(ctx, userID, limit)
	return list, systemError("list notifications", err)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	ok, err := s.store.Notifications().MarkAsRead(ctx, userID, notificationID)
	if err != nil {
		return systemError("mark notification read", err)
	}
	if !ok {
		return ErrNotificationMissing
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return systemError("mark all notifications read", s.store.Notifications().MarkAllAsRead(ctx, userID))
}
