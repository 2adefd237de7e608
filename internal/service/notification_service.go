package service

import (
	"context"
	"sync"

	"tutor_market_backend/internal/model"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/util"
	"tutor_market_backend/pkg/logger"
	"tutor_market_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Notifier 业务服务只依赖这个接口发送站内通知
type Notifier interface {
	Notify(userID uint, title, message, notificationType, link string)
}

type NotificationService struct {
	Repo *repository.NotificationRepository
	Hub  *NotificationHub
	wg   sync.WaitGroup
}

func NewNotificationService(repo *repository.NotificationRepository, hub *NotificationHub) *NotificationService {
	return &NotificationService{Repo: repo, Hub: hub}
}

// Notify 异步写库并推送，失败只记录日志，不影响调用方
func (s *NotificationService) Notify(userID uint, title, message, notificationType, link string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		n := &model.Notification{
			UserID:  userID,
			Title:   title,
			Message: message,
			Type:    notificationType,
			Link:    link,
		}
		if err := s.Repo.Create(n); err != nil {
			logger.Log.Error("Failed to save notification",
				zap.Uint("userId", userID),
				zap.String("type", notificationType),
				zap.Error(err))
			monitoring.NotificationCounter.WithLabelValues(notificationType, "failed").Inc()
			return
		}

		delivery := "stored"
		if s.Hub != nil && s.Hub.Push(context.Background(), userID, WSMessage{Type: "NOTIFICATION", Data: n}) {
			delivery = "pushed"
		}
		monitoring.NotificationCounter.WithLabelValues(notificationType, delivery).Inc()
	}()
}

// Wait 等待已发出的异步通知完成，用于停机和测试
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) List(userID uint, page, limit int) ([]model.Notification, int64, error) {
	return s.Repo.ListByUser(userID, (page-1)*limit, limit)
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	ok, err := s.Repo.MarkRead(userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return util.NewNotFoundError("notification", id)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.Repo.MarkAllRead(userID)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.Repo.UnreadCount(userID)
}
