package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/pkg/config"
	"github.com/noah-isme/course-gateway/pkg/jobs"
)

const notificationJobType = "notification.deliver"

// NotificationService delivers user notices off the request path. Notices go
// through the job queue into a bounded per-user feed that the UI drains.
// Only users with a live session receive notices; each session gets its own
// generation so notices still queued when it ends are discarded.
type NotificationService struct {
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
	feedSize int
	now      func() time.Time

	mu      sync.Mutex
	feeds   map[string][]models.Notification
	live    map[string]uint64
	counter uint64
}

// delivery is the queued payload: a notice stamped with its session generation.
type delivery struct {
	notification models.Notification
	generation   uint64
}

// NewNotificationService builds the service and its worker queue. Call Start before use.
func NewNotificationService(cfg config.NotificationsConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	feedSize := cfg.FeedSize
	if feedSize <= 0 {
		feedSize = 50
	}
	s := &NotificationService{
		metrics:  metrics,
		logger:   logger,
		feedSize: feedSize,
		now:      time.Now,
		feeds:    make(map[string][]models.Notification),
		live:     make(map[string]uint64),
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.Retries,
		RetryDelay: 200 * time.Millisecond,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop waits for the delivery workers to exit.
func (s *NotificationService) Stop() { s.queue.Stop() }

// For opens a notice stream for a new session of userID and returns a
// fire-and-forget notifier bound to it. Notices from an earlier session of
// the same user are discarded from then on.
func (s *NotificationService) For(userID string) optimistic.Notifier {
	s.mu.Lock()
	s.counter++
	generation := s.counter
	s.live[userID] = generation
	s.mu.Unlock()
	return optimistic.NotifierFunc(func(message string, kind models.NotificationKind) {
		s.enqueue(userID, generation, message, kind)
	})
}

// Notify enqueues a notice for the user's current session without blocking.
// It is dropped when the user has no live session or the queue is full.
func (s *NotificationService) Notify(userID, message string, kind models.NotificationKind) {
	s.mu.Lock()
	generation, ok := s.live[userID]
	s.mu.Unlock()
	if !ok {
		s.metrics.RecordNotification(string(kind), "discarded")
		return
	}
	s.enqueue(userID, generation, message, kind)
}

func (s *NotificationService) enqueue(userID string, generation uint64, message string, kind models.NotificationKind) {
	notification := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	}
	payload := delivery{notification: notification, generation: generation}
	if err := s.queue.TryEnqueue(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: payload}); err != nil {
		s.metrics.RecordNotification(string(kind), "dropped")
		s.logger.Warn("notification dropped", zap.String("user_id", userID), zap.String("message", message), zap.Error(err))
		return
	}
	s.metrics.RecordNotification(string(kind), "queued")
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(delivery)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	notification := payload.notification
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[notification.UserID] != payload.generation {
		s.metrics.RecordNotification(string(notification.Kind), "discarded")
		return nil
	}
	feed := append(s.feeds[notification.UserID], notification)
	if overflow := len(feed) - s.feedSize; overflow > 0 {
		feed = append([]models.Notification(nil), feed[overflow:]...)
	}
	s.feeds[notification.UserID] = feed
	s.metrics.RecordNotification(string(notification.Kind), "delivered")
	return nil
}

// Drain returns and clears the user's pending notices, oldest first.
func (s *NotificationService) Drain(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := s.feeds[userID]
	delete(s.feeds, userID)
	if feed == nil {
		return []models.Notification{}
	}
	return feed
}

// Forget ends the user's notice stream: the feed is dropped and notices still
// queued for it are discarded on delivery.
func (s *NotificationService) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, userID)
	delete(s.live, userID)
}
