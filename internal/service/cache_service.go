package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService keeps confirmed entity snapshots shared across sessions.
// Only server-confirmed values are ever written.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	group      singleflight.Group
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// CourseKey is the cache key of a course snapshot.
func CourseKey(id string) string { return "course:" + id }

// ProfileKey is the cache key of a professor profile snapshot.
func ProfileKey(userID string) string { return "profile:" + userID }

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete drops the given keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// RefreshCourse overwrites the course snapshot after a confirmed change.
// Failures are logged and swallowed.
func (s *CacheService) RefreshCourse(ctx context.Context, course models.Course) {
	_ = s.Set(ctx, CourseKey(course.ID), course, 0)
}

// RefreshProfile overwrites the profile snapshot after a confirmed change.
func (s *CacheService) RefreshProfile(ctx context.Context, profile models.ProfessorProfile) {
	if profile.ApprovalStatus == models.ApprovalNotSubmitted {
		_ = s.Delete(ctx, ProfileKey(profile.UserID))
		return
	}
	_ = s.Set(ctx, ProfileKey(profile.UserID), profile, 0)
}

// Course returns the cached course or loads it once through fetch, sharing
// the result between concurrent callers.
func (s *CacheService) Course(ctx context.Context, id string, fetch func(context.Context) (models.Course, error)) (models.Course, error) {
	if s == nil {
		return fetch(ctx)
	}
	var cached models.Course
	if hit, _ := s.Get(ctx, CourseKey(id), &cached); hit {
		return cached, nil
	}
	value, err, _ := s.group.Do(CourseKey(id), func() (interface{}, error) {
		course, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.RefreshCourse(ctx, course)
		return course, nil
	})
	if err != nil {
		return models.Course{}, err
	}
	return value.(models.Course), nil
}
