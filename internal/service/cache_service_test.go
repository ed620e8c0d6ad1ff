package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func TestCacheCourseLoadsOnce(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	var fetches int32
	fetch := func(ctx context.Context) (models.Course, error) {
		atomic.AddInt32(&fetches, 1)
		return publishedCourse("c1", models.VisibilityPublic), nil
	}

	course, err := svc.Course(context.Background(), "c1", fetch)
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)
	assert.True(t, repo.has(CourseKey("c1")))

	cached, err := svc.Course(context.Background(), "c1", fetch)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, cached.Visibility)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}

func TestCacheCourseSharesConcurrentFetch(t *testing.T) {
	svc := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	release := make(chan struct{})
	var fetches int32
	fetch := func(ctx context.Context) (models.Course, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return publishedCourse("c1", models.VisibilityPrivate), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Course(context.Background(), "c1", fetch)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetches) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&fetches), int32(2))
}

func TestCacheDisabledAlwaysFetches(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	var fetches int
	fetch := func(ctx context.Context) (models.Course, error) {
		fetches++
		return publishedCourse("c1", models.VisibilityPublic), nil
	}

	for i := 0; i < 2; i++ {
		_, err := svc.Course(context.Background(), "c1", fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fetches)
	assert.False(t, repo.has(CourseKey("c1")))
}

func TestCacheRefreshProfile(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	svc.RefreshProfile(context.Background(), models.ProfessorProfile{UserID: "u1", ApprovalStatus: models.ApprovalPending})
	assert.True(t, repo.has(ProfileKey("u1")))

	svc.RefreshProfile(context.Background(), models.ProfessorProfile{UserID: "u1", ApprovalStatus: models.ApprovalNotSubmitted})
	assert.False(t, repo.has(ProfileKey("u1")))
}

func TestCacheInvalidatePattern(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	svc.RefreshCourse(context.Background(), publishedCourse("c1", models.VisibilityPublic))
	svc.RefreshCourse(context.Background(), publishedCourse("c2", models.VisibilityPublic))

	require.NoError(t, svc.Invalidate(context.Background(), "course:*"))
	assert.False(t, repo.has(CourseKey("c1")))
	assert.False(t, repo.has(CourseKey("c2")))
}
