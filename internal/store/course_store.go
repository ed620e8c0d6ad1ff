// Package store keeps the session's authoritative-as-known copies of
// marketplace entities. Field writers are meant to be driven by the
// optimistic engine; bulk loaders are used for authoritative refreshes.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// CourseStore holds courses plus the admin review queue.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[string]models.Course
	review  idQueue
	now     func() time.Time
}

// NewCourseStore constructs an empty store.
func NewCourseStore() *CourseStore {
	return &CourseStore{
		courses: make(map[string]models.Course),
		review:  newIDQueue(),
		now:     time.Now,
	}
}

// Get returns a copy of the course.
func (s *CourseStore) Get(id string) (models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return models.Course{}, notFound("course", id)
	}
	return course, nil
}

// Put inserts or replaces a course.
func (s *CourseStore) Put(course models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.ID] = course
}

// Load replaces the given courses wholesale and rebuilds the review queue from their status.
func (s *CourseStore) Load(courses []models.Course, reviewQueue bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(courses))
	for _, course := range courses {
		s.courses[course.ID] = course
		if course.Status == models.CourseStatusDraft {
			ids = append(ids, course.ID)
		}
	}
	if reviewQueue {
		s.review.reset(ids)
	}
}

// List returns courses matching keep (all when nil), newest first.
func (s *CourseStore) List(keep func(models.Course) bool) []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Course, 0, len(s.courses))
	for _, course := range s.courses {
		if keep == nil || keep(course) {
			result = append(result, course)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

// InReview returns the admin review queue in arrival order.
func (s *CourseStore) InReview() []models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Course, 0, len(s.review.order))
	for _, id := range s.review.order {
		if course, ok := s.courses[id]; ok {
			result = append(result, course)
		}
	}
	return result
}

// Dequeue removes a course from the review queue.
func (s *CourseStore) Dequeue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review.remove(id)
}

// Enqueue appends a course to the review queue.
func (s *CourseStore) Enqueue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.review.push(id)
}

// Queued reports whether the course waits in the review queue.
func (s *CourseStore) Queued(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.review.contains(id)
}

// Visibility exposes the visibility field to the engine.
func (s *CourseStore) Visibility(id string) (func() (models.Visibility, error), func(models.Visibility)) {
	read := func() (models.Visibility, error) {
		course, err := s.Get(id)
		return course.Visibility, err
	}
	write := func(v models.Visibility) {
		s.update(id, func(c *models.Course) { c.Visibility = v })
	}
	return read, write
}

// Status exposes the lifecycle status field to the engine.
func (s *CourseStore) Status(id string) (func() (models.CourseStatus, error), func(models.CourseStatus)) {
	read := func() (models.CourseStatus, error) {
		course, err := s.Get(id)
		return course.Status, err
	}
	write := func(status models.CourseStatus) {
		s.update(id, func(c *models.Course) { c.Status = status })
	}
	return read, write
}

// Update applies fn to a stored course.
func (s *CourseStore) Update(id string, fn func(*models.Course)) error {
	if !s.update(id, fn) {
		return notFound("course", id)
	}
	return nil
}

func (s *CourseStore) update(id string, fn func(*models.Course)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[id]
	if !ok {
		return false
	}
	fn(&course)
	course.UpdatedAt = s.now().UTC()
	s.courses[id] = course
	return true
}

func notFound(entity, id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", entity, id))
}
