package store

import (
	"sync"

	"github.com/noah-isme/course-gateway/internal/models"
)

// ProfileStore holds professor profiles keyed by user id plus the pending
// moderation queue. A missing entry means the user never submitted.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]models.ProfessorProfile
	pending  idQueue
}

// NewProfileStore constructs an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]models.ProfessorProfile),
		pending:  newIDQueue(),
	}
}

// Get returns the profile or a placeholder in the not-submitted state.
func (s *ProfileStore) Get(userID string) models.ProfessorProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return models.ProfessorProfile{UserID: userID, ApprovalStatus: models.ApprovalNotSubmitted}
	}
	return profile
}

// Put inserts or replaces a profile; not-submitted removes it.
func (s *ProfileStore) Put(profile models.ProfessorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(profile)
}

func (s *ProfileStore) put(profile models.ProfessorProfile) {
	if profile.ApprovalStatus == models.ApprovalNotSubmitted || profile.ApprovalStatus == "" {
		delete(s.profiles, profile.UserID)
		return
	}
	s.profiles[profile.UserID] = profile
}

// LoadPending replaces the pending queue with an authoritative list.
func (s *ProfileStore) LoadPending(profiles []models.ProfessorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		s.put(profile)
		if profile.ApprovalStatus == models.ApprovalPending {
			ids = append(ids, profile.UserID)
		}
	}
	s.pending.reset(ids)
}

// Pending returns the moderation queue in arrival order.
func (s *ProfileStore) Pending() []models.ProfessorProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.ProfessorProfile, 0, len(s.pending.order))
	for _, id := range s.pending.order {
		if profile, ok := s.profiles[id]; ok {
			result = append(result, profile)
		}
	}
	return result
}

// Dequeue removes a profile from the pending queue.
func (s *ProfileStore) Dequeue(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.remove(userID)
}

// Enqueue appends a profile to the pending queue.
func (s *ProfileStore) Enqueue(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.push(userID)
}

// Queued reports whether the profile waits for moderation.
func (s *ProfileStore) Queued(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.contains(userID)
}

// ApprovalStatus exposes the approval field to the engine. Writing
// not-submitted drops the entry again, which is what a rolled back first
// submission needs.
func (s *ProfileStore) ApprovalStatus(userID string, draft models.ProfessorProfile) (func() (models.ApprovalStatus, error), func(models.ApprovalStatus)) {
	read := func() (models.ApprovalStatus, error) {
		return s.Get(userID).ApprovalStatus, nil
	}
	write := func(status models.ApprovalStatus) {
		s.mu.Lock()
		defer s.mu.Unlock()
		profile, ok := s.profiles[userID]
		if !ok {
			profile = draft
			profile.UserID = userID
		}
		profile.ApprovalStatus = status
		s.put(profile)
	}
	return read, write
}

// Update applies fn to a stored profile. Absent profiles are left alone.
func (s *ProfileStore) Update(userID string, fn func(*models.ProfessorProfile)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return false
	}
	fn(&profile)
	s.put(profile)
	return true
}
