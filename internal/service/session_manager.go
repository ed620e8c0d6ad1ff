package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	"github.com/noah-isme/course-gateway/internal/optimistic"
	"github.com/noah-isme/course-gateway/internal/store"
)

// SessionDeps are the process-wide collaborators shared by every session.
type SessionDeps struct {
	Remote          RemoteAPI
	Cache           *CacheService
	Audit           *AuditService
	Notifications   *NotificationService
	Metrics         *MetricsService
	Validator       *validator.Validate
	Logger          *zap.Logger
	MutationTimeout time.Duration
	// EngineOptions are applied after the defaults.
	EngineOptions []optimistic.Option
}

// Session is one signed-in user's view of the marketplace: its stores, its
// mutation engine and the orchestrators that drive them.
type Session struct {
	ID        string
	UserID    string
	Role      models.UserRole
	CreatedAt time.Time

	Courses   *store.CourseStore
	Profiles  *store.ProfileStore
	CartItems *store.CartStore
	Engine    *optimistic.Engine

	Dashboard  *TeacherDashboardService
	Moderation *ModerationService
	Profile    *ProfileService
	Cart       *CartService

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionManager owns the live sessions, one per user.
type SessionManager struct {
	deps        SessionDeps
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager constructs a manager. A zero idle timeout keeps sessions until End.
func NewSessionManager(deps SessionDeps, idleTimeout time.Duration) *SessionManager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &SessionManager{
		deps:        deps,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Open returns the user's session, creating it on first use. A role change
// in the token starts a fresh session.
func (m *SessionManager) Open(claims *models.JWTClaims) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if existing, ok := m.sessions[claims.UserID]; ok {
		if existing.Role == claims.Role {
			existing.touch(now)
			return existing
		}
		m.closeLocked(existing, "role changed")
	}
	session := m.build(claims.UserID, claims.Role, now)
	m.sessions[claims.UserID] = session
	m.deps.Metrics.SetActiveSessions(len(m.sessions))
	m.deps.Logger.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.String("role", string(session.Role)),
	)
	return session
}

// Get returns the user's live session.
func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// End tears the user's session down. Pending reconciliations are discarded.
func (m *SessionManager) End(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return false
	}
	m.closeLocked(session, "ended")
	return true
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep ends sessions idle for longer than the idle timeout.
func (m *SessionManager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.idleTimeout)
	ended := 0
	for _, session := range m.sessions {
		if session.LastSeen().Before(cutoff) {
			m.closeLocked(session, "idle")
			ended++
		}
	}
	return ended
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.deps.Logger.Info("idle sessions ended", zap.Int("count", n))
			}
		}
	}
}

// Shutdown ends every session.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		m.closeLocked(session, "shutdown")
	}
}

func (m *SessionManager) closeLocked(session *Session, reason string) {
	session.Engine.Close()
	delete(m.sessions, session.UserID)
	if m.deps.Notifications != nil {
		m.deps.Notifications.Forget(session.UserID)
	}
	m.deps.Metrics.SetActiveSessions(len(m.sessions))
	m.deps.Logger.Info("session closed",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.String("reason", reason),
	)
}

func (m *SessionManager) build(userID string, role models.UserRole, now time.Time) *Session {
	deps := m.deps
	logger := deps.Logger.With(zap.String("user_id", userID))

	opts := []optimistic.Option{
		optimistic.WithTimeout(deps.MutationTimeout),
		optimistic.WithLogger(logger),
		optimistic.WithObserver(deps.Audit.Observer(userID)),
	}
	if deps.Notifications != nil {
		opts = append(opts, optimistic.WithNotifier(deps.Notifications.For(userID)))
	}
	if deps.Metrics != nil {
		opts = append(opts, optimistic.WithMetrics(deps.Metrics))
	}
	opts = append(opts, deps.EngineOptions...)
	engine := optimistic.NewEngine(opts...)

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now.UTC(),
		Courses:   store.NewCourseStore(),
		Profiles:  store.NewProfileStore(),
		CartItems: store.NewCartStore(userID),
		Engine:    engine,
		lastSeen:  now,
	}
	session.Profile = NewProfileService(userID, role, session.Profiles, engine, deps.Remote, deps.Cache, deps.Validator, logger)
	session.Dashboard = NewTeacherDashboardService(userID, role, session.Courses, engine, deps.Remote, session.Profile, deps.Cache, deps.Validator, logger)
	session.Moderation = NewModerationService(userID, role, session.Courses, session.Profiles, engine, deps.Remote, deps.Cache, deps.Audit, logger)
	session.Cart = NewCartService(userID, session.CartItems, engine, deps.Remote, logger)
	return session
}
