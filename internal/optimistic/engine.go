// Package optimistic applies local writes ahead of the remote API and
// reconciles them once the server answers. The server's value always wins.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-gateway/internal/models"
	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

// DefaultTimeout bounds a remote call when none is configured.
const DefaultTimeout = 15 * time.Second

// Policy decides what happens when a key already has a mutation in flight.
type Policy int

const (
	// Reject fails fast with ErrMutationInProgress.
	Reject Policy = iota
	// Wait queues behind the in-flight mutation until it reconciles.
	Wait
)

// Outcomes reported to Metrics.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeCorrected  = "corrected"
	OutcomeRolledBack = "rolled_back"
	OutcomeBusy       = "busy"
	OutcomeRefused    = "refused"
	OutcomeStale      = "stale"
)

// Notifier shows a fire-and-forget message to the session's user.
type Notifier interface {
	Notify(message string, kind models.NotificationKind)
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(message string, kind models.NotificationKind)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, kind models.NotificationKind) { f(message, kind) }

// Metrics receives mutation outcomes.
type Metrics interface {
	ObserveMutation(entity, field, outcome string, duration time.Duration)
	AddInFlight(delta float64)
}

// Observer is told about every mutation that reached the remote call.
type Observer func(ctx context.Context, record models.MutationRecord)

// Mutation describes one optimistic write of a single (entity, field).
type Mutation[T any] struct {
	Key    models.MutationKey
	Policy Policy

	// Read snapshots the store value; Write replaces it.
	Read  func() (T, error)
	Write func(T)

	// Propose derives the speculative value from the current one. Returning an
	// error refuses the mutation before anything is written or sent.
	Propose func(current T) (T, error)

	// Remote performs the authoritative call and returns the server's value.
	Remote func(ctx context.Context, proposed T) (T, error)

	// Equal compares the proposal with the confirmed value. Required.
	Equal func(a, b T) bool

	// OnConfirm hooks run after a current (non-stale) confirmation.
	OnConfirm []func(ctx context.Context, confirmed T)

	// Success is shown on confirmation; Failure prefixes error notices.
	Success string
	Failure string
}

// Engine serialises mutations per key and owns their sequence numbers.
type Engine struct {
	mu       sync.Mutex
	slots    map[models.MutationKey]chan struct{}
	latest   map[models.MutationKey]uint64
	inflight map[models.MutationKey]models.MutationRecord
	counter  uint64
	closed   bool

	timeout  time.Duration
	notifier Notifier
	metrics  Metrics
	observer Observer
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides the remote call timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithNotifier sets the user notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver registers a callback for settled mutations.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine constructs an engine with defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		slots:    make(map[models.MutationKey]chan struct{}),
		latest:   make(map[models.MutationKey]uint64),
		inflight: make(map[models.MutationKey]models.MutationRecord),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Apply runs the optimistic protocol for m and returns the server-confirmed value.
func Apply[T any](ctx context.Context, e *Engine, m Mutation[T]) (T, error) {
	var zero T
	if m.Read == nil || m.Write == nil || m.Remote == nil || m.Equal == nil {
		return zero, appErrors.Clone(appErrors.ErrInternal, "incomplete mutation "+m.Key.String())
	}
	started := time.Now()
	if e.isClosed() {
		return zero, appErrors.ErrSessionClosed
	}

	if err := e.acquire(ctx, m.Key, m.Policy); err != nil {
		e.observeOutcome(m.Key, OutcomeBusy, started)
		e.notify(failureMessage(m.Failure, err), models.NotificationError)
		return zero, err
	}
	defer e.release(m.Key)

	previous, err := m.Read()
	if err != nil {
		return zero, err
	}
	proposed := previous
	if m.Propose != nil {
		proposed, err = m.Propose(previous)
		if err != nil {
			e.observeOutcome(m.Key, OutcomeRefused, started)
			e.notify(failureMessage(m.Failure, err), models.NotificationError)
			return zero, err
		}
	}

	record := models.MutationRecord{
		Key:       m.Key,
		Previous:  previous,
		Proposed:  proposed,
		State:     models.MutationInFlight,
		StartedAt: started.UTC(),
	}
	if !e.begin(&record, func() { m.Write(proposed) }) {
		return zero, appErrors.ErrSessionClosed
	}
	defer e.end(m.Key)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	confirmed, err := m.Remote(callCtx, proposed)
	cancel()
	record.EndedAt = time.Now().UTC()

	if err != nil {
		err = classify(ctx, callCtx, err)
		record.State = models.MutationRolledBack
		record.Error = err.Error()
		record.Stale = !e.commit(m.Key, record.Seq, func() { m.Write(previous) })
		outcome := OutcomeRolledBack
		if record.Stale {
			outcome = OutcomeStale
		}
		e.logger.Warn("optimistic mutation rolled back",
			zap.String("key", m.Key.String()),
			zap.Uint64("seq", record.Seq),
			zap.Bool("stale", record.Stale),
			zap.Error(err),
		)
		e.observeOutcome(m.Key, outcome, started)
		e.notify(failureMessage(m.Failure, err), models.NotificationError)
		e.settle(ctx, record)
		return zero, err
	}

	record.State = models.MutationConfirmed
	record.Confirmed = confirmed
	record.Drifted = !m.Equal(proposed, confirmed)
	record.Stale = !e.commit(m.Key, record.Seq, func() {
		if record.Drifted {
			m.Write(confirmed)
		}
	})

	switch {
	case record.Stale:
		e.logger.Info("discarding stale reconciliation",
			zap.String("key", m.Key.String()),
			zap.Uint64("seq", record.Seq),
		)
		e.observeOutcome(m.Key, OutcomeStale, started)
		e.settle(ctx, record)
		return confirmed, nil
	case record.Drifted:
		e.logger.Info("server corrected optimistic value",
			zap.String("key", m.Key.String()),
			zap.Any("proposed", proposed),
			zap.Any("confirmed", confirmed),
		)
		e.observeOutcome(m.Key, OutcomeCorrected, started)
	default:
		e.observeOutcome(m.Key, OutcomeConfirmed, started)
	}

	for _, hook := range m.OnConfirm {
		if hook != nil {
			hook(ctx, confirmed)
		}
	}
	if m.Success != "" {
		e.notify(m.Success, models.NotificationSuccess)
	}
	e.settle(ctx, record)
	return confirmed, nil
}

// Supersede invalidates any in-flight mutation on key so its reconciliation
// or rollback is discarded. Used after an authoritative refetch.
func (e *Engine) Supersede(key models.MutationKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.latest[key]; !ok {
		return
	}
	e.counter++
	e.latest[key] = e.counter
}

// WriteIdle runs write only when key has no mutation in flight and the engine
// is open, and reports whether it did. It lets a reconciliation of one field
// carry a server value for another without clobbering that field's own
// optimistic write.
func (e *Engine) WriteIdle(key models.MutationKey, write func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if _, busy := e.inflight[key]; busy {
		return false
	}
	write()
	return true
}

// Close discards every pending reconciliation; later Apply calls fail.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// InFlight lists the mutations currently awaiting the server, oldest first.
func (e *Engine) InFlight() []models.MutationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	records := make([]models.MutationRecord, 0, len(e.inflight))
	for _, record := range e.inflight {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records
}

// Busy reports whether key has a mutation awaiting the server.
func (e *Engine) Busy(key models.MutationKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inflight[key]
	return ok
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) slot(key models.MutationKey) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		e.slots[key] = s
	}
	return s
}

func (e *Engine) acquire(ctx context.Context, key models.MutationKey, policy Policy) error {
	s := e.slot(key)
	if policy == Wait {
		select {
		case s <- struct{}{}:
			return nil
		case <-ctx.Done():
			return appErrors.Wrap(ctx.Err(), appErrors.ErrMutationInProgress.Code, appErrors.ErrMutationInProgress.Status, appErrors.ErrMutationInProgress.Message)
		}
	}
	select {
	case s <- struct{}{}:
		return nil
	default:
		return appErrors.ErrMutationInProgress
	}
}

func (e *Engine) release(key models.MutationKey) {
	<-e.slot(key)
}

// begin assigns the next sequence number and performs the optimistic write atomically.
func (e *Engine) begin(record *models.MutationRecord, write func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.counter++
	record.Seq = e.counter
	e.latest[record.Key] = e.counter
	e.inflight[record.Key] = *record
	write()
	if e.metrics != nil {
		e.metrics.AddInFlight(1)
	}
	return true
}

func (e *Engine) end(key models.MutationKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
	if e.metrics != nil {
		e.metrics.AddInFlight(-1)
	}
}

// commit runs write only if seq is still the latest for key. It reports whether it did.
func (e *Engine) commit(key models.MutationKey, seq uint64, write func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.latest[key] != seq {
		return false
	}
	write()
	return true
}

func (e *Engine) notify(message string, kind models.NotificationKind) {
	if e.notifier == nil || message == "" {
		return
	}
	e.notifier.Notify(message, kind)
}

func (e *Engine) observeOutcome(key models.MutationKey, outcome string, started time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveMutation(key.Entity, key.Field, outcome, time.Since(started))
}

func (e *Engine) settle(ctx context.Context, record models.MutationRecord) {
	if e.observer != nil {
		e.observer(ctx, record)
	}
}

// classify folds any remote error into RemoteRejected or NetworkFailure.
func classify(parent, call context.Context, err error) error {
	if errors.Is(call.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, "the server did not answer in time, please try again")
	}
	if appErrors.HasCode(err, appErrors.ErrRemoteRejected.Code) || appErrors.HasCode(err, appErrors.ErrNetworkFailure.Code) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrNetworkFailure.Code, appErrors.ErrNetworkFailure.Status, appErrors.ErrNetworkFailure.Message)
}

func failureMessage(prefix string, err error) string {
	msg := appErrors.FromError(err).Message
	if prefix == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Comparable returns an Equal func for comparable values.
func Comparable[T comparable]() func(a, b T) bool {
	return func(a, b T) bool { return a == b }
}
