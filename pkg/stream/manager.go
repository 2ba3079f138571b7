// Package stream owns the exclusive per-session channel, the single pending
// HITL decision slot, and the single active task for every connected
// session. One Manager instance serves an entire process; all operations are
// keyed by session_id and isolated — an action against one session never
// observes or mutates another's state.
package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/northfold/agentrelay/pkg/events"
)

// ErrAtCapacity is returned by Connect when the process-wide channel cap is
// reached.
var ErrAtCapacity = errors.New("stream: at capacity")

// ErrDecisionTimeout is the cause reported by WaitForDecision when no
// decision arrived before the deadline.
var ErrDecisionTimeout = errors.New("stream: approval timeout")

// ErrDecisionDisplaced is the cause reported to a pending WaitForDecision
// call when a later RequestApproval for the same session installs a new
// slot before the earlier one resolved.
var ErrDecisionDisplaced = errors.New("stream: decision slot displaced by a newer request")

// ErrSessionDisconnected is the cause reported to a pending WaitForDecision
// call, and to an in-flight task, when the owning session's channel
// disconnects.
var ErrSessionDisconnected = errors.New("stream: session disconnected")

// Channel is the transport a session's events are written to. The concrete
// implementation wraps a single websocket connection (see ws.go);
// implementations used in tests may be simpler.
type Channel interface {
	Send(ctx context.Context, msg map[string]any) error
}

// DecisionType is the outcome of a HITL approval request.
type DecisionType string

const (
	DecisionApprove DecisionType = "approve"
	DecisionReject  DecisionType = "reject"
)

// Decision is a client's (or the manager's own timeout/cancellation)
// resolution of a pending approval request.
type Decision struct {
	Type    DecisionType
	Message string
}

// decisionSlot is the single-slot completion future for one session's
// pending approval request.
type decisionSlot struct {
	ch     chan Decision
	cancel context.CancelCauseFunc
	ctx    context.Context
}

// Task is a cancellable unit of work registered via StartTask.
type Task struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Cancel requests cooperative cancellation with the given cause.
func (t *Task) Cancel(cause error) { t.cancel(cause) }

// Done reports when the task function has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Manager is the connection manager of C10: one instance per process,
// guarding conns/pending/tasks under a single mutex.
type Manager struct {
	mu       sync.Mutex
	conns    map[string]Channel
	pending  map[string]*decisionSlot
	tasks    map[string]*Task
	total    int
	maxTotal int
}

// NewManager creates a Manager with the given hard cap on concurrent
// channels. maxTotal<=0 means unlimited.
func NewManager(maxTotal int) *Manager {
	return &Manager{
		conns:    make(map[string]Channel),
		pending:  make(map[string]*decisionSlot),
		tasks:    make(map[string]*Task),
		maxTotal: maxTotal,
	}
}

// Connect registers a session's channel. Returns false (channel not
// registered) if the process is at capacity.
func (m *Manager) Connect(channel Channel, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxTotal > 0 && m.total >= m.maxTotal {
		return false
	}
	if _, exists := m.conns[sessionID]; !exists {
		m.total++
	}
	m.conns[sessionID] = channel
	return true
}

// Disconnect tears down everything owned by sessionID: its channel, any
// pending decision slot (resolved as cancelled, not silently orphaned), and
// any active task (best-effort cooperative cancel).
func (m *Manager) Disconnect(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked(sessionID)
}

func (m *Manager) disconnectLocked(sessionID string) {
	if _, exists := m.conns[sessionID]; exists {
		delete(m.conns, sessionID)
		m.total--
	}
	if slot, ok := m.pending[sessionID]; ok {
		slot.cancel(ErrSessionDisconnected)
		delete(m.pending, sessionID)
	}
	if task, ok := m.tasks[sessionID]; ok {
		task.cancel(ErrSessionDisconnected)
		delete(m.tasks, sessionID)
	}
}

// Send serializes msg over sessionID's channel. A write error disconnects
// the session (its state is no longer trustworthy) and returns false.
// Returns false immediately for an unknown session.
func (m *Manager) Send(ctx context.Context, sessionID string, msg map[string]any) bool {
	m.mu.Lock()
	channel, ok := m.conns[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if err := channel.Send(ctx, msg); err != nil {
		m.Disconnect(sessionID)
		return false
	}
	return true
}

// SendEvent wraps event.ToMap() into a {event_type, data, timestamp} frame
// and delegates to Send.
func (m *Manager) SendEvent(ctx context.Context, sessionID string, event events.Event) bool {
	data := event.ToMap()
	return m.Send(ctx, sessionID, map[string]any{
		"event_type": data["event_type"],
		"data":       data,
		"timestamp":  data["timestamp"],
	})
}

// StartTask atomically cancels any existing task for sessionID, then
// installs and returns a new one running fn in its own goroutine. fn
// receives a context cancelled by CancelTask or Disconnect.
func (m *Manager) StartTask(sessionID string, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancelCause(context.Background())
	task := &Task{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if old, ok := m.tasks[sessionID]; ok {
		old.cancel(ErrSessionDisconnected)
	}
	m.tasks[sessionID] = task
	m.mu.Unlock()

	go func() {
		defer close(task.done)
		fn(ctx)

		m.mu.Lock()
		if m.tasks[sessionID] == task {
			delete(m.tasks, sessionID)
		}
		m.mu.Unlock()
	}()

	return task
}

// CancelTask requests cancellation of sessionID's active task and removes
// it from the registry synchronously. Returns false if no task is active.
func (m *Manager) CancelTask(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[sessionID]
	if !ok {
		return false
	}
	task.cancel(context.Canceled)
	delete(m.tasks, sessionID)
	return true
}

// WaitForDecision installs a single-slot completion future for sessionID,
// displacing (cancelling, not rejecting) any prior slot, then blocks until a
// decision is delivered via ResolveDecision, the timeout elapses, or ctx is
// cancelled (task cancellation or disconnect cancel the slot with the
// matching cause). The slot is always removed before returning.
func (m *Manager) WaitForDecision(ctx context.Context, sessionID string, timeout time.Duration) (Decision, error) {
	slotCtx, cancel := context.WithCancelCause(context.Background())
	slot := &decisionSlot{ch: make(chan Decision, 1), cancel: cancel, ctx: slotCtx}

	m.mu.Lock()
	if old, ok := m.pending[sessionID]; ok {
		old.cancel(ErrDecisionDisplaced)
	}
	m.pending[sessionID] = slot
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.pending[sessionID] == slot {
			delete(m.pending, sessionID)
		}
		m.mu.Unlock()
		cancel(nil)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-slot.ch:
		return d, nil
	case <-timer.C:
		return Decision{}, ErrDecisionTimeout
	case <-slotCtx.Done():
		return Decision{}, context.Cause(slotCtx)
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// ResolveDecision completes sessionID's pending decision slot, if any.
// Returns false if no slot is currently installed.
func (m *Manager) ResolveDecision(sessionID string, decision Decision) bool {
	m.mu.Lock()
	slot, ok := m.pending[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case slot.ch <- decision:
		return true
	default:
		return false
	}
}

// ActiveChannels reports the current number of connected sessions.
func (m *Manager) ActiveChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
