// Package broadcast fans transient events out to live subscribers.
//
// Delivery is at-most-once: a subscriber whose buffer is full misses the
// event and is flagged for resync. Nothing is persisted or replayed.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSubscriberBuffer is used when the hub is built with a non-positive buffer size.
const DefaultSubscriberBuffer = 64

type EventType string

const (
	EventRoom         EventType = "room"
	EventNotification EventType = "notification"
	EventArtifact     EventType = "artifact"
)

// Event is the wire envelope sent to clients.
type Event struct {
	Type   EventType `json:"type"`
	RoomID uuid.UUID `json:"roomId"`
	Data   any       `json:"data,omitempty"`

	// WorkspaceID routes the event to workspace streams. It is not part of the envelope.
	WorkspaceID uuid.UUID `json:"-"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Broadcast(evt Event)
}

type scopeKind uint8

const (
	scopeAll scopeKind = iota
	scopeRoom
	scopeWorkspace
)

// Scope selects which events a subscription receives.
type Scope struct {
	kind scopeKind
	id   uuid.UUID
}

func RoomScope(roomID uuid.UUID) Scope { return Scope{kind: scopeRoom, id: roomID} }

func WorkspaceScope(workspaceID uuid.UUID) Scope {
	return Scope{kind: scopeWorkspace, id: workspaceID}
}

// AllScope receives every event of every tenant. Only trusted internal consumers use it.
func AllScope() Scope { return Scope{kind: scopeAll} }

func (s Scope) String() string {
	switch s.kind {
	case scopeRoom:
		return "room:" + s.id.String()
	case scopeWorkspace:
		return "workspace:" + s.id.String()
	default:
		return "all"
	}
}

// Matches reports whether evt is visible in this scope.
func (s Scope) Matches(evt Event) bool {
	switch s.kind {
	case scopeRoom:
		return evt.RoomID == s.id
	case scopeWorkspace:
		return evt.WorkspaceID == s.id
	default:
		return true
	}
}

// Subscription is a single live stream. Read from Events until it is closed.
type Subscription struct {
	scope  Scope
	ch     chan Event
	resync atomic.Bool
	closed bool // guarded by hub.mu
	hub    *Hub
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Scope() Scope { return s.scope }

// TakeResync reports whether events were dropped since the last call and clears the flag.
func (s *Subscription) TakeResync() bool { return s.resync.Swap(false) }

// Close is shorthand for Hub.Unsubscribe.
func (s *Subscription) Close() { s.hub.Unsubscribe(s) }

// Hub is the process-wide subscriber registry.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Scope]map[*Subscription]struct{}
	closed bool

	buffer  int
	dropped atomic.Uint64
	log     *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[Scope]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new stream. After Close the returned subscription is already closed.
func (h *Hub) Subscribe(scope Scope) *Subscription {
	sub := &Subscription{
		scope: scope,
		ch:    make(chan Event, h.buffer),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	set, ok := h.subs[scope]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[scope] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the stream and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	if set, ok := h.subs[sub.scope]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.scope)
		}
	}
}

// Broadcast hands evt to every matching subscriber without blocking.
func (h *Hub) Broadcast(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.sendLocked(RoomScope(evt.RoomID), evt)
	if evt.WorkspaceID != uuid.Nil {
		h.sendLocked(WorkspaceScope(evt.WorkspaceID), evt)
	}
	h.sendLocked(AllScope(), evt)
}

// sendLocked requires at least the read lock; channels are only closed under the write lock.
func (h *Hub) sendLocked(scope Scope, evt Event) {
	for sub := range h.subs[scope] {
		select {
		case sub.ch <- evt:
		default:
			sub.resync.Store(true)
			h.dropped.Add(1)
			h.log.Debug("subscriber buffer full, event dropped",
				zap.String("scope", scope.String()),
				zap.String("type", string(evt.Type)),
			)
		}
	}
}

// SubscriberCount returns the number of live subscriptions registered for scope.
func (h *Hub) SubscriberCount(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scope])
}

// Dropped returns the number of events dropped because of full buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close unsubscribes everyone. Later broadcasts are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			h.removeLocked(sub)
		}
	}
	h.subs = make(map[Scope]map[*Subscription]struct{})
}
