package inspect

import (
	"sync"
	"time"

	"github.com/jpalmerr/tinystore"
)

// subscriberBuffer is the channel buffer size for each hub subscriber.
const subscriberBuffer = 100

// Source is the part of a store the hub reads from.
//
// [tinystore.Store] satisfies Source for its state type.
type Source[S any] interface {
	GetState() S
	Subscribe(l tinystore.Listener) tinystore.Unsubscribe
}

// Snapshot is the store state captured after one notification.
type Snapshot[S any] struct {
	// Seq counts notifications seen by the hub, starting at 1.
	// Zero means no dispatch has happened since the hub was created.
	Seq uint64 `json:"seq"`

	// State is the store state read in the listener.
	State S `json:"state"`

	// At is when the snapshot was taken.
	At time.Time `json:"at"`
}

// Hub bridges a store's synchronous listeners to channel subscribers.
//
// Hub registers a single listener on the source. On every notification
// it reads the state and sends the resulting [Snapshot] to each
// subscriber channel without blocking; if a subscriber's buffer is full
// the snapshot is dropped for that subscriber.
type Hub[S any] struct {
	src         Source[S]
	unsubscribe tinystore.Unsubscribe

	mu     sync.RWMutex
	latest Snapshot[S]

	subMu       sync.RWMutex
	subscribers map[chan Snapshot[S]]struct{}
	closed      bool
}

// NewHub creates a [Hub] attached to src.
//
// Call [Hub.Close] to detach from the store and close all subscriber
// channels.
func NewHub[S any](src Source[S]) *Hub[S] {
	h := &Hub[S]{
		src:         src,
		latest:      Snapshot[S]{State: src.GetState(), At: time.Now()},
		subscribers: make(map[chan Snapshot[S]]struct{}),
	}
	h.unsubscribe = src.Subscribe(h.onNotify)
	return h
}

// onNotify is the store listener. It runs on the dispatching goroutine.
func (h *Hub[S]) onNotify() {
	h.mu.Lock()
	snap := Snapshot[S]{
		Seq:   h.latest.Seq + 1,
		State: h.src.GetState(),
		At:    time.Now(),
	}
	h.latest = snap
	h.mu.Unlock()

	h.notifySubscribers(snap)
}

// Latest returns the most recent snapshot.
func (h *Hub[S]) Latest() Snapshot[S] {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe creates a new subscription and returns a channel for
// receiving snapshots.
//
// The returned channel has a buffer of 100 snapshots. If the buffer
// fills (slow consumer), new snapshots are dropped for this subscriber.
// After [Hub.Close] the returned channel is already closed.
//
// Caller must call [Hub.Unsubscribe] when done to prevent resource leaks.
func (h *Hub[S]) Subscribe() <-chan Snapshot[S] {
	ch := make(chan Snapshot[S], subscriberBuffer)

	h.subMu.Lock()
	defer h.subMu.Unlock()

	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (h *Hub[S]) Unsubscribe(ch <-chan Snapshot[S]) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	for subCh := range h.subscribers {
		if subCh == ch {
			delete(h.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// SubscriberCount returns the number of active channel subscribers.
func (h *Hub[S]) SubscriberCount() int {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	return len(h.subscribers)
}

// Close detaches the hub from its store and closes every subscriber
// channel. Safe to call multiple times.
func (h *Hub[S]) Close() {
	h.unsubscribe()

	h.subMu.Lock()
	defer h.subMu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// snapshot is dropped for that subscriber rather than blocking dispatch.
func (h *Hub[S]) notifySubscribers(snap Snapshot[S]) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}
