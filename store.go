package tinystore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Store is an observable state container.
//
// Store holds exactly one state value of type S. Each applied dispatch
// replaces it wholesale with the reducer's result. Listeners are kept in
// registration order and are all invoked after every dispatch.
//
// A Store is created with [New] and owned by whoever constructs it; there
// is no package-level instance. It needs no teardown: dropping the last
// reference abandons its listeners.
//
// Store is safe for concurrent use. The reducer runs while the store's
// lock is held, so a reducer must not call back into the store. Listeners
// run without the lock and may dispatch or (un)subscribe freely.
type Store[S any] struct {
	reducer  Reducer[S]
	logger   *slog.Logger
	dispatch DispatchFunc

	mu        sync.Mutex
	state     S
	listeners []registration
	nextID    uint64
}

// registration is one Subscribe call. Go funcs are not comparable, so
// each registration carries its own id for removal.
type registration struct {
	id       uint64
	listener Listener
}

// New creates a [Store] driven by reducer.
//
// The initial state is the zero value of S unless [WithInitialState] is
// given. Diagnostics go to [slog.Default] unless [WithLogger] is given.
//
// Returns an error if reducer is nil, an option is invalid, or the
// initial state is not an S.
//
// Example:
//
//	store, err := tinystore.New(reducer,
//	    tinystore.WithLogger(logger),
//	)
func New[S any](reducer Reducer[S], opts ...Option) (*Store[S], error) {
	if reducer == nil {
		return nil, errors.New("reducer is required")
	}

	cfg := &storeConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid store option: %w", err)
		}
	}

	var state S
	if cfg.initialState != nil {
		preloaded, ok := cfg.initialState.(S)
		if !ok {
			return nil, fmt.Errorf("initial state has type %T, want %T", cfg.initialState, state)
		}
		state = preloaded
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store[S]{
		reducer: reducer,
		logger:  logger,
		state:   state,
	}

	s.dispatch = s.dispatchCore
	if len(cfg.middleware) > 0 {
		api := MiddlewareAPI{
			Dispatch: func(action Action) Outcome { return s.dispatch(action) },
			GetState: func() any { return s.GetState() },
		}
		s.dispatch = chain(api, s.dispatchCore, cfg.middleware)
	}

	return s, nil
}

// GetState returns the current state.
//
// The value is returned as-is; for reference types (maps, slices,
// pointers) callers must treat it as read-only. Dispatch is the only way
// to change the state.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action and notifies every listener.
//
// If action.Type is non-empty the reducer computes the next state, which
// replaces the current one, and Dispatch returns [OutcomeApplied].
// Otherwise the reducer is skipped, the state is left unchanged, an error
// is logged, and Dispatch returns [OutcomeMalformed].
//
// In both cases the listeners registered when notification begins are
// invoked once each, in registration order, before Dispatch returns.
// Listeners added during the pass first run on the next dispatch;
// listeners removed during the pass still run in this one.
//
// A panic in the reducer or a listener propagates to the caller and
// skips the rest of the pass.
//
// Middleware installed with [WithMiddleware] runs first and may consume
// the action, in which case the reducer and listeners are skipped and
// its outcome is returned.
func (s *Store[S]) Dispatch(action Action) Outcome {
	return s.dispatch(action)
}

// dispatchCore is the innermost dispatch, below all middleware.
func (s *Store[S]) dispatchCore(action Action) Outcome {
	outcome := OutcomeApplied
	if action.Type == "" {
		outcome = OutcomeMalformed
		s.logger.Error("action must have a type",
			"correlation_id", uuid.NewString(),
			"payload_type", fmt.Sprintf("%T", action.Payload),
		)
	}

	listeners := s.transition(action, outcome == OutcomeApplied)

	for _, reg := range listeners {
		reg.listener()
	}

	return outcome
}

// transition runs the reducer when apply is set and returns a snapshot of
// the listeners to notify. The lock is released even if the reducer panics.
func (s *Store[S]) transition(action Action, apply bool) []registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apply {
		s.state = s.reducer(s.state, action)
	}

	snapshot := make([]registration, len(s.listeners))
	copy(snapshot, s.listeners)
	return snapshot
}

// Subscribe registers l to be called after every dispatch.
//
// The same function may be subscribed several times; each call is its
// own registration and is notified separately. The returned
// [Unsubscribe] removes only the registration created by this call and
// is safe to call repeatedly.
//
// A nil listener is ignored and a no-op Unsubscribe is returned.
func (s *Store[S]) Subscribe(l Listener) Unsubscribe {
	if l == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, registration{id: id, listener: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// unsubscribe drops the registration with the given id. The listener
// slice is rebuilt rather than edited in place so snapshots held by an
// in-progress notification pass are unaffected.
func (s *Store[S]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]registration, 0, len(s.listeners))
	for _, reg := range s.listeners {
		if reg.id != id {
			kept = append(kept, reg)
		}
	}
	s.listeners = kept
}

// ListenerCount returns the number of active listener registrations.
func (s *Store[S]) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
