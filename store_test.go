package tinystore

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// count is the reducer from the package example: "inc" adds one.
func count(state int, action Action) int {
	if action.Type == "inc" {
		return state + 1
	}
	return state
}

func newCountStore(t *testing.T) *Store[int] {
	t.Helper()
	store, err := New(count, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestNew_NilReducer(t *testing.T) {
	_, err := New[int](nil)
	if err == nil {
		t.Fatal("New() expected error for nil reducer, got nil")
	}
}

func TestNew_ZeroInitialState(t *testing.T) {
	store := newCountStore(t)

	if got := store.GetState(); got != 0 {
		t.Errorf("GetState() = %v, want 0", got)
	}
}

func TestStore_DispatchIncrementsThreeTimes(t *testing.T) {
	store := newCountStore(t)

	for i := 0; i < 3; i++ {
		store.Dispatch(Action{Type: "inc"})
	}

	if got := store.GetState(); got != 3 {
		t.Errorf("GetState() = %v, want 3", got)
	}
}

func TestStore_DispatchEqualsReducerResult(t *testing.T) {
	reducer := func(state []string, action Action) []string {
		next := make([]string, 0, len(state)+1)
		next = append(next, state...)
		return append(next, action.Type)
	}
	store, err := New(reducer, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	actions := []Action{{Type: "a"}, {Type: "b", Payload: 1}, {Type: "c"}}
	var want []string
	for _, a := range actions {
		want = reducer(want, a)
		store.Dispatch(a)

		got := store.GetState()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("GetState() = %v, want %v", got, want)
		}
	}
}

func TestStore_DispatchReplacesStateWholesale(t *testing.T) {
	reducer := func(state map[string]int, action Action) map[string]int {
		return map[string]int{action.Type: 1}
	}
	store, err := New(reducer, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	store.Dispatch(Action{Type: "first"})
	store.Dispatch(Action{Type: "second"})

	state := store.GetState()
	if len(state) != 1 {
		t.Fatalf("len(GetState()) = %d, want 1", len(state))
	}
	if _, ok := state["first"]; ok {
		t.Error("state should not retain keys from the previous state")
	}
}

func TestStore_DispatchReturnsApplied(t *testing.T) {
	store := newCountStore(t)

	if got := store.Dispatch(Action{Type: "inc"}); got != OutcomeApplied {
		t.Errorf("Dispatch() = %v, want %v", got, OutcomeApplied)
	}
}

func TestStore_MalformedActionLeavesStateUnchanged(t *testing.T) {
	calls := 0
	reducer := func(state int, action Action) int {
		calls++
		return state + 1
	}
	store, err := New(reducer, WithLogger(testLogger()), WithInitialState(7))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	outcome := store.Dispatch(Action{Payload: map[string]any{}})

	if outcome != OutcomeMalformed {
		t.Errorf("Dispatch() = %v, want %v", outcome, OutcomeMalformed)
	}
	if got := store.GetState(); got != 7 {
		t.Errorf("GetState() = %v, want 7", got)
	}
	if calls != 0 {
		t.Errorf("reducer called %d times, want 0", calls)
	}
}

func TestStore_MalformedActionLogsDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	store, err := New(count, WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	store.Dispatch(Action{Payload: map[string]any{}})

	output := buf.String()
	if !strings.Contains(output, "action must have a type") {
		t.Errorf("log output = %q, want diagnostic message", output)
	}
	if !strings.Contains(output, "level=ERROR") {
		t.Errorf("log output = %q, want ERROR level", output)
	}
	if !strings.Contains(output, "correlation_id=") {
		t.Errorf("log output = %q, want correlation_id", output)
	}
}

func TestStore_MalformedActionStillNotifies(t *testing.T) {
	store := newCountStore(t)

	var a, b int
	store.Subscribe(func() { a++ })
	store.Subscribe(func() { b++ })

	store.Dispatch(Action{Payload: map[string]any{}})

	if a != 1 || b != 1 {
		t.Errorf("listener calls = (%d, %d), want (1, 1)", a, b)
	}
}

func TestStore_ListenersNotifiedOnceInOrder(t *testing.T) {
	store := newCountStore(t)

	const n = 10
	var order []int
	for i := 0; i < n; i++ {
		i := i
		store.Subscribe(func() { order = append(order, i) })
	}

	store.Dispatch(Action{Type: "inc"})

	if len(order) != n {
		t.Fatalf("listener calls = %d, want %d", len(order), n)
	}
	for i, got := range order {
		if got != i {
			t.Errorf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestStore_ListenerSeesNewState(t *testing.T) {
	store := newCountStore(t)

	var seen int
	store.Subscribe(func() { seen = store.GetState() })

	store.Dispatch(Action{Type: "inc"})

	if seen != 1 {
		t.Errorf("listener saw state %d, want 1", seen)
	}
}

func TestStore_UnsubscribeStopsNotification(t *testing.T) {
	store := newCountStore(t)

	var calls []string
	unsubA := store.Subscribe(func() { calls = append(calls, "A") })
	store.Subscribe(func() { calls = append(calls, "B") })

	store.Dispatch(Action{Type: "inc"})
	if strings.Join(calls, "") != "AB" {
		t.Fatalf("first dispatch calls = %v, want [A B]", calls)
	}

	unsubA()
	calls = nil
	store.Dispatch(Action{Type: "inc"})

	if strings.Join(calls, "") != "B" {
		t.Errorf("second dispatch calls = %v, want [B]", calls)
	}
}

func TestStore_UnsubscribeTwiceIsNoop(t *testing.T) {
	store := newCountStore(t)

	unsub := store.Subscribe(func() {})
	store.Subscribe(func() {})

	unsub()
	unsub()

	if got := store.ListenerCount(); got != 1 {
		t.Errorf("ListenerCount() = %d, want 1", got)
	}
}

func TestStore_DuplicateSubscriptionsAreIndependent(t *testing.T) {
	store := newCountStore(t)

	calls := 0
	listener := func() { calls++ }

	unsubFirst := store.Subscribe(listener)
	store.Subscribe(listener)

	store.Dispatch(Action{Type: "inc"})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	// removes only the first registration
	unsubFirst()
	calls = 0
	store.Dispatch(Action{Type: "inc"})

	if calls != 1 {
		t.Errorf("calls after unsubscribe = %d, want 1", calls)
	}
}

func TestStore_SubscribeNilListener(t *testing.T) {
	store := newCountStore(t)

	unsub := store.Subscribe(nil)
	unsub()

	if got := store.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d, want 0", got)
	}

	// dispatch must not call a nil listener
	store.Dispatch(Action{Type: "inc"})
}

func TestStore_UnsubscribeDuringNotification(t *testing.T) {
	store := newCountStore(t)

	var calls []string
	var unsubB Unsubscribe
	store.Subscribe(func() {
		calls = append(calls, "A")
		unsubB()
	})
	unsubB = store.Subscribe(func() { calls = append(calls, "B") })
	store.Subscribe(func() { calls = append(calls, "C") })

	store.Dispatch(Action{Type: "inc"})

	// the pass runs over a snapshot, so B still runs this time
	if strings.Join(calls, "") != "ABC" {
		t.Fatalf("first dispatch calls = %v, want [A B C]", calls)
	}

	calls = nil
	store.Dispatch(Action{Type: "inc"})

	if strings.Join(calls, "") != "AC" {
		t.Errorf("second dispatch calls = %v, want [A C]", calls)
	}
}

func TestStore_SubscribeDuringNotification(t *testing.T) {
	store := newCountStore(t)

	lateCalls := 0
	subscribed := false
	store.Subscribe(func() {
		if !subscribed {
			subscribed = true
			store.Subscribe(func() { lateCalls++ })
		}
	})

	store.Dispatch(Action{Type: "inc"})
	if lateCalls != 0 {
		t.Fatalf("late listener calls after first dispatch = %d, want 0", lateCalls)
	}

	store.Dispatch(Action{Type: "inc"})
	if lateCalls != 1 {
		t.Errorf("late listener calls after second dispatch = %d, want 1", lateCalls)
	}
}

func TestStore_ReentrantDispatch(t *testing.T) {
	store := newCountStore(t)

	store.Subscribe(func() {
		if store.GetState() < 3 {
			store.Dispatch(Action{Type: "inc"})
		}
	})

	store.Dispatch(Action{Type: "inc"})

	if got := store.GetState(); got != 3 {
		t.Errorf("GetState() = %v, want 3", got)
	}
}

func TestStore_ReducerPanicPropagates(t *testing.T) {
	reducer := func(state int, action Action) int {
		if action.Type == "boom" {
			panic("reducer failed")
		}
		return state + 1
	}
	store, err := New(reducer, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	notified := false
	store.Subscribe(func() { notified = true })

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Dispatch() should propagate reducer panic")
			}
		}()
		store.Dispatch(Action{Type: "boom"})
	}()

	if notified {
		t.Error("listener should not run when the reducer panics")
	}

	// the store stays usable
	store.Dispatch(Action{Type: "inc"})
	if got := store.GetState(); got != 1 {
		t.Errorf("GetState() after recovery = %v, want 1", got)
	}
}

func TestStore_ListenerPanicAbortsPass(t *testing.T) {
	store := newCountStore(t)

	var calls []string
	store.Subscribe(func() { calls = append(calls, "A") })
	store.Subscribe(func() { panic("listener failed") })
	store.Subscribe(func() { calls = append(calls, "C") })

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Dispatch() should propagate listener panic")
			}
		}()
		store.Dispatch(Action{Type: "inc"})
	}()

	if strings.Join(calls, "") != "A" {
		t.Errorf("calls = %v, want [A]", calls)
	}
	if got := store.GetState(); got != 1 {
		t.Errorf("GetState() = %v, want 1 (transition happened before notification)", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := newCountStore(t)

	var wg sync.WaitGroup
	numGoroutines := 10
	numDispatches := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numDispatches; j++ {
				store.Dispatch(Action{Type: "inc"})
			}
		}()
	}

	// concurrent reads
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numDispatches; j++ {
				_ = store.GetState()
			}
		}()
	}

	// concurrent subscribe/unsubscribe
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := store.Subscribe(func() {})
			unsub()
		}()
	}

	wg.Wait()

	if got := store.GetState(); got != numGoroutines*numDispatches {
		t.Errorf("GetState() = %v, want %v", got, numGoroutines*numDispatches)
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeApplied.String() != "applied" {
		t.Errorf("OutcomeApplied.String() = %q, want %q", OutcomeApplied.String(), "applied")
	}
	if OutcomeMalformed.String() != "malformed" {
		t.Errorf("OutcomeMalformed.String() = %q, want %q", OutcomeMalformed.String(), "malformed")
	}
	if OutcomeIntercepted.String() != "intercepted" {
		t.Errorf("OutcomeIntercepted.String() = %q, want %q", OutcomeIntercepted.String(), "intercepted")
	}
}
