// Package tinystore provides a minimal observable state container in the
// style of Redux: one state value, a pure reducer that computes the next
// state for each dispatched action, and listeners that are notified
// synchronously after every dispatch.
//
// # Quick Start
//
// Create a store from a reducer, subscribe to it, and dispatch actions:
//
//	count := func(state int, action tinystore.Action) int {
//	    if action.Type == "inc" {
//	        return state + 1
//	    }
//	    return state
//	}
//
//	store, err := tinystore.New(count)
//	if err != nil {
//	    slog.Error("failed to create store", "error", err)
//	    os.Exit(1)
//	}
//
//	unsubscribe := store.Subscribe(func() {
//	    fmt.Println("state:", store.GetState())
//	})
//	defer unsubscribe()
//
//	store.Dispatch(tinystore.Action{Type: "inc"})
//
// # Dispatch Semantics
//
// [Store.Dispatch] runs the reducer and then every listener inline, on the
// caller's goroutine, before returning. An action with an empty Type is
// malformed: the reducer is skipped, a diagnostic is logged, and the
// listeners still run. Dispatch reports which path was taken through its
// [Outcome] return value.
//
// Panics raised by the reducer or by a listener are not recovered. They
// reach the caller of Dispatch and the remaining listeners of that pass
// are skipped.
//
// # Middleware
//
// [WithMiddleware] wraps Dispatch in a chain of [Middleware]. Each one
// sees the action before the reducer and may pass it on, rewrite it,
// dispatch further actions or consume it. [ThunkMiddleware] runs
// actions whose payload is a [Thunk], which is how asynchronous or
// multi-step work reads the state and dispatches:
//
//	store, _ := tinystore.New(reducer, tinystore.WithMiddleware(tinystore.ThunkMiddleware))
//	store.Dispatch(tinystore.Action{Type: "bugs/load", Payload: tinystore.Thunk(
//	    func(dispatch tinystore.DispatchFunc, getState func() any) {
//	        dispatch(tinystore.Action{Type: "bugs/inc"})
//	    },
//	)})
//
// # Composition
//
// [CombineReducers] splits a map-shaped state into independently reduced
// slices, and [AsAny] adapts a typed reducer into such a slice.
//
// # Architecture
//
// Besides the container itself, the module ships:
//
//   - internal/counter: counter reducers used by the command-line tool
//   - internal/inspect: HTTP and Server-Sent Events view onto a running store
//   - config: YAML configuration for the tinystore binary
//   - cmd/tinystore: the tinystore binary
package tinystore
