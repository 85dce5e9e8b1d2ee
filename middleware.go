package tinystore

// DispatchFunc dispatches one action and reports what happened to it.
type DispatchFunc func(action Action) Outcome

// MiddlewareAPI is the view of the store handed to each [Middleware].
//
// Dispatch runs the full middleware chain from the outside, so actions
// dispatched from middleware are seen by every middleware again.
// GetState returns the current state as an any; assert it to the
// store's state type.
type MiddlewareAPI struct {
	Dispatch DispatchFunc
	GetState func() any
}

// Middleware wraps dispatch.
//
// A middleware receives the next dispatch in the chain and returns its
// own. It may pass the action on, change it, dispatch other actions, or
// swallow it by returning without calling next. A swallowed action never
// reaches the reducer and does not notify listeners.
//
// Example:
//
//	audit := func(api tinystore.MiddlewareAPI, next tinystore.DispatchFunc) tinystore.DispatchFunc {
//	    return func(action tinystore.Action) tinystore.Outcome {
//	        outcome := next(action)
//	        slog.Info("dispatched", "type", action.Type, "outcome", outcome)
//	        return outcome
//	    }
//	}
type Middleware func(api MiddlewareAPI, next DispatchFunc) DispatchFunc

// Thunk is an action payload holding deferred work.
//
// With [ThunkMiddleware] installed, dispatching an action whose Payload
// is a Thunk runs the thunk instead of the reducer. The thunk may read
// the state and dispatch any number of actions.
type Thunk func(dispatch DispatchFunc, getState func() any)

// ThunkMiddleware runs [Thunk] payloads and passes every other action on.
//
// An action carrying a thunk is consumed whatever its Type, and Dispatch
// returns [OutcomeIntercepted] for it. A plain func with the Thunk
// signature is accepted as well.
func ThunkMiddleware(api MiddlewareAPI, next DispatchFunc) DispatchFunc {
	return func(action Action) Outcome {
		switch thunk := action.Payload.(type) {
		case Thunk:
			thunk(api.Dispatch, api.GetState)
			return OutcomeIntercepted
		case func(DispatchFunc, func() any):
			thunk(api.Dispatch, api.GetState)
			return OutcomeIntercepted
		}
		return next(action)
	}
}

// chain wraps base with mws so that mws[0] sees each action first.
func chain(api MiddlewareAPI, base DispatchFunc, mws []Middleware) DispatchFunc {
	next := base
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](api, next)
	}
	return next
}
