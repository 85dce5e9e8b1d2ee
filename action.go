package tinystore

// Action describes an intended state change.
//
// Type is the discriminant reducers switch on. An empty Type marks the
// action as malformed; see [Store.Dispatch]. Payload is optional and is
// passed to the reducer untouched.
type Action struct {
	// Type identifies the kind of change, e.g. "bugs/inc".
	Type string `json:"type" yaml:"type"`

	// Payload carries optional action data.
	Payload any `json:"payload,omitempty" yaml:"payload"`
}

// Reducer computes the next state from the current state and an action.
//
// Reducers must be pure: no side effects, and the input state is never
// modified in place. The zero value of S is the uninitialized state and
// must be handled as the initial case.
type Reducer[S any] func(state S, action Action) S

// Listener is called after every dispatch, whether or not the state
// changed. It receives no arguments; read the state with [Store.GetState].
type Listener func()

// Unsubscribe removes the listener registration it was returned for.
// Calling it more than once is a no-op.
type Unsubscribe func()

// Outcome reports which path [Store.Dispatch] took.
type Outcome string

const (
	// OutcomeApplied means the reducer ran and its result replaced the state.
	OutcomeApplied Outcome = "applied"

	// OutcomeMalformed means the action had no Type. The reducer was not
	// called and the state is unchanged; listeners were still notified.
	OutcomeMalformed Outcome = "malformed"

	// OutcomeIntercepted means a [Middleware] consumed the action. The
	// reducer was not called for it and listeners were not notified.
	OutcomeIntercepted Outcome = "intercepted"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}
