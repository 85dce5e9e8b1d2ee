package counter

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jpalmerr/tinystore"
)

// Action suffixes understood by a counter.
const (
	OpInc   = "inc"
	OpDec   = "dec"
	OpReset = "reset"
)

// New returns a reducer for the counter called name.
//
// The step for inc and dec is read from the payload: a number, or a map
// with a numeric "by" key. Anything else counts as a step of 1.
func New(name string) tinystore.Reducer[int] {
	prefix := name + "/"

	return func(state int, action tinystore.Action) int {
		op, ok := strings.CutPrefix(action.Type, prefix)
		if !ok {
			return state
		}

		switch op {
		case OpInc:
			return state + step(action.Payload)
		case OpDec:
			return state - step(action.Payload)
		case OpReset:
			return 0
		default:
			return state
		}
	}
}

// ActionType returns the action type for op on the counter called name.
func ActionType(name, op string) string {
	return name + "/" + op
}

// Combine builds one reducer over the counters in names. Each counter
// owns the state key of the same name.
//
// Returns an error if names is empty, or a name is empty, contains "/"
// or appears twice.
func Combine(names ...string) (tinystore.Reducer[map[string]any], error) {
	if len(names) == 0 {
		return nil, errors.New("at least one counter is required")
	}

	reducers := make(map[string]tinystore.Reducer[any], len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("counters[%d]: name is required", i)
		}
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("counters[%d] (%s): name must not contain '/'", i, name)
		}
		if _, exists := reducers[name]; exists {
			return nil, fmt.Errorf("duplicate counter name: %q", name)
		}
		reducers[name] = tinystore.AsAny(New(name))
	}

	return tinystore.CombineReducers(reducers), nil
}

// step extracts the increment from an action payload.
// JSON numbers decode as float64 and YAML numbers as int; both are accepted.
// Floats that are NaN, infinite or outside the int range count as 1.
func step(payload any) int {
	switch v := payload.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// -float64(math.MinInt) is 2^63, the first value past math.MaxInt
		if v >= float64(math.MinInt) && v < -float64(math.MinInt) {
			return int(v)
		}
	case map[string]any:
		if by, ok := v["by"]; ok {
			return step(by)
		}
	}
	return 1
}
