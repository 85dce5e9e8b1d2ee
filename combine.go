package tinystore

import "sort"

// CombineReducers builds a reducer for a map-shaped state where each key
// is owned by one slice reducer.
//
// For every action, each slice reducer receives its current slice (nil
// on the first call) and the action. The results are written into a new
// map, which becomes the next state; the input map is never modified.
// Keys not named in reducers, or mapped to a nil reducer, are dropped.
// Slice reducers run in sorted key order.
//
// Example:
//
//	root := tinystore.CombineReducers(map[string]tinystore.Reducer[any]{
//	    "entities": tinystore.AsAny(tinystore.CombineReducers(entities)),
//	})
func CombineReducers(reducers map[string]Reducer[any]) Reducer[map[string]any] {
	// copy so later changes to the caller's map have no effect
	keys := make([]string, 0, len(reducers))
	owned := make(map[string]Reducer[any], len(reducers))
	for k, r := range reducers {
		if r == nil {
			continue
		}
		keys = append(keys, k)
		owned[k] = r
	}
	sort.Strings(keys) // deterministic reducer order

	return func(state map[string]any, action Action) map[string]any {
		next := make(map[string]any, len(keys))
		for _, k := range keys {
			next[k] = owned[k](state[k], action)
		}
		return next
	}
}

// AsAny adapts a typed reducer into a slice reducer for [CombineReducers].
//
// A slice that is nil or not of type S is passed to r as the zero value
// of S, which r treats as its initial state.
func AsAny[S any](r Reducer[S]) Reducer[any] {
	return func(state any, action Action) any {
		typed, _ := state.(S)
		return r(typed, action)
	}
}
