// Package counter provides the counter reducers used by the tinystore
// binary.
//
// A counter named "bugs" reacts to "bugs/inc", "bugs/dec" and "bugs/reset"
// and ignores every other action. [Combine] joins several counters into a
// single map-shaped reducer with [tinystore.CombineReducers].
package counter
