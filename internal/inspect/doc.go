// Package inspect provides a read/write HTTP view onto a running
// [tinystore.Store].
//
// This package is internal to tinystore and backs the "serve" command.
// It has two parts:
//
//   - [Hub]: turns store notifications into [Snapshot] values and fans
//     them out to channel subscribers
//   - [Server]: HTTP API with a JSON state endpoint, an action endpoint,
//     and a Server-Sent Events stream of snapshots
//
// Hub subscribers receive snapshots via buffered channels with
// non-blocking sends. Slow subscribers miss snapshots rather than block
// the store's dispatch path.
package inspect
