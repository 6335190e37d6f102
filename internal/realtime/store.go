// Package realtime derives typed state snapshots from a push-based keyed
// tree store. Each subscription emits a loading state synchronously, then a
// loaded or error state for every change notification, until its
// unsubscribe function is called.
package realtime

import "context"

// Unsubscribe detaches a listener. After it returns, the subscription's
// callback is never invoked again, even for events already in flight.
type Unsubscribe func()

// Store is the external realtime collaborator. Values handed to onValue are
// decoded-JSON shaped: nil, []any, map[string]any, or primitives.
//
// The store owns its consistency model; Set is an unconditional
// last-writer-wins write at the given slash-separated path.
type Store interface {
	Listen(path string, onValue func(value any), onError func(err error)) Unsubscribe
	Set(ctx context.Context, path string, value any) error
}
