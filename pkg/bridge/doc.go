// Package bridge is the foreign-function layer between plugins and the native
// server core.
//
// # Overview
//
// The native core owns every player, entity and world. It loads the host as a
// shared library and calls Register once with the raw addresses of its
// callback functions. Each address is bound to a typed Go func (a downcall)
// and the whole table is published atomically. Before that, every operation
// fails with ErrUnregistered.
//
// # Calling convention
//
// Entities cross the boundary as UUID strings, never pointers. Every call
// copies its string arguments into a per-call arena that is released when the
// call returns, whatever the outcome. Compound values travel in fixed C
// layouts (see layout.go). Strings returned by the native side are owned by
// the caller and released through the native free-string function exactly
// once, right after they are copied.
//
// # Failures
//
// A missing entity is not an error: lookups return ok=false and writes return
// false. Anything that goes wrong invoking a downcall comes back as a
// *CallError naming the operation. Calls are never retried.
//
// # Usage
//
//	b := bridge.New(bridge.WithLogger(logger))
//	if err := b.Register(addrs); err != nil {
//		return err
//	}
//	abilities, ok, err := b.GetAbilities(player)
package bridge
