// Package events routes events fired by the native core to plugin listeners.
//
// Plugins register listeners through pluginapi.Server. The host stores the
// handler in a Dispatcher and tells the native core which event types it
// wants. When the native core fires an event it passes the type name and a
// JSON payload; the Dispatcher decodes the payload into the typed event and
// runs every matching listener.
//
// # Ordering
//
// Listeners run by priority, Lowest first and Monitor last. Listeners with
// the same priority run in registration order. A listener registered with
// ignoreCancelled is skipped once an earlier listener cancelled the event.
// Monitor listeners observe the final outcome: changes they make to the
// cancelled flag are discarded.
//
// A panicking listener is logged and skipped; the remaining listeners still
// run.
//
// # Usage Example
//
//	d := events.NewDispatcher(events.WithLogger(logger))
//	d.Register("Greeter", pluginapi.PlayerJoinEventType, pluginapi.PriorityNormal, false,
//		func(e pluginapi.Event) {
//			join := e.(*pluginapi.PlayerJoinEvent)
//			logger.Infof("%s joined", join.Player)
//		})
//
//	cancelled, err := d.Fire(pluginapi.PlayerJoinEventType, payload, "")
package events
