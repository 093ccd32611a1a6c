// Package pluginapi is the stable API plugins are written against.
//
// # Overview
//
// A plugin is a Go type implementing Plugin. Archive plugins are shipped as Go
// source and run inside a private interpreter; compiled-in plugins register a
// factory with the plugins package. Either way, a plugin reaches the native
// server core only through the Server returned by GetServer:
//
//	type Greeter struct{}
//
//	func (g *Greeter) OnEnable() error {
//		return pluginapi.GetServer().RegisterListener("greeter",
//			pluginapi.PlayerJoinEventType, pluginapi.PriorityNormal,
//			func(e pluginapi.Event) {
//				join := e.(*pluginapi.PlayerJoinEvent)
//				_ = pluginapi.GetServer().SendMessage(join.Player, "welcome!")
//			})
//	}
//
//	func (g *Greeter) OnDisable() error { return nil }
//
// # Handles
//
// Native entities are named by Handle (a UUID), never by pointer. Lookups that
// miss return ok=false rather than an error.
package pluginapi
