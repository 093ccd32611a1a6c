// Package host wires the plugin host together and is the only package the
// native-facing exports talk to.
//
// A Runtime is built from configuration and owns the bridge, the event
// dispatcher, the dependency resolver, the plugin loader and manager, the
// admin HTTP server and the library cache pruner:
//
//	cfg, _ := config.LoadConfig()
//	rt, err := host.New(cfg)
//	...
//	rt.RegisterNatives(addrs)
//	rt.Start(ctx)
//	rt.EnableAll()
//	cancelled, err := rt.FireEvent(pluginapi.PlayerChatEventType, payload, "")
//	rt.Shutdown(ctx)
//
// Plugins reach the native core through Server, the pluginapi.Server that
// Start installs. Plugins the native core creates itself are referenced by
// int64 handles from a Handles table; the native side never holds Go
// pointers.
//
// # Admin API
//
// When an admin address is configured the runtime serves:
//
//	GET  /plugins
//	GET  /plugins/{name}
//	POST /plugins/{name}/enable
//	POST /plugins/{name}/disable
//	GET  /plugins/order, /plugins/graph, /plugins/{name}/dependencies, ...
//	GET  /events/{type}/listeners
//	GET  /registries/{name}
//	GET  /health, /health/live, /health/ready
//	GET  /metrics
package host
