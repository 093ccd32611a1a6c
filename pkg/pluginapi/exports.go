package pluginapi

import (
	"reflect"

	"github.com/traefik/yaegi/interp"
)

// ImportPath is the path plugins import this package under
const ImportPath = "github.com/platinummonkey/patchbridge/pkg/pluginapi"

// Symbols exposes this package to plugin interpreters. Keys follow the
// interpreter's "importPath/pkgName" convention.
var Symbols = interp.Exports{
	ImportPath + "/pluginapi": {
		// functions
		"GetServer":   reflect.ValueOf(GetServer),
		"ParseHandle": reflect.ValueOf(ParseHandle),

		// constants
		"PriorityLowest":      reflect.ValueOf(PriorityLowest),
		"PriorityLow":         reflect.ValueOf(PriorityLow),
		"PriorityNormal":      reflect.ValueOf(PriorityNormal),
		"PriorityHigh":        reflect.ValueOf(PriorityHigh),
		"PriorityHighest":     reflect.ValueOf(PriorityHighest),
		"PriorityMonitor":     reflect.ValueOf(PriorityMonitor),
		"PlayerJoinEventType": reflect.ValueOf(PlayerJoinEventType),
		"PlayerQuitEventType": reflect.ValueOf(PlayerQuitEventType),
		"PlayerChatEventType": reflect.ValueOf(PlayerChatEventType),

		// types
		"Abilities":       reflect.ValueOf((*Abilities)(nil)),
		"Cancellable":     reflect.ValueOf((*Cancellable)(nil)),
		"Event":           reflect.ValueOf((*Event)(nil)),
		"EventHandler":    reflect.ValueOf((*EventHandler)(nil)),
		"EventPriority":   reflect.ValueOf((*EventPriority)(nil)),
		"Handle":          reflect.ValueOf((*Handle)(nil)),
		"Plugin":          reflect.ValueOf((*Plugin)(nil)),
		"PlayerChatEvent": reflect.ValueOf((*PlayerChatEvent)(nil)),
		"PlayerJoinEvent": reflect.ValueOf((*PlayerJoinEvent)(nil)),
		"PlayerQuitEvent": reflect.ValueOf((*PlayerQuitEvent)(nil)),
		"Server":          reflect.ValueOf((*Server)(nil)),
		"Vec3":            reflect.ValueOf((*Vec3)(nil)),

		// interface wrappers
		"_Event":  reflect.ValueOf((*_pluginapi_Event)(nil)),
		"_Plugin": reflect.ValueOf((*_pluginapi_Plugin)(nil)),
	},
}

// _pluginapi_Event is an interface wrapper for Event type
type _pluginapi_Event struct {
	IValue        interface{}
	WCancelled    func() bool
	WEventType    func() string
	WSetCancelled func(cancel bool)
}

func (W _pluginapi_Event) Cancelled() bool          { return W.WCancelled() }
func (W _pluginapi_Event) EventType() string        { return W.WEventType() }
func (W _pluginapi_Event) SetCancelled(cancel bool) { W.WSetCancelled(cancel) }

// _pluginapi_Plugin is an interface wrapper for Plugin type
type _pluginapi_Plugin struct {
	IValue     interface{}
	WOnDisable func() error
	WOnEnable  func() error
}

func (W _pluginapi_Plugin) OnDisable() error { return W.WOnDisable() }
func (W _pluginapi_Plugin) OnEnable() error  { return W.WOnEnable() }
