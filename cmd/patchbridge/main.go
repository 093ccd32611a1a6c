// Command patchbridge is built with -buildmode=c-shared and loaded by the
// native server core. Every exported function is safe to call from any
// native thread.
package main

/*
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import "github.com/platinummonkey/patchbridge/pkg/host"

var state = newHostState()

//export patchbridge_init_callbacks
func patchbridge_init_callbacks(
	sendMessage, registerEvent, getAbilities, setAbilities, getLocation,
	freeString, getWorld, getRegistryData, playerEntityPlaySound, playerPlaySound C.uintptr_t,
) C.bool {
	addrs := []uintptr{
		uintptr(sendMessage),
		uintptr(registerEvent),
		uintptr(getAbilities),
		uintptr(setAbilities),
		uintptr(getLocation),
		uintptr(freeString),
		uintptr(getWorld),
		uintptr(getRegistryData),
		uintptr(playerEntityPlaySound),
		uintptr(playerPlaySound),
	}
	return C.bool(state.initCallbacks(addrs) == nil)
}

//export patchbridge_start
func patchbridge_start(pluginsDir *C.char) C.bool {
	return C.bool(state.start(goString(pluginsDir)) == nil)
}

//export patchbridge_create_plugin
func patchbridge_create_plugin(archive, mainClass, extraClasspath, libraries *C.char) C.int64_t {
	return C.int64_t(state.createPlugin(
		goString(archive),
		goString(mainClass),
		goString(extraClasspath),
		goString(libraries),
	))
}

//export patchbridge_enable_plugin
func patchbridge_enable_plugin(handle C.int64_t) C.bool {
	return C.bool(state.withRuntime("enable plugin", func(rt *host.Runtime) error {
		return rt.EnablePlugin(int64(handle))
	}))
}

//export patchbridge_disable_plugin
func patchbridge_disable_plugin(handle C.int64_t) C.bool {
	return C.bool(state.withRuntime("disable plugin", func(rt *host.Runtime) error {
		return rt.DisablePlugin(int64(handle))
	}))
}

//export patchbridge_enable_all
func patchbridge_enable_all() {
	state.withRuntime("enable all", func(rt *host.Runtime) error {
		rt.EnableAll()
		return nil
	})
}

//export patchbridge_disable_all
func patchbridge_disable_all() {
	state.withRuntime("disable all", func(rt *host.Runtime) error {
		rt.DisableAll()
		return nil
	})
}

//export patchbridge_fire_event
func patchbridge_fire_event(eventType, payload, plugin *C.char) C.bool {
	return C.bool(state.fireEvent(goString(eventType), []byte(goString(payload)), goString(plugin)))
}

//export patchbridge_shutdown
func patchbridge_shutdown() {
	if err := state.shutdown(); err != nil {
		state.log.WithError(err).Error("Plugin host shutdown failed")
	}
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func main() {}
