package bridge

import (
	"fmt"
	"unsafe"
)

// Addresses is the raw function table the native core hands over at startup.
// Field order is the order of the native registration call and must not
// change.
type Addresses struct {
	SendMessage           uintptr
	RegisterEvent         uintptr
	GetAbilities          uintptr
	SetAbilities          uintptr
	GetLocation           uintptr
	FreeString            uintptr
	GetWorld              uintptr
	GetRegistryData       uintptr
	PlayerEntityPlaySound uintptr
	PlayerPlaySound       uintptr
}

// AddressesFromSlice builds an Addresses from positional values. Nine-entry
// tables from older cores leave PlayerPlaySound zero.
func AddressesFromSlice(addrs []uintptr) Addresses {
	var a Addresses
	dst := []*uintptr{
		&a.SendMessage,
		&a.RegisterEvent,
		&a.GetAbilities,
		&a.SetAbilities,
		&a.GetLocation,
		&a.FreeString,
		&a.GetWorld,
		&a.GetRegistryData,
		&a.PlayerEntityPlaySound,
		&a.PlayerPlaySound,
	}
	for i := 0; i < len(addrs) && i < len(dst); i++ {
		*dst[i] = addrs[i]
	}
	return a
}

// Validate reports the mandatory entries that are zero
func (a Addresses) Validate() error {
	if missing := a.missing(); len(missing) > 0 {
		return fmt.Errorf("missing addresses for %v", missing)
	}
	return nil
}

// missing returns the names of the mandatory entries that are zero
func (a Addresses) missing() []string {
	var out []string
	check := func(name string, v uintptr) {
		if v == 0 {
			out = append(out, name)
		}
	}
	check(OpSendMessage, a.SendMessage)
	check(OpRegisterEvent, a.RegisterEvent)
	check(OpGetAbilities, a.GetAbilities)
	check(OpSetAbilities, a.SetAbilities)
	check(OpGetLocation, a.GetLocation)
	check(OpFreeString, a.FreeString)
	check(OpGetWorld, a.GetWorld)
	check(OpGetRegistryData, a.GetRegistryData)
	check(OpPlayerEntityPlaySound, a.PlayerEntityPlaySound)
	return out
}

// Downcalls is the typed view of the function table. Pointers and char*
// travel as uintptr or unsafe.Pointer; the memory behind them is owned by the
// caller for the duration of the call. A nil entry is treated as unregistered.
type Downcalls struct {
	SendMessage           func(uuid, message uintptr)
	RegisterEvent         func(eventType, pluginName uintptr, priority int32, blocking bool)
	GetAbilities          func(uuid uintptr, out unsafe.Pointer) bool
	SetAbilities          func(uuid uintptr, in unsafe.Pointer) bool
	GetLocation           func(uuid uintptr, out unsafe.Pointer) bool
	FreeString            func(str uintptr)
	GetWorld              func(uuid uintptr) uintptr
	GetRegistryData       func(name uintptr) uintptr
	PlayerEntityPlaySound func(player, sound, category, entity uintptr, volume, pitch float32)
	PlayerPlaySound       func(player, sound, category uintptr, x, y, z float64, volume, pitch float32)
}

// Operation names, used in errors, logs and metrics.
const (
	OpSendMessage           = "sendMessage"
	OpRegisterEvent         = "registerEvent"
	OpGetAbilities          = "getAbilities"
	OpSetAbilities          = "setAbilities"
	OpGetLocation           = "getLocation"
	OpFreeString            = "freeString"
	OpGetWorld              = "getWorld"
	OpGetRegistryData       = "getRegistryData"
	OpPlayerEntityPlaySound = "playerEntityPlaySound"
	OpPlayerPlaySound       = "playerPlaySound"
)
