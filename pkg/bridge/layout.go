package bridge

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// field is one member of a C struct
type field struct {
	name   string
	offset uintptr
	width  uintptr
}

// structLayout is the shared description both runtimes are built against.
// Gaps between fields are padding.
type structLayout struct {
	name   string
	size   uintptr
	align  uintptr
	fields []field
}

func (l structLayout) offset(name string) uintptr {
	for _, f := range l.fields {
		if f.name == name {
			return f.offset
		}
	}
	panic(fmt.Sprintf("bridge: %s has no field %q", l.name, name))
}

// abilitiesLayout matches the native #[repr(C)] AbilitiesFFI:
// five bools, three bytes of padding, two f32.
var abilitiesLayout = structLayout{
	name:  "AbilitiesFFI",
	size:  16,
	align: 4,
	fields: []field{
		{name: "invulnerable", offset: 0, width: 1},
		{name: "flying", offset: 1, width: 1},
		{name: "allow_flying", offset: 2, width: 1},
		{name: "creative", offset: 3, width: 1},
		{name: "allow_modify_world", offset: 4, width: 1},
		{name: "fly_speed", offset: 8, width: 4},
		{name: "walk_speed", offset: 12, width: 4},
	},
}

// vec3Layout matches the native #[repr(C)] Vec3FFI
var vec3Layout = structLayout{
	name:  "Vec3FFI",
	size:  24,
	align: 8,
	fields: []field{
		{name: "x", offset: 0, width: 8},
		{name: "y", offset: 8, width: 8},
		{name: "z", offset: 16, width: 8},
	},
}

// abilitiesFFI and vec3FFI are the Go mirrors of the native structs. They are
// only used to pin the layout at compile time and in tests.
type abilitiesFFI struct {
	Invulnerable     bool
	Flying           bool
	AllowFlying      bool
	Creative         bool
	AllowModifyWorld bool
	_                [3]byte
	FlySpeed         float32
	WalkSpeed        float32
}

type vec3FFI struct {
	X float64
	Y float64
	Z float64
}

var (
	_ [16]byte = [unsafe.Sizeof(abilitiesFFI{})]byte{}
	_ [24]byte = [unsafe.Sizeof(vec3FFI{})]byte{}
)

var (
	offInvulnerable     = abilitiesLayout.offset("invulnerable")
	offFlying           = abilitiesLayout.offset("flying")
	offAllowFlying      = abilitiesLayout.offset("allow_flying")
	offCreative         = abilitiesLayout.offset("creative")
	offAllowModifyWorld = abilitiesLayout.offset("allow_modify_world")
	offFlySpeed         = abilitiesLayout.offset("fly_speed")
	offWalkSpeed        = abilitiesLayout.offset("walk_speed")

	offX = vec3Layout.offset("x")
	offY = vec3Layout.offset("y")
	offZ = vec3Layout.offset("z")
)

func putBool(buf []byte, off uintptr, v bool) {
	if v {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
}

// encodeAbilities writes a into buf using the native byte order. buf must be
// at least abilitiesLayout.size bytes; padding is zeroed.
func encodeAbilities(a pluginapi.Abilities, buf []byte) {
	_ = buf[abilitiesLayout.size-1]
	clear(buf[:abilitiesLayout.size])
	putBool(buf, offInvulnerable, a.Invulnerable)
	putBool(buf, offFlying, a.Flying)
	putBool(buf, offAllowFlying, a.AllowFlying)
	putBool(buf, offCreative, a.Creative)
	putBool(buf, offAllowModifyWorld, a.AllowModifyWorld)
	binary.NativeEndian.PutUint32(buf[offFlySpeed:], math.Float32bits(a.FlySpeed))
	binary.NativeEndian.PutUint32(buf[offWalkSpeed:], math.Float32bits(a.WalkSpeed))
}

// decodeAbilities reads an AbilitiesFFI. Any non-zero byte is a true bool.
func decodeAbilities(buf []byte) pluginapi.Abilities {
	_ = buf[abilitiesLayout.size-1]
	return pluginapi.Abilities{
		Invulnerable:     buf[offInvulnerable] != 0,
		Flying:           buf[offFlying] != 0,
		AllowFlying:      buf[offAllowFlying] != 0,
		Creative:         buf[offCreative] != 0,
		AllowModifyWorld: buf[offAllowModifyWorld] != 0,
		FlySpeed:         math.Float32frombits(binary.NativeEndian.Uint32(buf[offFlySpeed:])),
		WalkSpeed:        math.Float32frombits(binary.NativeEndian.Uint32(buf[offWalkSpeed:])),
	}
}

func decodeVec3(buf []byte) pluginapi.Vec3 {
	_ = buf[vec3Layout.size-1]
	return pluginapi.Vec3{
		X: math.Float64frombits(binary.NativeEndian.Uint64(buf[offX:])),
		Y: math.Float64frombits(binary.NativeEndian.Uint64(buf[offY:])),
		Z: math.Float64frombits(binary.NativeEndian.Uint64(buf[offZ:])),
	}
}
