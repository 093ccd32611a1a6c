package bridge

import (
	"sync"
	"time"
	"unsafe"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

type sentMessage struct {
	player  string
	message string
}

type registeredEvent struct {
	eventType string
	plugin    string
	priority  int32
	blocking  bool
}

// fakeNative is an in-process stand-in for the native core. It reads
// arguments and writes results through the same raw pointers a real core
// would.
type fakeNative struct {
	mu         sync.Mutex
	abilities  map[string]pluginapi.Abilities
	locations  map[string]pluginapi.Vec3
	worlds     map[string]string
	registries map[string]string
	messages   []sentMessage
	events     []registeredEvent
	sounds     []string
	live       map[uintptr][]byte
	frees      int
	badFrees   int
	panicOn    string
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		abilities:  map[string]pluginapi.Abilities{},
		locations:  map[string]pluginapi.Vec3{},
		worlds:     map[string]string{},
		registries: map[string]string{},
		live:       map[uintptr][]byte{},
	}
}

func (f *fakeNative) allocString(s string) uintptr {
	buf := append([]byte(s), 0)
	p := uintptr(unsafe.Pointer(&buf[0]))
	f.live[p] = buf
	return p
}

func (f *fakeNative) maybePanic(op string) {
	if f.panicOn == op {
		panic("native fault in " + op)
	}
}

func (f *fakeNative) downcalls() *Downcalls {
	return &Downcalls{
		SendMessage: func(uuid, message uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.maybePanic(OpSendMessage)
			f.messages = append(f.messages, sentMessage{player: cStringAt(uuid), message: cStringAt(message)})
		},
		RegisterEvent: func(eventType, pluginName uintptr, priority int32, blocking bool) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, registeredEvent{
				eventType: cStringAt(eventType),
				plugin:    cStringAt(pluginName),
				priority:  priority,
				blocking:  blocking,
			})
		},
		GetAbilities: func(uuid uintptr, out unsafe.Pointer) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			a, ok := f.abilities[cStringAt(uuid)]
			if !ok {
				return false
			}
			*(*abilitiesFFI)(out) = abilitiesFFI{
				Invulnerable:     a.Invulnerable,
				Flying:           a.Flying,
				AllowFlying:      a.AllowFlying,
				Creative:         a.Creative,
				AllowModifyWorld: a.AllowModifyWorld,
				FlySpeed:         a.FlySpeed,
				WalkSpeed:        a.WalkSpeed,
			}
			return true
		},
		SetAbilities: func(uuid uintptr, in unsafe.Pointer) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			id := cStringAt(uuid)
			if _, ok := f.abilities[id]; !ok {
				return false
			}
			src := (*abilitiesFFI)(in)
			f.abilities[id] = pluginapi.Abilities{
				Invulnerable:     src.Invulnerable,
				Flying:           src.Flying,
				AllowFlying:      src.AllowFlying,
				Creative:         src.Creative,
				AllowModifyWorld: src.AllowModifyWorld,
				FlySpeed:         src.FlySpeed,
				WalkSpeed:        src.WalkSpeed,
			}
			return true
		},
		GetLocation: func(uuid uintptr, out unsafe.Pointer) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			v, ok := f.locations[cStringAt(uuid)]
			if !ok {
				return false
			}
			*(*vec3FFI)(out) = vec3FFI{X: v.X, Y: v.Y, Z: v.Z}
			return true
		},
		FreeString: func(str uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.live[str]; !ok {
				f.badFrees++
				return
			}
			delete(f.live, str)
			f.frees++
		},
		GetWorld: func(uuid uintptr) uintptr {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.maybePanic(OpGetWorld)
			w, ok := f.worlds[cStringAt(uuid)]
			if !ok {
				return 0
			}
			return f.allocString(w)
		},
		GetRegistryData: func(name uintptr) uintptr {
			f.mu.Lock()
			defer f.mu.Unlock()
			r, ok := f.registries[cStringAt(name)]
			if !ok {
				return 0
			}
			return f.allocString(r)
		},
		PlayerEntityPlaySound: func(player, sound, category, entity uintptr, volume, pitch float32) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sounds = append(f.sounds, cStringAt(player)+"|"+cStringAt(sound)+"|"+cStringAt(category)+"|"+cStringAt(entity))
		},
		PlayerPlaySound: func(player, sound, category uintptr, x, y, z float64, volume, pitch float32) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sounds = append(f.sounds, cStringAt(player)+"|"+cStringAt(sound)+"|"+cStringAt(category))
		},
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveCall(op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+outcome)
}
