package bridge

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// Call outcomes reported to the Observer
const (
	OutcomeOK     = "ok"
	OutcomeAbsent = "absent"
	OutcomeError  = "error"
)

// Observer receives one record per downcall
type Observer interface {
	ObserveCall(op, outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveCall(string, string, time.Duration) {}

// Bridge performs typed calls into the native core. The function table is
// written by Register or Install and read lock-free by every call.
type Bridge struct {
	table    atomic.Pointer[Downcalls]
	logger   *logrus.Logger
	observer Observer
}

// Option configures a Bridge
type Option func(*Bridge)

// WithLogger sets the logger used for registration events
func WithLogger(logger *logrus.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithObserver sets the per-call observer
func WithObserver(o Observer) Option {
	return func(b *Bridge) {
		if o != nil {
			b.observer = o
		}
	}
}

// New creates an unregistered bridge
func New(opts ...Option) *Bridge {
	b := &Bridge{
		logger:   logrus.New(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register binds the native addresses and publishes the table. Every entry
// except PlayerPlaySound is mandatory. Registering again replaces the table.
func (b *Bridge) Register(addrs Addresses) error {
	if err := addrs.Validate(); err != nil {
		return fmt.Errorf("registering native functions: %w", err)
	}
	d, err := bind(addrs)
	if err != nil {
		return err
	}
	b.publish(d)
	return nil
}

// Install publishes a table whose funcs are already bound
func (b *Bridge) Install(d *Downcalls) {
	if d == nil {
		return
	}
	b.publish(d)
}

func (b *Bridge) publish(d *Downcalls) {
	if prev := b.table.Swap(d); prev != nil {
		b.logger.Warn("Native function table re-registered")
		return
	}
	b.logger.WithField("play_sound_at", d.PlayerPlaySound != nil).Info("Native function table registered")
}

// Registered reports whether a function table has been published
func (b *Bridge) Registered() bool {
	return b.table.Load() != nil
}

// invoke runs fn with the current table and a fresh arena. The arena is
// released on every path and panics become a CallError.
func (b *Bridge) invoke(op string, fn func(d *Downcalls, a *arena) (string, error)) (err error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		b.observer.ObserveCall(op, outcome, time.Since(start))
	}()

	d := b.table.Load()
	if d == nil {
		return &CallError{Op: op, Err: ErrUnregistered}
	}

	a := newArena()
	defer a.Close()
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeError
			err = &CallError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, ferr := fn(d, a)
	if ferr != nil {
		return &CallError{Op: op, Err: ferr}
	}
	outcome = res
	return nil
}

// SendMessage delivers a chat message to a player
func (b *Bridge) SendMessage(player pluginapi.Handle, message string) error {
	return b.invoke(OpSendMessage, func(d *Downcalls, a *arena) (string, error) {
		if d.SendMessage == nil {
			return "", ErrUnregistered
		}
		id, err := a.cstring(player.String())
		if err != nil {
			return "", err
		}
		msg, err := a.cstring(message)
		if err != nil {
			return "", err
		}
		d.SendMessage(id, msg)
		return OutcomeOK, nil
	})
}

// RegisterEvent tells the native core a plugin listens for eventType.
// Monitor is sent as Highest; the native side knows five levels.
func (b *Bridge) RegisterEvent(eventType, pluginName string, priority pluginapi.EventPriority, blocking bool) error {
	return b.invoke(OpRegisterEvent, func(d *Downcalls, a *arena) (string, error) {
		if d.RegisterEvent == nil {
			return "", ErrUnregistered
		}
		typ, err := a.cstring(eventType)
		if err != nil {
			return "", err
		}
		name, err := a.cstring(pluginName)
		if err != nil {
			return "", err
		}
		d.RegisterEvent(typ, name, NativePriority(priority), blocking)
		return OutcomeOK, nil
	})
}

// NativePriority maps a listener priority onto the native 0..4 range
func NativePriority(p pluginapi.EventPriority) int32 {
	switch {
	case p < pluginapi.PriorityLowest:
		return int32(pluginapi.PriorityLowest)
	case p > pluginapi.PriorityHighest:
		return int32(pluginapi.PriorityHighest)
	default:
		return int32(p)
	}
}

// GetAbilities reads a player's abilities. ok is false if the player is
// unknown to the native core.
func (b *Bridge) GetAbilities(player pluginapi.Handle) (pluginapi.Abilities, bool, error) {
	var out pluginapi.Abilities
	var found bool
	err := b.invoke(OpGetAbilities, func(d *Downcalls, a *arena) (string, error) {
		if d.GetAbilities == nil {
			return "", ErrUnregistered
		}
		id, err := a.cstring(player.String())
		if err != nil {
			return "", err
		}
		buf := a.allocLayout(abilitiesLayout)
		if !d.GetAbilities(id, pointerOf(buf)) {
			return OutcomeAbsent, nil
		}
		out, found = decodeAbilities(buf), true
		return OutcomeOK, nil
	})
	if err != nil {
		return pluginapi.Abilities{}, false, err
	}
	return out, found, nil
}

// SetAbilities writes a player's abilities and reports whether the native
// side applied them
func (b *Bridge) SetAbilities(player pluginapi.Handle, abilities pluginapi.Abilities) (bool, error) {
	var applied bool
	err := b.invoke(OpSetAbilities, func(d *Downcalls, a *arena) (string, error) {
		if d.SetAbilities == nil {
			return "", ErrUnregistered
		}
		id, err := a.cstring(player.String())
		if err != nil {
			return "", err
		}
		buf := a.allocLayout(abilitiesLayout)
		encodeAbilities(abilities, buf)
		if !d.SetAbilities(id, pointerOf(buf)) {
			return OutcomeAbsent, nil
		}
		applied = true
		return OutcomeOK, nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// GetLocation reads an entity position
func (b *Bridge) GetLocation(entity pluginapi.Handle) (pluginapi.Vec3, bool, error) {
	var out pluginapi.Vec3
	var found bool
	err := b.invoke(OpGetLocation, func(d *Downcalls, a *arena) (string, error) {
		if d.GetLocation == nil {
			return "", ErrUnregistered
		}
		id, err := a.cstring(entity.String())
		if err != nil {
			return "", err
		}
		buf := a.allocLayout(vec3Layout)
		if !d.GetLocation(id, pointerOf(buf)) {
			return OutcomeAbsent, nil
		}
		out, found = decodeVec3(buf), true
		return OutcomeOK, nil
	})
	if err != nil {
		return pluginapi.Vec3{}, false, err
	}
	return out, found, nil
}

// GetWorld returns the name of the world an entity is in
func (b *Bridge) GetWorld(entity pluginapi.Handle) (string, bool, error) {
	return b.stringCall(OpGetWorld, entity.String(), func(d *Downcalls) func(uintptr) uintptr {
		return d.GetWorld
	})
}

// GetRegistryData returns the JSON document for a named registry
func (b *Bridge) GetRegistryData(registry string) (string, bool, error) {
	return b.stringCall(OpGetRegistryData, registry, func(d *Downcalls) func(uintptr) uintptr {
		return d.GetRegistryData
	})
}

// stringCall runs a char*(char*) downcall and takes ownership of the result
func (b *Bridge) stringCall(op, arg string, pick func(*Downcalls) func(uintptr) uintptr) (string, bool, error) {
	var out string
	var found bool
	err := b.invoke(op, func(d *Downcalls, a *arena) (string, error) {
		fn := pick(d)
		if fn == nil || d.FreeString == nil {
			return "", ErrUnregistered
		}
		p, err := a.cstring(arg)
		if err != nil {
			return "", err
		}
		s := newNativeString(fn(p), d.FreeString)
		if s.absent() {
			return OutcomeAbsent, nil
		}
		out, found = s.consume(), true
		return OutcomeOK, nil
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

// PlayerEntityPlaySound plays a sound to a player, emitted from an entity
func (b *Bridge) PlayerEntityPlaySound(player pluginapi.Handle, sound, category string, entity pluginapi.Handle, volume, pitch float32) error {
	return b.invoke(OpPlayerEntityPlaySound, func(d *Downcalls, a *arena) (string, error) {
		if d.PlayerEntityPlaySound == nil {
			return "", ErrUnregistered
		}
		args, err := cstrings(a, player.String(), sound, category, entity.String())
		if err != nil {
			return "", err
		}
		d.PlayerEntityPlaySound(args[0], args[1], args[2], args[3], volume, pitch)
		return OutcomeOK, nil
	})
}

// PlayerPlaySound plays a sound to a player at a position
func (b *Bridge) PlayerPlaySound(player pluginapi.Handle, sound, category string, at pluginapi.Vec3, volume, pitch float32) error {
	return b.invoke(OpPlayerPlaySound, func(d *Downcalls, a *arena) (string, error) {
		if d.PlayerPlaySound == nil {
			return "", ErrUnregistered
		}
		args, err := cstrings(a, player.String(), sound, category)
		if err != nil {
			return "", err
		}
		d.PlayerPlaySound(args[0], args[1], args[2], at.X, at.Y, at.Z, volume, pitch)
		return OutcomeOK, nil
	})
}

func cstrings(a *arena, values ...string) ([]uintptr, error) {
	out := make([]uintptr, len(values))
	for i, v := range values {
		p, err := a.cstring(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
