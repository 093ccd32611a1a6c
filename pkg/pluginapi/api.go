package pluginapi

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Plugin is implemented by every plugin main type
type Plugin interface {
	OnEnable() error
	OnDisable() error
}

// Handle names a native-resident entity (player, entity, world)
type Handle = uuid.UUID

// ParseHandle parses the canonical UUID text form of a handle
func ParseHandle(s string) (Handle, error) {
	return uuid.Parse(s)
}

// Vec3 is a position in world space
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Abilities mirrors a player's ability flags and speeds
type Abilities struct {
	Invulnerable     bool
	Flying           bool
	AllowFlying      bool
	Creative         bool
	AllowModifyWorld bool
	FlySpeed         float32
	WalkSpeed        float32
}

func (a Abilities) WithInvulnerable(v bool) Abilities {
	a.Invulnerable = v
	return a
}

func (a Abilities) WithFlying(v bool) Abilities {
	a.Flying = v
	return a
}

func (a Abilities) WithAllowFlying(v bool) Abilities {
	a.AllowFlying = v
	return a
}

func (a Abilities) WithCreative(v bool) Abilities {
	a.Creative = v
	return a
}

func (a Abilities) WithAllowModifyWorld(v bool) Abilities {
	a.AllowModifyWorld = v
	return a
}

func (a Abilities) WithFlySpeed(v float32) Abilities {
	a.FlySpeed = v
	return a
}

func (a Abilities) WithWalkSpeed(v float32) Abilities {
	a.WalkSpeed = v
	return a
}

// Server is the plugin's view of the native server core
type Server interface {
	SendMessage(player Handle, message string) error
	GetAbilities(player Handle) (Abilities, bool, error)
	SetAbilities(player Handle, abilities Abilities) (bool, error)
	GetLocation(entity Handle) (Vec3, bool, error)
	GetWorld(entity Handle) (string, bool, error)
	GetRegistryData(registry string) (string, bool, error)
	PlayEntitySound(player Handle, sound, category string, entity Handle, volume, pitch float32) error
	PlaySound(player Handle, sound, category string, at Vec3, volume, pitch float32) error
	RegisterListener(plugin, eventType string, priority EventPriority, handler EventHandler) error
}

var server atomic.Pointer[serverHolder]

type serverHolder struct {
	s Server
}

// SetServer installs the process-wide Server. Called once by the host.
func SetServer(s Server) {
	server.Store(&serverHolder{s: s})
}

// GetServer returns the process-wide Server, or nil before the host started
func GetServer() Server {
	h := server.Load()
	if h == nil {
		return nil
	}
	return h.s
}
