package host

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/bridge"
	"github.com/platinummonkey/patchbridge/pkg/events"
	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// Server is the pluginapi.Server handed to plugins. Calls go straight to
// the bridge; listener registration also records the handler locally so
// fired events can reach it.
type Server struct {
	bridge     *bridge.Bridge
	dispatcher *events.Dispatcher
	registries *bridge.RegistryCache
	log        *logrus.Logger
}

var _ pluginapi.Server = (*Server)(nil)

// NewServer creates a Server. registries may be nil, in which case
// Registry always goes to the native core.
func NewServer(b *bridge.Bridge, d *events.Dispatcher, registries *bridge.RegistryCache, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	if registries == nil {
		registries = bridge.NewRegistryCache(b, 1, 0)
	}
	return &Server{
		bridge:     b,
		dispatcher: d,
		registries: registries,
		log:        log,
	}
}

func (s *Server) SendMessage(player pluginapi.Handle, message string) error {
	return s.bridge.SendMessage(player, message)
}

func (s *Server) GetAbilities(player pluginapi.Handle) (pluginapi.Abilities, bool, error) {
	return s.bridge.GetAbilities(player)
}

func (s *Server) SetAbilities(player pluginapi.Handle, abilities pluginapi.Abilities) (bool, error) {
	return s.bridge.SetAbilities(player, abilities)
}

func (s *Server) GetLocation(entity pluginapi.Handle) (pluginapi.Vec3, bool, error) {
	return s.bridge.GetLocation(entity)
}

func (s *Server) GetWorld(entity pluginapi.Handle) (string, bool, error) {
	return s.bridge.GetWorld(entity)
}

func (s *Server) GetRegistryData(registry string) (string, bool, error) {
	return s.bridge.GetRegistryData(registry)
}

func (s *Server) PlayEntitySound(player pluginapi.Handle, sound, category string, entity pluginapi.Handle, volume, pitch float32) error {
	return s.bridge.PlayerEntityPlaySound(player, sound, category, entity, volume, pitch)
}

func (s *Server) PlaySound(player pluginapi.Handle, sound, category string, at pluginapi.Vec3, volume, pitch float32) error {
	return s.bridge.PlayerPlaySound(player, sound, category, at, volume, pitch)
}

// Registry returns the decoded registry, served from cache after the first
// successful fetch
func (s *Server) Registry(name string) (*bridge.Registry, error) {
	return s.registries.Get(name)
}

// RegisterListener adds handler to the dispatcher and announces the
// listener to the native core. Every priority but Monitor is blocking on
// the native side. The local registration stays in place when the native
// call fails.
func (s *Server) RegisterListener(plugin, eventType string, priority pluginapi.EventPriority, handler pluginapi.EventHandler) error {
	if err := s.dispatcher.Register(plugin, eventType, priority, false, handler); err != nil {
		return err
	}
	blocking := priority != pluginapi.PriorityMonitor
	if err := s.bridge.RegisterEvent(eventType, plugin, priority, blocking); err != nil {
		s.log.WithFields(logrus.Fields{
			"plugin":     plugin,
			"event_type": eventType,
		}).WithError(err).Warn("Native core did not accept listener")
		return fmt.Errorf("announcing %s listener for %s: %w", eventType, plugin, err)
	}
	return nil
}
