package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/patchbridge/pkg/bridge"
	"github.com/platinummonkey/patchbridge/pkg/config"
	"github.com/platinummonkey/patchbridge/pkg/host"
	"github.com/platinummonkey/patchbridge/pkg/observability"
)

var errNotStarted = errors.New("plugin host not started")

// hostState is the process-wide runtime behind the C exports. Native
// addresses may arrive before or after start; early ones are held until
// the runtime exists.
type hostState struct {
	mu      sync.Mutex
	rt      *host.Runtime
	natives []uintptr
	log     *logrus.Logger

	loadConfig func() (*config.Config, error)
	options    []host.Option
}

func newHostState() *hostState {
	return &hostState{
		log:        logrus.New(),
		loadConfig: config.LoadConfig,
	}
}

func (s *hostState) logger() *logrus.Logger {
	if s.rt != nil {
		return s.rt.Logger()
	}
	return s.log
}

func (s *hostState) initCallbacks(addrs []uintptr) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
		if err != nil {
			s.logger().WithError(err).Error("Native registration failed")
		}
	}()

	if err := bridge.AddressesFromSlice(addrs).Validate(); err != nil {
		return fmt.Errorf("registering native functions: %w", err)
	}
	if s.rt == nil {
		s.natives = append([]uintptr(nil), addrs...)
		return nil
	}
	return s.rt.RegisterNatives(addrs)
}

func (s *hostState) start(pluginsDir string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
		if err != nil {
			s.logger().WithError(err).Error("Plugin host failed to start")
		}
	}()

	if s.rt != nil {
		return host.ErrAlreadyStarted
	}
	cfg, err := s.loadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if pluginsDir != "" {
		cfg.Plugins.Dir = pluginsDir
	}
	rt, err := host.New(cfg, s.options...)
	if err != nil {
		return err
	}
	if s.natives != nil {
		if err := rt.RegisterNatives(s.natives); err != nil {
			return err
		}
		s.natives = nil
	}
	if err := rt.Start(context.Background()); err != nil {
		return err
	}
	s.rt = rt
	return nil
}

// current returns the running runtime, or nil
func (s *hostState) current() *host.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt
}

func (s *hostState) createPlugin(archive, mainClass, extraClasspath, libraries string) int64 {
	rt := s.current()
	if rt == nil {
		s.log.WithField("archive", archive).WithError(errNotStarted).Error("Cannot create plugin")
		return 0
	}
	return rt.CreatePlugin(context.Background(), archive, mainClass, extraClasspath, libraries)
}

func (s *hostState) withRuntime(op string, fn func(rt *host.Runtime) error) bool {
	rt := s.current()
	if rt == nil {
		s.log.WithField("op", op).WithError(errNotStarted).Error("Native call rejected")
		return false
	}
	defer observability.RecoverPanic(rt.Logger(), op)
	if err := fn(rt); err != nil {
		rt.Logger().WithField("op", op).WithError(err).Error("Native call failed")
		return false
	}
	return true
}

func (s *hostState) fireEvent(eventType string, payload []byte, plugin string) bool {
	var cancelled bool
	s.withRuntime("fire event", func(rt *host.Runtime) error {
		var err error
		cancelled, err = rt.FireEvent(eventType, payload, plugin)
		return err
	})
	return cancelled
}

func (s *hostState) shutdown() error {
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	s.mu.Unlock()

	if rt == nil {
		return nil
	}
	return rt.Shutdown(context.Background())
}
