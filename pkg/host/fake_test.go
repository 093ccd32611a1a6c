package host

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patchbridge/pkg/bridge"
)

// goString reads a NUL-terminated string the bridge passed down
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	start := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(start, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(start), n))
}

type nativeEvent struct {
	eventType string
	plugin    string
	priority  int32
	blocking  bool
}

// fakeCore stands in for the native server core
type fakeCore struct {
	mu         sync.Mutex
	messages   []string
	events     []nativeEvent
	registries map[string]string
	fetches    int
	live       map[uintptr][]byte
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		registries: map[string]string{},
		live:       map[uintptr][]byte{},
	}
}

func (f *fakeCore) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func (f *fakeCore) Events() []nativeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nativeEvent(nil), f.events...)
}

func (f *fakeCore) downcalls() *bridge.Downcalls {
	return &bridge.Downcalls{
		SendMessage: func(uuid, message uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.messages = append(f.messages, goString(message))
		},
		RegisterEvent: func(eventType, pluginName uintptr, priority int32, blocking bool) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, nativeEvent{
				eventType: goString(eventType),
				plugin:    goString(pluginName),
				priority:  priority,
				blocking:  blocking,
			})
		},
		FreeString: func(str uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.live, str)
		},
		GetRegistryData: func(name uintptr) uintptr {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.fetches++
			data, ok := f.registries[goString(name)]
			if !ok {
				return 0
			}
			buf := append([]byte(data), 0)
			p := uintptr(unsafe.Pointer(&buf[0]))
			f.live[p] = buf
			return p
		},
	}
}

const listenerPlugin = `package greeter

import "github.com/platinummonkey/patchbridge/pkg/pluginapi"

var console pluginapi.Handle

type Plugin struct{}

func (p *Plugin) OnEnable() error {
	return pluginapi.GetServer().RegisterListener("Greeter", pluginapi.PlayerJoinEventType, pluginapi.PriorityNormal, func(e pluginapi.Event) {
		pluginapi.GetServer().SendMessage(console, "seen "+e.EventType())
	})
}

func (p *Plugin) OnDisable() error {
	return nil
}
`

// writeGreeter writes a plugin archive whose OnEnable registers a join
// listener
func writeGreeter(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "Greeter.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	files := map[string]string{
		"plugin.yml":                   "name: Greeter\nversion: 1.0.0\nmain: example.com/greeter.Plugin\n",
		"src/example.com/greeter/p.go": listenerPlugin,
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
