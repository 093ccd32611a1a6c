package plugins

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patchbridge/pkg/pluginapi"
)

// writeArchive writes files into a zip archive at dir/name
func writeArchive(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range sortedKeys(files) {
		w, err := zw.Create(entry)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[entry]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func descriptorYAML(name, main string, extra string) string {
	return fmt.Sprintf("name: %s\nversion: 1.0.0\nmain: %s\n%s", name, main, extra)
}

// messagePlugin is plugin source that reports its lifecycle through the
// server's SendMessage
func messagePlugin(pkg, typ, tag string) string {
	return fmt.Sprintf(`package %[1]s

import "github.com/platinummonkey/patchbridge/pkg/pluginapi"

var console pluginapi.Handle

type %[2]s struct{}

func (p *%[2]s) OnEnable() error {
	return pluginapi.GetServer().SendMessage(console, "enable %[3]s")
}

func (p *%[2]s) OnDisable() error {
	return pluginapi.GetServer().SendMessage(console, "disable %[3]s")
}
`, pkg, typ, tag)
}

// writePlugin writes a single-package plugin archive whose main type is
// example.com/<pkg>.Plugin
func writePlugin(t *testing.T, dir, name, pkg, extraYAML string) string {
	t.Helper()
	return writeArchive(t, dir, name+".zip", map[string]string{
		DescriptorFile:                          descriptorYAML(name, "example.com/"+pkg+".Plugin", extraYAML),
		"src/example.com/" + pkg + "/plugin.go": messagePlugin(pkg, "Plugin", name),
	})
}

type recordingServer struct {
	mu       sync.Mutex
	messages []string
}

func installServer(t *testing.T) *recordingServer {
	t.Helper()
	s := &recordingServer{}
	pluginapi.SetServer(s)
	t.Cleanup(func() { pluginapi.SetServer(nil) })
	return s
}

func (s *recordingServer) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *recordingServer) SendMessage(player pluginapi.Handle, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingServer) GetAbilities(pluginapi.Handle) (pluginapi.Abilities, bool, error) {
	return pluginapi.Abilities{}, false, nil
}

func (s *recordingServer) SetAbilities(pluginapi.Handle, pluginapi.Abilities) (bool, error) {
	return false, nil
}

func (s *recordingServer) GetLocation(pluginapi.Handle) (pluginapi.Vec3, bool, error) {
	return pluginapi.Vec3{}, false, nil
}

func (s *recordingServer) GetWorld(pluginapi.Handle) (string, bool, error) {
	return "", false, nil
}

func (s *recordingServer) GetRegistryData(string) (string, bool, error) {
	return "", false, nil
}

func (s *recordingServer) PlayEntitySound(pluginapi.Handle, string, string, pluginapi.Handle, float32, float32) error {
	return nil
}

func (s *recordingServer) PlaySound(pluginapi.Handle, string, string, pluginapi.Vec3, float32, float32) error {
	return nil
}

func (s *recordingServer) RegisterListener(string, string, pluginapi.EventPriority, pluginapi.EventHandler) error {
	return nil
}
