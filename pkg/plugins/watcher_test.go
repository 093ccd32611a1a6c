package plugins

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_LoadsAndUnloadsArchives(t *testing.T) {
	server := installServer(t)
	dir := t.TempDir()
	m := newTestManager(t, dir)
	logger, _ := test.NewNullLogger()
	w := NewWatcher(m, logger, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	archive := writePlugin(t, dir, "Hot", "hot", "")

	require.Eventually(t, func() bool {
		info, ok := m.Get("Hot")
		return ok && info.State == StateEnabled
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"enable Hot"}, server.Messages())

	require.NoError(t, os.Remove(archive))
	require.Eventually(t, func() bool {
		_, ok := m.Get("Hot")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"enable Hot", "disable Hot"}, server.Messages())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	m := newTestManager(t, t.TempDir()+"/absent")
	err := NewWatcher(m, nil, 0).Run(context.Background())
	assert.Error(t, err)
}

func TestIsPluginArchive(t *testing.T) {
	assert.True(t, IsPluginArchive("a.zip"))
	assert.True(t, IsPluginArchive("B.JAR"))
	assert.False(t, IsPluginArchive("a.yml"))
	assert.False(t, IsPluginArchive("zip"))
}
