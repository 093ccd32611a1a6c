package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJarServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repo/com/example/lib/1.0/lib-1.0.jar" {
			w.Write([]byte("jar bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve(t *testing.T) {
	srv := newJarServer(t)
	cacheDir := t.TempDir()
	coords := filepath.Join(t.TempDir(), "libraries.txt")
	require.NoError(t, os.WriteFile(coords, []byte("com.example:lib:1.0\n\ncom.example:lib:1.0\n"), 0o644))

	out := captureOutput(t)
	require.NoError(t, runResolve([]string{
		"--cache", cacheDir,
		"--repositories", "test=" + srv.URL + "/repo/",
		"--file", coords,
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, filepath.Join(cacheDir, "com", "example", "lib", "1.0", "lib-1.0.jar"), lines[0])
	assert.FileExists(t, lines[0])
}

func TestResolve_NothingResolved(t *testing.T) {
	srv := newJarServer(t)
	captureOutput(t)

	err := runResolve([]string{
		"--cache", t.TempDir(),
		"--repositories", "test=" + srv.URL + "/repo/",
		"com.example:absent:1.0",
	})
	assert.EqualError(t, err, "nothing could be resolved")
}

func TestResolve_Errors(t *testing.T) {
	captureOutput(t)

	assert.EqualError(t, runResolve(nil), "no coordinates given")
	assert.Error(t, runResolve([]string{"--repositories", "not-a-pair", "com.example:lib:1.0"}))
	assert.Error(t, runResolve([]string{"--file", "/does/not/exist", "com.example:lib:1.0"}))
}
