package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitClasspath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jar")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(b, 0755))

	sep := string(os.PathListSeparator)
	extra := " " + a + " " + sep + sep + filepath.Join(dir, "missing.jar") + sep + b + sep + a + "/" + sep

	assert.Equal(t, []string{a, b}, SplitClasspath(extra))
	assert.Empty(t, SplitClasspath(""))
	assert.Empty(t, SplitClasspath(sep+"  "+sep))
}

func TestMergeClasspath(t *testing.T) {
	got := mergeClasspath([]string{"a", "b"}, []string{"b", "c", "a"}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestJoinClasspath(t *testing.T) {
	sep := string(os.PathListSeparator)
	assert.Equal(t, "a"+sep+"b", JoinClasspath([]string{"a", "b"}))
	assert.Equal(t, "", JoinClasspath(nil))
}
