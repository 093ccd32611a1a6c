package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spigotYAML = `name: Shops
version: 2.1.0
main: example.com/shops.Plugin
api-version: "1.21"
author: alice
authors: [bob, carol]
depend: [Economy]
softdepend: [Vault]
loadbefore: [Holograms]
libraries:
  - com.google.code.gson:gson:2.10.1
commands:
  shop:
    description: Opens the shop
    usage: /shop
    aliases: s
  sell:
    aliases: [sl, sellall]
`

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor([]byte(spigotYAML))
	require.NoError(t, err)

	assert.Equal(t, "Shops", desc.Name)
	assert.Equal(t, "2.1.0", desc.Version)
	assert.Equal(t, "example.com/shops.Plugin", desc.Main)
	assert.Equal(t, "1.21", desc.APIVersion)
	assert.Equal(t, []string{"alice", "bob", "carol"}, desc.AllAuthors())
	assert.Equal(t, []string{"Economy"}, desc.Depend)
	assert.Equal(t, "com.google.code.gson:gson:2.10.1", desc.LibraryCoordinates())
	assert.Equal(t, stringList{"s"}, desc.Commands["shop"].Aliases)
	assert.Equal(t, stringList{"sl", "sellall"}, desc.Commands["sell"].Aliases)
	assert.Nil(t, desc.Paper)

	depends, soft, before := desc.Relations()
	assert.Equal(t, []string{"Economy"}, depends)
	assert.Equal(t, []string{"Vault"}, soft)
	assert.Equal(t, []string{"Holograms"}, before)
	assert.Empty(t, desc.ClasspathJoins())
}

func TestParseDescriptor_InvalidYAML(t *testing.T) {
	_, err := ParseDescriptor([]byte("name: [unterminated"))
	assert.Error(t, err)

	_, err = ParseDescriptor([]byte("name: x\ncommands:\n  c:\n    aliases: {a: b}\n"))
	assert.Error(t, err)
}

func TestParsePaperDescriptor(t *testing.T) {
	paper, err := ParsePaperDescriptor([]byte(`name: Market
version: 1.0.0
main: example.com/market.Plugin
dependencies:
  server:
    Economy:
      load: BEFORE
    Vault:
      load: BEFORE
      required: false
    Holograms:
      load: AFTER
      join-classpath: false
    Metrics: {}
`))
	require.NoError(t, err)

	assert.Equal(t, LoadOmit, paper.Dependencies.Server["Metrics"].Load)
	assert.True(t, paper.Dependencies.Server["Economy"].IsRequired())
	assert.False(t, paper.Dependencies.Server["Vault"].IsRequired())
	assert.False(t, paper.Dependencies.Server["Holograms"].JoinsClasspath())

	_, err = ParsePaperDescriptor([]byte("name: x\ndependencies:\n  server:\n    A:\n      load: SIDEWAYS\n"))
	assert.Error(t, err)
}

func TestReadDescriptor_PaperWins(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), "market.zip", map[string]string{
		DescriptorFile: "name: OldName\nversion: 0.1.0\nmain: example.com/old.Plugin\nlibraries: [org.example:lib:1.0]\n",
		PaperDescriptorFile: `name: Market
version: 1.0.0
main: example.com/market.Plugin
dependencies:
  server:
    Economy:
      load: BEFORE
    Vault:
      load: BEFORE
      required: false
    Holograms:
      load: AFTER
      join-classpath: false
    Metrics:
      load: OMIT
`,
	})

	desc, err := ReadDescriptor(archive)
	require.NoError(t, err)

	assert.Equal(t, "Market", desc.Name)
	assert.Equal(t, "1.0.0", desc.Version)
	assert.Equal(t, "example.com/market.Plugin", desc.Main)
	assert.Equal(t, []string{"org.example:lib:1.0"}, desc.Libraries)
	require.NotNil(t, desc.Paper)

	depends, soft, before := desc.Relations()
	assert.Equal(t, []string{"Economy"}, depends)
	assert.Equal(t, []string{"Vault"}, soft)
	assert.Equal(t, []string{"Holograms"}, before)
	assert.Equal(t, []string{"Economy", "Holograms", "Metrics"}, desc.RequiredPlugins())
	assert.Equal(t, []string{"Economy", "Metrics", "Vault"}, desc.ClasspathJoins())
}

func TestReadDescriptor_PaperOnly(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), "p.zip", map[string]string{
		PaperDescriptorFile: "name: Solo\nversion: 1.0.0\nmain: example.com/solo.Plugin\n",
	})

	desc, err := ReadDescriptor(archive)
	require.NoError(t, err)
	assert.Equal(t, "Solo", desc.Name)
	assert.Empty(t, desc.RequiredPlugins())
}

func TestReadDescriptor_Missing(t *testing.T) {
	archive := writeArchive(t, t.TempDir(), "empty.zip", map[string]string{"README": "nothing"})

	_, err := ReadDescriptor(archive)
	assert.ErrorIs(t, err, ErrNoDescriptor)

	_, err = ReadDescriptor(archive + ".absent")
	assert.Error(t, err)
}

func TestValidateDescriptor(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		fields []string
	}{
		{
			name: "valid",
			desc: Descriptor{Name: "Shops", Version: "1.0", Main: "example.com/shops.Plugin"},
		},
		{
			name:   "missing everything",
			desc:   Descriptor{},
			fields: []string{"name", "version", "main"},
		},
		{
			name:   "bad name and main",
			desc:   Descriptor{Name: "bad/name", Version: "1", Main: "example.com/shops.plugin"},
			fields: []string{"name", "main"},
		},
		{
			name:   "bad library and self dependency",
			desc:   Descriptor{Name: "A", Version: "1", Main: "a.B", Libraries: []string{"nope"}, Depend: []string{"A"}},
			fields: []string{"libraries", "depend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateDescriptor(&tt.desc)
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestSplitMainClass(t *testing.T) {
	tests := []struct {
		in      string
		path    string
		symbol  string
		wantErr bool
	}{
		{in: "example.com/greeter.Greeter", path: "example.com/greeter", symbol: "Greeter"},
		{in: "gopkg.in/thing.v2.New", path: "gopkg.in/thing.v2", symbol: "New"},
		{in: "local.Plugin", path: "local", symbol: "Plugin"},
		{in: "example.com/greeter.greeter", wantErr: true},
		{in: "Greeter", wantErr: true},
		{in: ".Greeter", wantErr: true},
		{in: "example.com/greeter.", wantErr: true},
		{in: "/abs/path.Plugin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, symbol, err := SplitMainClass(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.symbol, symbol)
		})
	}
}

func TestPluginStateString(t *testing.T) {
	assert.Equal(t, "registered", StateRegistered.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", PluginState(99).String())

	text, err := StateEnabled.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "enabled", string(text))
}
