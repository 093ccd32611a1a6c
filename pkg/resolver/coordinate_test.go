package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Coordinate
		path  string
	}{
		{
			name:  "group artifact version",
			input: "com.google.code.gson:gson:2.10.1",
			want:  Coordinate{GroupID: "com.google.code.gson", ArtifactID: "gson", Extension: "jar", Version: "2.10.1"},
			path:  "com/google/code/gson/gson/2.10.1/gson-2.10.1.jar",
		},
		{
			name:  "with extension",
			input: "org.example:bom:pom:1.0",
			want:  Coordinate{GroupID: "org.example", ArtifactID: "bom", Extension: "pom", Version: "1.0"},
			path:  "org/example/bom/1.0/bom-1.0.pom",
		},
		{
			name:  "with classifier",
			input: "io.netty:netty-transport-native-epoll:jar:linux-x86_64:4.1.100.Final",
			want: Coordinate{
				GroupID:    "io.netty",
				ArtifactID: "netty-transport-native-epoll",
				Extension:  "jar",
				Classifier: "linux-x86_64",
				Version:    "4.1.100.Final",
			},
			path: "io/netty/netty-transport-native-epoll/4.1.100.Final/netty-transport-native-epoll-4.1.100.Final-linux-x86_64.jar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.path, got.Path())
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseCoordinate_Invalid(t *testing.T) {
	for _, input := range []string{"", "gson", "a:b", "a::1", "a:b:c:d:e:f", "a/b:c:1", "a:b:1 2", "a:..:1", "a:b:jar:x\\y:1"} {
		_, err := ParseCoordinate(input)
		assert.Error(t, err, input)
	}
}

func TestCoordinate_Validate(t *testing.T) {
	valid := Coordinate{GroupID: "org.example", ArtifactID: "lib", Version: "1.0.2", Classifier: "linux-x86_64"}
	assert.NoError(t, valid.Validate())

	for _, c := range []Coordinate{
		{GroupID: "org.example", ArtifactID: "../../escaped", Version: "1"},
		{GroupID: "org..example", ArtifactID: "lib", Version: "1"},
		{GroupID: ".org", ArtifactID: "lib", Version: "1"},
		{GroupID: "org", ArtifactID: "lib", Version: ".."},
		{GroupID: "org", ArtifactID: "lib", Version: "1", Classifier: "a/b"},
		{GroupID: "org", ArtifactID: "lib", Version: "1", Extension: `..\jar`},
		{GroupID: "org", ArtifactID: "", Version: "1"},
	} {
		assert.ErrorIs(t, c.Validate(), ErrInvalidCoordinate, c.String())
	}
}

func TestCoordinate_POMAndKey(t *testing.T) {
	c, err := ParseCoordinate("io.netty:netty-transport-native-epoll:jar:linux-x86_64:4.1.100.Final")
	require.NoError(t, err)

	pom := c.POM()
	assert.Equal(t, "io/netty/netty-transport-native-epoll/4.1.100.Final/netty-transport-native-epoll-4.1.100.Final.pom", pom.Path())
	assert.Equal(t, "io.netty:netty-transport-native-epoll:linux-x86_64", c.Key())
	assert.NotEqual(t, c.Key(), pom.Key())
}

func TestNormalizeCoordinates(t *testing.T) {
	input := "com.example:a:1\n\n   \n  com.example:b:2  \ncom.example:a:1\r\n\tcom.example:c:3\n"
	assert.Equal(t, []string{"com.example:a:1", "com.example:b:2", "com.example:c:3"}, NormalizeCoordinates(input))
	assert.Empty(t, NormalizeCoordinates(""))
	assert.Empty(t, NormalizeCoordinates("\n \n"))
}

func TestParseRepositories(t *testing.T) {
	repos, err := ParseRepositories("papermc=https://repo.papermc.io/repository/maven-public/, central=https://repo1.maven.org/maven2/")
	require.NoError(t, err)
	assert.Equal(t, DefaultRepositories, repos)
	assert.Equal(t, "papermc=https://repo.papermc.io/repository/maven-public/,central=https://repo1.maven.org/maven2/", FormatRepositories(repos))

	for _, bad := range []string{"", "nourl", "x=ftp://host/", "a=https://h/,a=https://g/", "=https://h/"} {
		_, err := ParseRepositories(bad)
		assert.Error(t, err, bad)
	}
}

func TestRepository_ArtifactURL(t *testing.T) {
	r := Repository{ID: "central", URL: "https://repo1.maven.org/maven2/"}
	assert.Equal(t, "https://repo1.maven.org/maven2/a/b/1/b-1.jar", r.artifactURL("a/b/1/b-1.jar"))

	r.URL = "https://repo1.maven.org/maven2"
	assert.Equal(t, "https://repo1.maven.org/maven2/a/b/1/b-1.jar", r.artifactURL("a/b/1/b-1.jar"))
}
