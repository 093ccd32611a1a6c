package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePOM(t *testing.T) {
	p, err := parsePOM(strings.NewReader(`<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent><groupId>org.example</groupId><artifactId>parent</artifactId><version>7</version></parent>
  <artifactId>lib</artifactId>
  <properties>
    <gson.version> 2.10.1 </gson.version>
    <project.build.sourceEncoding>UTF-8</project.build.sourceEncoding>
  </properties>
  <dependencies>
    <dependency>
      <groupId>com.google.code.gson</groupId>
      <artifactId>gson</artifactId>
      <version>${gson.version}</version>
      <exclusions><exclusion><groupId>*</groupId><artifactId>*</artifactId></exclusion></exclusions>
    </dependency>
  </dependencies>
</project>`))
	require.NoError(t, err)

	require.NotNil(t, p.Parent)
	assert.Equal(t, "parent", p.Parent.ArtifactID)
	assert.Equal(t, "2.10.1", p.Properties["gson.version"])
	assert.Equal(t, "UTF-8", p.Properties["project.build.sourceEncoding"])
	require.Len(t, p.Dependencies, 1)
	assert.Len(t, p.Dependencies[0].Exclusions, 1)

	m := newModel(p, nil)
	assert.Equal(t, "org.example", m.groupID)
	assert.Equal(t, "7", m.version)

	deps := m.dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "2.10.1", deps[0].Version)

	c, err := deps[0].coordinate()
	require.NoError(t, err)
	assert.Equal(t, "com.google.code.gson:gson:2.10.1", c.String())
}

func TestModel_InterpolateUnknownAndNested(t *testing.T) {
	m := &model{props: map[string]string{
		"a":    "${b}",
		"b":    "value",
		"loop": "${loop}",
	}}
	assert.Equal(t, "x-value-y", m.interpolate("x-${a}-y"))
	assert.Equal(t, "${missing}", m.interpolate("${missing}"))
	assert.Equal(t, "${loop}", m.interpolate("${loop}"))
	assert.Equal(t, "${unterminated", m.interpolate("${unterminated"))
}

func TestDependencySpec_Followed(t *testing.T) {
	assert.True(t, dependencySpec{}.followed())
	assert.True(t, dependencySpec{Scope: "compile"}.followed())
	assert.True(t, dependencySpec{Scope: "runtime"}.followed())
	assert.False(t, dependencySpec{Scope: "test"}.followed())
	assert.False(t, dependencySpec{Scope: "provided"}.followed())
	assert.False(t, dependencySpec{Scope: "system"}.followed())
	assert.False(t, dependencySpec{Optional: "true"}.followed())
}

func TestDependencySpec_Coordinate(t *testing.T) {
	c, err := dependencySpec{GroupID: "g", ArtifactID: "a", Version: "1", Type: "test-jar"}.coordinate()
	require.NoError(t, err)
	assert.Equal(t, "tests", c.Classifier)
	assert.Equal(t, "jar", c.Extension)

	_, err = dependencySpec{GroupID: "g", ArtifactID: "a", Version: "[1.0,2.0)"}.coordinate()
	assert.Error(t, err)

	_, err = dependencySpec{GroupID: "g", ArtifactID: "a", Version: "${undefined}"}.coordinate()
	assert.Error(t, err)

	_, err = dependencySpec{GroupID: "g", ArtifactID: "a"}.coordinate()
	assert.Error(t, err)
}
