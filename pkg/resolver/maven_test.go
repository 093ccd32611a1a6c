package resolver

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// mavenRepo is an in-memory Maven repository served over HTTP
type mavenRepo struct {
	mu       sync.Mutex
	files    map[string][]byte
	requests map[string]int
	server   *httptest.Server
}

func newMavenRepo(t *testing.T) *mavenRepo {
	t.Helper()
	m := &mavenRepo{
		files:    map[string][]byte{},
		requests: map[string]int{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		p := strings.TrimPrefix(r.URL.Path, "/repo/")
		m.requests[p]++
		data, ok := m.files[p]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mavenRepo) repository(id string) Repository {
	return Repository{ID: id, URL: m.server.URL + "/repo/"}
}

func (m *mavenRepo) put(path string, data []byte, withSHA1 bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	if withSHA1 {
		sum := sha1.Sum(data)
		m.files[path+".sha1"] = []byte(hex.EncodeToString(sum[:]) + "  " + path + "\n")
	}
}

// addJar publishes a jar and its POM
func (m *mavenRepo) addJar(coord, pom string) Coordinate {
	c, err := ParseCoordinate(coord)
	if err != nil {
		panic(err)
	}
	m.put(c.Path(), []byte("jar:"+coord), true)
	if pom != "" {
		m.put(c.POM().Path(), []byte(pom), true)
	}
	return c
}

func (m *mavenRepo) addPOM(coord, pom string) {
	c, err := ParseCoordinate(coord)
	if err != nil {
		panic(err)
	}
	m.put(c.POM().Path(), []byte(pom), true)
}

func (m *mavenRepo) totalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.requests {
		n += v
	}
	return n
}

func (m *mavenRepo) resetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = map[string]int{}
}

type dep struct {
	coord      string
	scope      string
	optional   bool
	exclusions []string
}

// pomXML renders a minimal POM. coord is group:artifact:version.
func pomXML(coord string, parent string, props map[string]string, managed []dep, deps ...dep) string {
	parts := strings.Split(coord, ":")
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<project>\n")
	if parent != "" {
		pp := strings.Split(parent, ":")
		fmt.Fprintf(&b, "<parent><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version></parent>\n", pp[0], pp[1], pp[2])
	}
	if parts[0] != "" {
		fmt.Fprintf(&b, "<groupId>%s</groupId>\n", parts[0])
	}
	fmt.Fprintf(&b, "<artifactId>%s</artifactId>\n", parts[1])
	if parts[2] != "" {
		fmt.Fprintf(&b, "<version>%s</version>\n", parts[2])
	}
	if len(props) > 0 {
		b.WriteString("<properties>")
		for k, v := range props {
			fmt.Fprintf(&b, "<%s>%s</%s>", k, v, k)
		}
		b.WriteString("</properties>\n")
	}
	if len(managed) > 0 {
		b.WriteString("<dependencyManagement><dependencies>")
		for _, d := range managed {
			writeDep(&b, d)
		}
		b.WriteString("</dependencies></dependencyManagement>\n")
	}
	if len(deps) > 0 {
		b.WriteString("<dependencies>")
		for _, d := range deps {
			writeDep(&b, d)
		}
		b.WriteString("</dependencies>\n")
	}
	b.WriteString("</project>\n")
	return b.String()
}

func writeDep(b *strings.Builder, d dep) {
	parts := strings.Split(d.coord, ":")
	fmt.Fprintf(b, "<dependency><groupId>%s</groupId><artifactId>%s</artifactId>", parts[0], parts[1])
	if len(parts) > 2 && parts[2] != "" {
		fmt.Fprintf(b, "<version>%s</version>", parts[2])
	}
	if len(parts) > 3 {
		fmt.Fprintf(b, "<type>%s</type>", parts[3])
	}
	if d.scope != "" {
		fmt.Fprintf(b, "<scope>%s</scope>", d.scope)
	}
	if d.optional {
		b.WriteString("<optional>true</optional>")
	}
	if len(d.exclusions) > 0 {
		b.WriteString("<exclusions>")
		for _, e := range d.exclusions {
			ep := strings.Split(e, ":")
			fmt.Fprintf(b, "<exclusion><groupId>%s</groupId><artifactId>%s</artifactId></exclusion>", ep[0], ep[1])
		}
		b.WriteString("</exclusions>")
	}
	b.WriteString("</dependency>")
}
