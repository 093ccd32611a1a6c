package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// Repository is a remote Maven repository
type Repository struct {
	ID  string
	URL string
}

// DefaultRepositories are tried in this order
var DefaultRepositories = []Repository{
	{ID: "papermc", URL: "https://repo.papermc.io/repository/maven-public/"},
	{ID: "central", URL: "https://repo1.maven.org/maven2/"},
}

// ParseRepositories parses a comma separated list of id=url pairs
func ParseRepositories(s string) ([]Repository, error) {
	var repos []Repository
	seen := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, raw, ok := strings.Cut(item, "=")
		id, raw = strings.TrimSpace(id), strings.TrimSpace(raw)
		if !ok || id == "" || raw == "" {
			return nil, fmt.Errorf("invalid repository %q: expected id=url", item)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid repository url %q", raw)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate repository id %q", id)
		}
		seen[id] = true
		repos = append(repos, Repository{ID: id, URL: raw})
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("no repositories configured")
	}
	return repos, nil
}

// FormatRepositories renders repos in the form ParseRepositories accepts
func FormatRepositories(repos []Repository) string {
	parts := make([]string, len(repos))
	for i, r := range repos {
		parts[i] = r.ID + "=" + r.URL
	}
	return strings.Join(parts, ",")
}

func (r Repository) artifactURL(relPath string) string {
	return strings.TrimRight(r.URL, "/") + "/" + relPath
}
