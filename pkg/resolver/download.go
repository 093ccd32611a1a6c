package resolver

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrArtifactNotFound is returned when no repository serves a file
	ErrArtifactNotFound = errors.New("artifact not found in any repository")
	// ErrChecksumMismatch is returned when a download does not match the
	// repository's published sha1
	ErrChecksumMismatch = errors.New("checksum mismatch")

	errNotInRepository = errors.New("not in repository")
)

// SourceCache is reported to the Observer for files served locally
const SourceCache = "cache"

// fetch returns the local path of c, downloading it on a cache miss
func (r *Resolver) fetch(ctx context.Context, cache *Cache, c Coordinate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	local := filepath.Join(cache.Dir(), filepath.FromSlash(c.Path()))
	if rel, err := filepath.Rel(cache.Dir(), local); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s resolves outside the cache", ErrInvalidCoordinate, c)
	}
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		r.observer.ObserveFetch(SourceCache, 0)
		if err := cache.Touch(c.String()); err != nil && !errors.Is(err, ErrEntryNotFound) {
			r.logger.WithError(err).WithField("coordinate", c.String()).Debug("Failed to update cache entry")
		}
		return local, nil
	}

	v, err, _ := r.group.Do(local, func() (any, error) {
		return r.download(ctx, cache, c, local)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// download tries each repository in order. A repository that does not have
// the file is skipped silently; other failures are collected.
func (r *Resolver) download(ctx context.Context, cache *Cache, c Coordinate, local string) (string, error) {
	var errs []error
	for _, repo := range r.repos {
		n, err := r.downloadFrom(ctx, repo, c.Path(), local)
		if err == nil {
			r.observer.ObserveFetch(repo.ID, n)
			if _, err := cache.CreateEntry(c.String(), local, repo.ID); err != nil {
				r.logger.WithError(err).WithField("coordinate", c.String()).Warn("Failed to record cache entry")
			}
			r.logger.WithFields(logrus.Fields{
				"coordinate": c.String(),
				"repository": repo.ID,
				"bytes":      n,
			}).Debug("Downloaded artifact")
			return local, nil
		}
		if errors.Is(err, errNotInRepository) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", repo.ID, err))
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, c)
	}
	return "", fmt.Errorf("failed to download %s: %w", c, errors.Join(errs...))
}

func (r *Resolver) downloadFrom(ctx context.Context, repo Repository, relPath, local string) (int64, error) {
	resp, err := r.get(ctx, repo.artifactURL(relPath))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return 0, errNotInRepository
	default:
		return 0, fmt.Errorf("download failed: HTTP %d for %s", resp.StatusCode, repo.artifactURL(relPath))
	}

	dir := filepath.Dir(local)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(local)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha1.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save artifact: %w", err)
	}

	if expected := r.publishedSHA1(ctx, repo, relPath); expected != "" {
		if actual := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(expected, actual) {
			return 0, fmt.Errorf("%w: %s (expected %s, got %s)", ErrChecksumMismatch, relPath, expected, actual)
		}
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		return 0, fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return n, nil
}

// publishedSHA1 returns the repository's sha1 for a file, or "" when the
// repository does not publish one
func (r *Resolver) publishedSHA1(ctx context.Context, repo Repository, relPath string) string {
	resp, err := r.get(ctx, repo.artifactURL(relPath+".sha1"))
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	line, err := bufio.NewReader(io.LimitReader(resp.Body, 1024)).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) != sha1.Size*2 {
		return ""
	}
	return fields[0]
}

func (r *Resolver) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return r.client.Do(req)
}
