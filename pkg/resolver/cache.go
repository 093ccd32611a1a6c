package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MetadataDirName is the directory inside a cache that holds entry metadata
const MetadataDirName = ".patchbridge-meta"

// ErrEntryNotFound is returned when no metadata exists for an artifact
var ErrEntryNotFound = errors.New("cache entry not found")

// CacheEntry describes one downloaded artifact
type CacheEntry struct {
	Coordinate   string    `json:"coordinate"`
	Path         string    `json:"path"`
	Repository   string    `json:"repository"`
	DownloadedAt time.Time `json:"downloaded_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
	Checksum     string    `json:"checksum"`
	Size         int64     `json:"size"`
}

// Cache keeps bookkeeping for the files in a local repository directory
type Cache struct {
	cacheDir    string
	metadataDir string
}

// NewCache creates a cache manager for cacheDir. Nothing is created on disk
// until an entry is saved.
func NewCache(cacheDir string) *Cache {
	return &Cache{
		cacheDir:    cacheDir,
		metadataDir: filepath.Join(cacheDir, MetadataDirName),
	}
}

// Dir returns the local repository directory
func (c *Cache) Dir() string {
	return c.cacheDir
}

// GetEntry retrieves the entry for a coordinate
func (c *Cache) GetEntry(coordinate string) (*CacheEntry, error) {
	data, err := os.ReadFile(c.metadataPath(coordinate))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, coordinate)
		}
		return nil, err
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry: %w", err)
	}
	return &entry, nil
}

// SaveEntry writes an entry
func (c *Cache) SaveEntry(entry *CacheEntry) error {
	if err := os.MkdirAll(c.metadataDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(c.metadataPath(entry.Coordinate), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// CreateEntry records a freshly downloaded artifact
func (c *Cache) CreateEntry(coordinate, path, repository string) (*CacheEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	checksum, err := fileSHA256(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	now := time.Now()
	entry := &CacheEntry{
		Coordinate:   coordinate,
		Path:         path,
		Repository:   repository,
		DownloadedAt: now,
		LastUsedAt:   now,
		Checksum:     checksum,
		Size:         info.Size(),
	}
	if err := c.SaveEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Touch updates the last used time of an entry
func (c *Cache) Touch(coordinate string) error {
	entry, err := c.GetEntry(coordinate)
	if err != nil {
		return err
	}
	entry.LastUsedAt = time.Now()
	return c.SaveEntry(entry)
}

// ListEntries returns every entry sorted by coordinate. Unreadable metadata
// files are skipped.
func (c *Cache) ListEntries() ([]*CacheEntry, error) {
	if _, err := os.Stat(c.metadataDir); errors.Is(err, fs.ErrNotExist) {
		return []*CacheEntry{}, nil
	}

	var entries []*CacheEntry
	err := filepath.WalkDir(c.metadataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil
		}
		entries = append(entries, &entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Coordinate < entries[j].Coordinate })
	return entries, nil
}

// RemoveEntry removes an entry and its artifact file
func (c *Cache) RemoveEntry(coordinate string) error {
	if entry, err := c.GetEntry(coordinate); err == nil && entry.Path != "" {
		os.Remove(entry.Path)
		os.Remove(entry.Path + ".sha1")
		// drop the version directory when it is empty
		os.Remove(filepath.Dir(entry.Path))
	}
	return os.Remove(c.metadataPath(coordinate))
}

// Clear removes the whole local repository
func (c *Cache) Clear() error {
	return os.RemoveAll(c.cacheDir)
}

// TotalSize returns the combined size of all recorded artifacts
func (c *Cache) TotalSize() (int64, error) {
	entries, err := c.ListEntries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	return total, nil
}

// PruneOldEntries removes entries not used within maxAge
func (c *Cache) PruneOldEntries(maxAge time.Duration) (int, error) {
	entries, err := c.ListEntries()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for _, entry := range entries {
		if entry.LastUsedAt.Before(cutoff) {
			if err := c.RemoveEntry(entry.Coordinate); err == nil {
				pruned++
			}
		}
	}
	return pruned, nil
}

// VerifyIntegrity reports entries whose file is missing or altered
func (c *Cache) VerifyIntegrity() ([]string, error) {
	entries, err := c.ListEntries()
	if err != nil {
		return nil, err
	}

	var corrupted []string
	for _, entry := range entries {
		if _, err := os.Stat(entry.Path); errors.Is(err, fs.ErrNotExist) {
			corrupted = append(corrupted, fmt.Sprintf("%s (missing file)", entry.Coordinate))
			continue
		}
		actual, err := fileSHA256(entry.Path)
		if err != nil {
			corrupted = append(corrupted, fmt.Sprintf("%s (checksum error)", entry.Coordinate))
			continue
		}
		if actual != entry.Checksum {
			corrupted = append(corrupted, fmt.Sprintf("%s (checksum mismatch)", entry.Coordinate))
		}
	}
	return corrupted, nil
}

func (c *Cache) metadataPath(coordinate string) string {
	hash := sha256.Sum256([]byte(coordinate))
	return filepath.Join(c.metadataDir, hex.EncodeToString(hash[:])+".json")
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
