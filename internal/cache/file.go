package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

const (
	dataExt = ".data"
	metaExt = ".meta"
)

// FileCache implements the Cache interface using the filesystem.
// Each key is stored as a data file next to a JSON metadata file.
type FileCache struct {
	directory   string
	maxSize     int64
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	mu          sync.RWMutex
	counters    counters
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileCache creates a new file-based cache.
// A non-positive cleanupFreq disables the background sweeper.
func NewFileCache(
	directory string,
	maxSizeMB int,
	defaultTTL, cleanupFreq time.Duration,
) (*FileCache, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &FileCache{
		directory:   directory,
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		stopCleanup: make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.backgroundCleanup()
	}

	return cache, nil
}

// Directory returns the directory entries are written to
func (c *FileCache) Directory() string {
	return c.directory
}

// Get retrieves data from cache, returning ErrMiss for absent or expired keys
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	metaData, err := os.ReadFile(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		c.counters.miss()
		return nil, ErrMiss
	}

	if err != nil {
		c.counters.miss()
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(metaData, &entry); err != nil {
		c.counters.miss()
		return nil, fmt.Errorf("failed to parse cache metadata: %w", err)
	}

	if entry.Expired(time.Now()) {
		c.counters.miss()

		_ = os.Remove(filePath)
		_ = os.Remove(metaPath)

		return nil, ErrMiss
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		c.counters.miss()
		return nil, ErrMiss
	}

	if err != nil {
		c.counters.miss()
		return nil, fmt.Errorf("failed to read cache data: %w", err)
	}

	c.counters.hit()

	return data, nil
}

// Set stores data in cache with TTL. A zero ttl uses the default.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	filePath := c.getFilePath(key)
	metaPath := c.getMetaPath(key)

	now := time.Now()
	entry := Entry{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      int64(len(data)),
	}

	if err := c.enforceSize(entry.Size); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache data: %w", err)
	}

	metaData, err := json.Marshal(entry)
	if err != nil {
		_ = os.Remove(filePath)
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, metaData, 0600); err != nil {
		_ = os.Remove(filePath)
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}

	return nil
}

// Delete removes an entry from cache
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Missing files are fine
	_ = os.Remove(c.getFilePath(key))
	_ = os.Remove(c.getMetaPath(key))

	return nil
}

// Clear removes all entries from cache and resets statistics
func (c *FileCache) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, dataExt) || strings.HasSuffix(name, metaExt) {
			_ = os.Remove(filepath.Join(c.directory, name))
		}
	}

	c.counters.reset()

	return nil
}

// Size returns the total size of cached data
func (c *FileCache) Size(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.calculateSize()
}

// Cleanup removes expired entries
func (c *FileCache) Cleanup(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaExt) {
			continue
		}

		metaPath := filepath.Join(c.directory, entry.Name())

		metaData, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var cacheEntry Entry
		if err := json.Unmarshal(metaData, &cacheEntry); err != nil {
			continue
		}

		if cacheEntry.Expired(now) {
			base := strings.TrimSuffix(entry.Name(), metaExt)

			_ = os.Remove(filepath.Join(c.directory, base+dataExt))
			_ = os.Remove(metaPath)
		}
	}

	return nil
}

// GetStats returns cache statistics
func (c *FileCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	totalSize, err := c.calculateSize()
	if err != nil {
		return nil, fmt.Errorf("failed to calculate cache size: %w", err)
	}

	var totalEntries int64

	entries, err := os.ReadDir(c.directory)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), dataExt) {
				totalEntries++
			}
		}
	}

	return c.counters.snapshot(totalEntries, totalSize), nil
}

// Close stops the background cleanup goroutine
func (c *FileCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})

	return nil
}

func (c *FileCache) getFilePath(key string) string {
	return filepath.Join(c.directory, hashKey(key)+dataExt)
}

func (c *FileCache) getMetaPath(key string) string {
	return filepath.Join(c.directory, hashKey(key)+metaExt)
}

// hashKey creates a safe filename from a cache key
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// enforceSize evicts the oldest entries until newEntrySize fits.
// Callers hold the write lock.
func (c *FileCache) enforceSize(newEntrySize int64) error {
	currentSize, err := c.calculateSize()
	if err != nil {
		return err
	}

	if currentSize+newEntrySize <= c.maxSize {
		return nil
	}

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	type entryInfo struct {
		name    string
		modTime time.Time
		size    int64
	}

	var entryInfos []entryInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaExt) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), metaExt)
		if dataInfo, err := os.Stat(filepath.Join(c.directory, base+dataExt)); err == nil {
			entryInfos = append(entryInfos, entryInfo{
				name:    base,
				modTime: info.ModTime(),
				size:    dataInfo.Size(),
			})
		}
	}

	slices.SortFunc(entryInfos, func(a, b entryInfo) int {
		return a.modTime.Compare(b.modTime)
	})

	spaceNeeded := (currentSize + newEntrySize) - c.maxSize

	var spaceFreed int64

	for _, info := range entryInfos {
		if spaceFreed >= spaceNeeded {
			break
		}

		_ = os.Remove(filepath.Join(c.directory, info.name+dataExt))
		_ = os.Remove(filepath.Join(c.directory, info.name+metaExt))

		spaceFreed += info.size
	}

	return nil
}

// calculateSize sums data file sizes. Callers hold a lock.
func (c *FileCache) calculateSize() (int64, error) {
	var totalSize int64

	err := filepath.WalkDir(c.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, dataExt) {
			info, err := d.Info()
			if err != nil {
				return err
			}

			totalSize += info.Size()
		}

		return nil
	})

	return totalSize, err
}

func (c *FileCache) backgroundCleanup() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Cleanup(context.Background())
		case <-c.stopCleanup:
			return
		}
	}
}
