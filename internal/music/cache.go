package music

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hxnx/melodybot/internal/logger"
)

type cacheEntry struct {
	Track     Track     `json:"track"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackCache maps normalized queries to resolved tracks. It is shared by all
// guilds; the backing file has a single writer at a time.
type TrackCache struct {
	path     string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
	seq     uint64

	writeMu  sync.Mutex
	writeSeq uint64
}

// NewTrackCache loads path if it exists. A missing or unreadable file yields
// an empty cache; construction never fails.
func NewTrackCache(path string, ttl time.Duration, capacity int) *TrackCache {
	if capacity < 1 {
		capacity = 1
	}
	c := &TrackCache{
		path:     path,
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		log:      logger.Component("cache"),
		entries:  make(map[string]cacheEntry),
	}
	if err := c.load(); err != nil {
		c.log.Warn("starting with empty song cache", "path", path, "error", err)
	}
	return c
}

func (c *TrackCache) load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var entries map[string]cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheCorruption, err)
	}
	for key, e := range entries {
		if key == "" || e.CreatedAt.IsZero() {
			continue
		}
		c.entries[key] = e
	}
	for len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
	return nil
}

// CacheKey hashes the normalized query.
func CacheKey(query string) string {
	sum := md5.Sum([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery trims and collapses whitespace. Free text is lowercased;
// URLs keep their case because video ids are case sensitive.
func NormalizeQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if looksLikeURL(normalized) {
		return normalized
	}
	return strings.ToLower(normalized)
}

func (c *TrackCache) Get(query string) (Track, bool) {
	key := CacheKey(query)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Track{}, false
	}
	if c.now().Sub(e.CreatedAt) < c.ttl {
		c.mu.Unlock()
		return e.Track, true
	}
	delete(c.entries, key)
	snapshot, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.persist(snapshot, seq)
	return Track{}, false
}

func (c *TrackCache) Set(query string, track Track) {
	key := CacheKey(query)

	c.mu.Lock()
	c.entries[key] = cacheEntry{Track: track, CreatedAt: c.now()}
	if len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
	snapshot, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.persist(snapshot, seq)
}

func (c *TrackCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TrackCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	snapshot, seq := c.snapshotLocked()
	c.mu.Unlock()

	c.persist(snapshot, seq)
}

func (c *TrackCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *TrackCache) snapshotLocked() (map[string]cacheEntry, uint64) {
	c.seq++
	snapshot := make(map[string]cacheEntry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	return snapshot, c.seq
}

// persist writes the snapshot unless a newer one already reached disk.
func (c *TrackCache) persist(snapshot map[string]cacheEntry, seq uint64) {
	if c.path == "" {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if seq <= c.writeSeq {
		return
	}
	if err := writeFileAtomic(c.path, snapshot); err != nil {
		c.log.Error("failed to save song cache", "path", c.path, "error", err)
		return
	}
	c.writeSeq = seq
}

func writeFileAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
