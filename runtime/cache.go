package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/deicod/webity/nodes"
	"github.com/deicod/webity/parser"
)

// SourceEntry represents a cached template source with metadata
type SourceEntry struct {
	Source    string
	LoadedAt  time.Time
	ExpiresAt time.Time
	ModTime   time.Time
}

// IsExpired checks if the cache entry has expired
func (e *SourceEntry) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.ExpiresAt)
}

// IsValid checks that the entry has not expired and that the file behind it
// has not changed since it was loaded
func (e *SourceEntry) IsValid(loader Loader, path string) bool {
	if e.IsExpired() {
		return false
	}
	if e.ModTime.IsZero() || loader == nil {
		return true
	}

	current, err := getModTime(loader, path)
	if err != nil || current.IsZero() {
		return false
	}
	return current.Equal(e.ModTime)
}

// SourceCache holds template sources keyed by path
type SourceCache struct {
	entries map[string]*SourceEntry
	mutex   sync.RWMutex
	ttl     time.Duration
	maxSize int
}

// NewSourceCache creates a new source cache. A ttl of zero never expires
// entries.
func NewSourceCache(ttl time.Duration, maxSize int) *SourceCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &SourceCache{
		entries: make(map[string]*SourceEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a source from the cache
func (c *SourceCache) Get(path string, loader Loader) (string, bool) {
	c.mutex.RLock()
	entry, ok := c.entries[path]
	c.mutex.RUnlock()

	if !ok {
		return "", false
	}

	if !entry.IsValid(loader, path) {
		c.Delete(path)
		return "", false
	}

	return entry.Source, true
}

// Set stores a source in the cache
func (c *SourceCache) Set(path, source string, modTime time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[path]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.entries[path] = &SourceEntry{
		Source:    source,
		LoadedAt:  now,
		ExpiresAt: expiresAt,
		ModTime:   modTime,
	}
}

// Delete removes a source from the cache
func (c *SourceCache) Delete(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, path)
}

// Clear removes all entries from the cache
func (c *SourceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*SourceEntry)
}

// Size returns the current number of cached entries
func (c *SourceCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

func (c *SourceCache) evictOldest() {
	var oldestPath string
	var oldestTime time.Time

	for path, entry := range c.entries {
		if oldestPath == "" || entry.LoadedAt.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.LoadedAt
		}
	}

	if oldestPath != "" {
		delete(c.entries, oldestPath)
	}
}

// getModTime gets the modification time of a template file using the provided loader.
func getModTime(loader Loader, path string) (time.Time, error) {
	if loader == nil {
		return time.Time{}, errors.New("no loader configured")
	}

	type modTimeLoader interface {
		TemplateModTime(name string) (time.Time, error)
	}

	if mt, ok := loader.(modTimeLoader); ok {
		return mt.TemplateModTime(path)
	}

	return time.Time{}, errors.New("loader does not support modification times")
}

type programKey struct {
	source string
	script bool
}

type programEntry struct {
	node     nodes.Node
	err      error
	lastUsed time.Time
}

// ProgramCache holds parsed expressions and scripts keyed by their source.
// Parse failures are cached too. The trees are never mutated after
// parsing, so entries are shared between concurrent renders.
type ProgramCache struct {
	entries map[programKey]*programEntry
	mutex   sync.Mutex
	maxSize int
}

// NewProgramCache creates a cache holding at most maxSize trees
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &ProgramCache{
		entries: make(map[programKey]*programEntry),
		maxSize: maxSize,
	}
}

// Expression returns the parsed form of an expression
func (c *ProgramCache) Expression(source, name string) (nodes.Expr, error) {
	node, err := c.load(programKey{source: source}, func() (nodes.Node, error) {
		return parser.ParseExpressionWithName(source, name)
	})
	if err != nil {
		return nil, err
	}
	return node.(nodes.Expr), nil
}

// Script returns the parsed form of a script
func (c *ProgramCache) Script(source, name string) (*nodes.Program, error) {
	node, err := c.load(programKey{source: source, script: true}, func() (nodes.Node, error) {
		return parser.ParseScriptWithName(source, name)
	})
	if err != nil {
		return nil, err
	}
	return node.(*nodes.Program), nil
}

func (c *ProgramCache) load(key programKey, parse func() (nodes.Node, error)) (nodes.Node, error) {
	c.mutex.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastUsed = time.Now()
		c.mutex.Unlock()
		return entry.node, entry.err
	}
	c.mutex.Unlock()

	node, err := parse()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &programEntry{node: node, err: err, lastUsed: time.Now()}
	return node, err
}

// Clear removes all parsed trees
func (c *ProgramCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[programKey]*programEntry)
}

// Size returns the current number of cached trees
func (c *ProgramCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries)
}

func (c *ProgramCache) evictOldest() {
	var oldest programKey
	var oldestTime time.Time
	found := false

	for key, entry := range c.entries {
		if !found || entry.lastUsed.Before(oldestTime) {
			oldest = key
			oldestTime = entry.lastUsed
			found = true
		}
	}

	if found {
		delete(c.entries, oldest)
	}
}
