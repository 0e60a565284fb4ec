package teng

import (
	"bufio"
	"bytes"
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/singleflight"
)

// cacheEntry is one LRU slot: the built value plus the key it was
// filed under, so eviction can remove it from the index map too.
type cacheEntry struct {
	key   string
	value any
}

// lruCache is a fixed-capacity, key-indexed LRU used identically by the
// program cache and the dictionary cache (spec.md §7 "Cache"). A
// successful build is kept even when it carries compile errors, so a
// template with a persistent syntax error doesn't get recompiled on
// every render — its ErrorLog is simply replayed to each caller.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
	group    singleflight.Group
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &lruCache{capacity: capacity, ll: list.New(), index: make(map[string]*list.Element)}
}

func (c *lruCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, value: value})
	c.index[key] = el
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheEntry).key)
	}
}

// getOrBuild returns the cached value for key, or calls build exactly
// once across concurrent callers racing on the same key —
// golang.org/x/sync/singleflight's Do is the mechanism, matching
// spec.md §7's "at most one build in flight per key" requirement more
// directly than a hand-rolled per-key mutex map would.
func (c *lruCache) getOrBuild(key string, build func() (any, error)) (any, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		built, err := build()
		if err != nil {
			return nil, err
		}
		c.put(key, built)
		return built, nil
	})
	return v, err
}

// ProgramCache compiles and caches Programs keyed by source identity.
type ProgramCache struct {
	cache     *lruCache
	resolve   IncludeResolver
	cfg       LexerConfig
	baseDir   string
	warmMu    sync.Mutex
	warmPaths map[string]struct{}
}

// NewProgramCache returns a cache holding up to capacity compiled
// programs.
func NewProgramCache(baseDir string, cfg LexerConfig, resolve IncludeResolver, capacity int) *ProgramCache {
	return &ProgramCache{
		cache:     newLRUCache(capacity),
		resolve:   resolve,
		cfg:       cfg,
		baseDir:   baseDir,
		warmPaths: make(map[string]struct{}),
	}
}

// SnapshotWarmSet atomically writes the set of file-backed template
// paths this cache has compiled to snapshotPath, one per line, via
// github.com/natefinch/atomic so a concurrent reader never observes a
// half-written file. A process that restarts can pass this file to
// WarmFromSnapshot to recompile the same working set before serving
// its first request, avoiding the cold-cache latency spike that
// otherwise lands on whichever requests arrive first.
func (pc *ProgramCache) SnapshotWarmSet(snapshotPath string) error {
	pc.warmMu.Lock()
	paths := make([]string, 0, len(pc.warmPaths))
	for p := range pc.warmPaths {
		paths = append(paths, p)
	}
	pc.warmMu.Unlock()

	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	return atomic.WriteFile(snapshotPath, &buf)
}

// WarmFromSnapshot reads a file written by SnapshotWarmSet and compiles
// each listed template into the cache, returning how many succeeded.
// Paths that no longer exist or fail to compile are skipped rather than
// treated as fatal, since a snapshot can outlive the templates it named.
func (pc *ProgramCache) WarmFromSnapshot(snapshotPath string) (int, error) {
	f, err := os.Open(snapshotPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	warmed := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		path := strings.TrimSpace(sc.Text())
		if path == "" {
			continue
		}
		if _, _, err := pc.GetFile(path); err == nil {
			warmed++
		}
	}
	return warmed, sc.Err()
}

// GetFile compiles (or returns the cached compilation of) the template
// at path. The cache key folds in the file's mtime so an edited
// template is recompiled on next access without an explicit
// invalidation call, mirroring the teacher's mtime-keyed reload check
// generalized from a background scheduler into a pull-based one
// (DESIGN.md "Dropped teacher code").
func (pc *ProgramCache) GetFile(path string) (*Program, *ErrorLog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	pc.warmMu.Lock()
	pc.warmPaths[path] = struct{}{}
	pc.warmMu.Unlock()

	key := "file:" + path + ":" + info.ModTime().String()
	type built struct {
		prog *Program
		errs *ErrorLog
	}
	v, err := pc.cache.getOrBuild(key, func() (any, error) {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		errs := NewErrorLog()
		p := NewParser(pc.baseDir, pc.cfg, pc.resolve, errs)
		prog := p.Parse(string(src), path)
		return &built{prog: prog, errs: errs}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	b := v.(*built)
	return b.prog, b.errs, nil
}

// GetString compiles (or returns the cached compilation of) a
// string-sourced template, keyed by a content hash since there is no
// filesystem mtime to key on.
func (pc *ProgramCache) GetString(src string) (*Program, *ErrorLog, error) {
	sum := sha256.Sum256([]byte(src))
	key := "string:" + hex.EncodeToString(sum[:])
	type built struct {
		prog *Program
		errs *ErrorLog
	}
	v, err := pc.cache.getOrBuild(key, func() (any, error) {
		errs := NewErrorLog()
		p := NewParser(pc.baseDir, pc.cfg, pc.resolve, errs)
		prog := p.Parse(src, "<string>")
		return &built{prog: prog, errs: errs}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	b := v.(*built)
	return b.prog, b.errs, nil
}

// DictCache caches loaded Dictionaries keyed by resolved path.
type DictCache struct {
	cache *lruCache
}

// NewDictCache returns a cache holding up to capacity dictionaries.
func NewDictCache(capacity int) *DictCache {
	return &DictCache{cache: newLRUCache(capacity)}
}

// Get loads (or returns the cached load of) the dictionary at path,
// dispatching to the YAML loader when the extension is .yaml/.yml.
func (dc *DictCache) Get(path string, errs *ErrorLog) (*Dictionary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := path + ":" + info.ModTime().String()
	v, err := dc.cache.getOrBuild(key, func() (any, error) {
		if isYAMLPath(path) {
			return LoadDictionaryYAML(path, errs)
		}
		return LoadDictionaryFile(path, errs)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dictionary), nil
}

func isYAMLPath(path string) bool {
	n := len(path)
	return n >= 5 && path[n-5:] == ".yaml" || n >= 4 && path[n-4:] == ".yml"
}
