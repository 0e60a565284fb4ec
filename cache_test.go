package teng

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3) // evicts "a", the least recently used
	if _, ok := c.get("a"); ok {
		t.Fatal("expected \"a\" to have been evicted")
	}
	if v, ok := c.get("b"); !ok || v != 2 {
		t.Fatalf("expected b=2, got %v ok=%v", v, ok)
	}
	if v, ok := c.get("c"); !ok || v != 3 {
		t.Fatalf("expected c=3, got %v ok=%v", v, ok)
	}
}

func TestLRUCacheGetPromotesToFront(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", 1)
	c.put("b", 2)
	c.get("a") // touch a, making b the least recently used
	c.put("c", 3)
	if _, ok := c.get("b"); ok {
		t.Fatal("expected \"b\" to have been evicted after \"a\" was touched")
	}
	if _, ok := c.get("a"); !ok {
		t.Fatal("expected \"a\" to survive")
	}
}

func TestLRUCacheBuildsOnceConcurrently(t *testing.T) {
	c := newLRUCache(4)
	var calls int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.getOrBuild("k", func() (any, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return "v", nil
			})
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected exactly one build, got %d", calls)
	}
}

func TestProgramCacheCompilesAndReuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	os.WriteFile(path, []byte("hello ${name}"), 0o644)

	pc := NewProgramCache(dir, LexerConfig{UTF8: true}, nil, 8)
	prog1, errs1, err := pc.GetFile(path)
	if err != nil {
		t.Fatal(err)
	}
	prog2, _, err := pc.GetFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if prog1 != prog2 {
		t.Fatal("expected the second GetFile to reuse the cached Program")
	}
	if errs1.MaxSeverity() != SeverityDebug {
		t.Fatalf("expected a clean compile, got %v", errs1.MaxSeverity())
	}
}

func TestProgramCacheStringKeyedByHash(t *testing.T) {
	pc := NewProgramCache(".", LexerConfig{UTF8: true}, nil, 8)
	p1, _, _ := pc.GetString("hello")
	p2, _, _ := pc.GetString("hello")
	p3, _, _ := pc.GetString("world")
	if p1 != p2 {
		t.Fatal("expected identical source to hit the cache")
	}
	if p1 == p3 {
		t.Fatal("expected different source to compile separately")
	}
}

func TestDictCacheYAMLDispatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.yaml")
	os.WriteFile(path, []byte("entries:\n  k: v\n"), 0o644)
	dc := NewDictCache(4)
	d, err := dc.Get(path, NewErrorLog())
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := d.Lookup("k"); !ok || v != "v" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
}

func TestProgramCacheWarmSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	os.WriteFile(path, []byte("hello ${name}"), 0o644)

	pc := NewProgramCache(dir, LexerConfig{UTF8: true}, nil, 8)
	if _, _, err := pc.GetFile(path); err != nil {
		t.Fatal(err)
	}

	snapshot := filepath.Join(dir, "warm.snapshot")
	if err := pc.SnapshotWarmSet(snapshot); err != nil {
		t.Fatal(err)
	}

	pc2 := NewProgramCache(dir, LexerConfig{UTF8: true}, nil, 8)
	warmed, err := pc2.WarmFromSnapshot(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if warmed != 1 {
		t.Fatalf("expected 1 warmed template, got %d", warmed)
	}
	prog, _, err := pc2.GetFile(path)
	if err != nil || prog == nil {
		t.Fatalf("expected the warmed template to be compiled, err=%v", err)
	}
}

func TestIsYAMLPath(t *testing.T) {
	cases := map[string]bool{"a.yaml": true, "a.yml": true, "a.dict": false, "a.html": false}
	for p, want := range cases {
		if got := isYAMLPath(p); got != want {
			t.Errorf("isYAMLPath(%q) = %v, want %v", p, got, want)
		}
	}
}
