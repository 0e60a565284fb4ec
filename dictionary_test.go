package teng

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDictionaryBasicLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.dict")
	content := "greeting Hello\nfarewell Goodbye\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	errs := NewErrorLog()
	d, err := LoadDictionaryFile(path, errs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, ok := d.Lookup("greeting"); !ok || v != "Hello" {
		t.Fatalf("greeting = %q, ok=%v", v, ok)
	}
	if v, ok := d.Lookup("farewell"); !ok || v != "Goodbye" {
		t.Fatalf("farewell = %q, ok=%v", v, ok)
	}
}

func TestDictionaryLaterDefinitionWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.dict")
	content := "key first\nkey second\n"
	os.WriteFile(path, []byte(content), 0o644)
	d, err := LoadDictionaryFile(path, NewErrorLog())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Lookup("key"); v != "second" {
		t.Fatalf("expected later definition to win, got %q", v)
	}
}

func TestDictionaryInclude(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "shared.dict"), []byte("common Shared\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "main.dict"), []byte("#include \"shared.dict\"\nlocal Local\n"), 0o644)
	d, err := LoadDictionaryFile(filepath.Join(dir, "main.dict"), NewErrorLog())
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := d.Lookup("common"); !ok || v != "Shared" {
		t.Fatalf("expected included key, got %q ok=%v", v, ok)
	}
	if v, ok := d.Lookup("local"); !ok || v != "Local" {
		t.Fatalf("expected local key, got %q ok=%v", v, ok)
	}
}

func TestDictionarySelfReference(t *testing.T) {
	dir := t.TempDir()
	content := "name World\ngreeting Hello, #{name}!\n"
	path := filepath.Join(dir, "main.dict")
	os.WriteFile(path, []byte(content), 0o644)
	d, err := LoadDictionaryFile(path, NewErrorLog())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Lookup("greeting"); v != "Hello, World!" {
		t.Fatalf("expected expanded self-reference, got %q", v)
	}
}

func TestDictionaryMissingSelfReferenceWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.dict")
	os.WriteFile(path, []byte("greeting Hi #{nope}\n"), 0o644)
	errs := NewErrorLog()
	d, err := LoadDictionaryFile(path, errs)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Lookup("greeting"); v != "Hi #{nope}" {
		t.Fatalf("expected unresolved reference left verbatim, got %q", v)
	}
	if errs.MaxSeverity() < SeverityWarning {
		t.Fatal("expected a warning for the missing key")
	}
}

func TestDictionaryYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.yaml")
	content := "entries:\n  hello: World\n"
	os.WriteFile(path, []byte(content), 0o644)
	d, err := LoadDictionaryYAML(path, NewErrorLog())
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := d.Lookup("hello"); !ok || v != "World" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
}
