package teng

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary is a key/value string table loaded from one or more
// language files, supporting `#include`, `#` comments, override-by-
// later-definition, and `#{key}` self-references, per spec.md §5
// "Dictionary". Grounded on the teacher's mtime-checked,
// directory-scanning file loader (`cache.go`/`reload.go`), redirected
// from "compiled templates" to "loaded dictionaries".
type Dictionary struct {
	entries map[string]string
	order   []string
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]string)}
}

// Lookup returns the value for key, or "", false if absent.
func (d *Dictionary) Lookup(key string) (string, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Set stores a value, overriding any earlier definition of key — later
// definitions win, matching Teng's own dictionary-loading rule.
func (d *Dictionary) Set(key, value string) {
	if _, exists := d.entries[key]; !exists {
		d.order = append(d.order, key)
	}
	d.entries[key] = value
}

// Keys returns the dictionary's keys in first-definition order.
func (d *Dictionary) Keys() []string { return d.order }

// LoadDictionaryFile parses a line-oriented dictionary file at path,
// following `#include "other.dict"` directives relative to its own
// directory, and expanding `#{key}` self-references once all direct
// assignments in the file have been read. errs receives warnings for
// unresolved self-references rather than failing the whole load.
func LoadDictionaryFile(path string, errs *ErrorLog) (*Dictionary, error) {
	d := NewDictionary()
	if err := loadDictInto(d, path, errs, 0); err != nil {
		return nil, err
	}
	d.resolveSelfReferences(errs)
	return d, nil
}

func loadDictInto(d *Dictionary, path string, errs *ErrorLog, depth int) error {
	if depth > 16 {
		return fmt.Errorf("dictionary include depth exceeded at %q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dictionary %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	var pendingKey string
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#include"):
			pendingKey = ""
			continue
		case strings.HasPrefix(trimmed, "#include"):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#include"))
			rest = strings.Trim(rest, `"`)
			incPath := rest
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(filepath.Dir(path), incPath)
			}
			if err := loadDictInto(d, incPath, errs, depth+1); err != nil {
				if errs != nil {
					errs.Add(Pos{Filename: path, Line: lineNo}, SeverityError, "%v", err)
				}
			}
			pendingKey = ""
		case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
			if pendingKey != "" {
				prev, _ := d.Lookup(pendingKey)
				d.Set(pendingKey, prev+"\n"+strings.TrimSpace(line))
			}
		default:
			key, val, ok := strings.Cut(trimmed, " ")
			if !ok {
				key, val, ok = strings.Cut(trimmed, "\t")
			}
			if !ok || key == "" {
				pendingKey = ""
				continue
			}
			d.Set(key, strings.TrimSpace(val))
			pendingKey = key
		}
	}
	return scanner.Err()
}

// resolveSelfReferences expands `#{key}` occurrences within dictionary
// values against the same dictionary, logging a warning and leaving
// the placeholder verbatim when the referenced key is missing.
func (d *Dictionary) resolveSelfReferences(errs *ErrorLog) {
	for _, k := range d.order {
		d.entries[k] = expandDictRefs(d, d.entries[k], k, errs, 0)
	}
}

func expandDictRefs(d *Dictionary, s, ownerKey string, errs *ErrorLog, depth int) string {
	if depth > 8 || !strings.Contains(s, "#{") {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		if strings.HasPrefix(s[i:], "#{") {
			end := strings.Index(s[i:], "}")
			if end < 0 {
				b.WriteString(s[i:])
				break
			}
			key := s[i+2 : i+end]
			if v, ok := d.Lookup(key); ok {
				b.WriteString(expandDictRefs(d, v, ownerKey, errs, depth+1))
			} else {
				if errs != nil {
					errs.Add(Pos{}, SeverityWarning, "dictionary key %q referenced by %q not found", key, ownerKey)
				}
				b.WriteString(s[i : i+end+1])
			}
			i += end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// yamlDictFile is the alternate structured format: a flat mapping plus
// optional #include list, loaded via gopkg.in/yaml.v3 (SPEC_FULL.md §2
// "configuration").
type yamlDictFile struct {
	Include []string          `yaml:"include"`
	Entries map[string]string `yaml:"entries"`
}

// LoadDictionaryYAML parses the YAML alternate dictionary format.
func LoadDictionaryYAML(path string, errs *ErrorLog) (*Dictionary, error) {
	d := NewDictionary()
	if err := loadYAMLDictInto(d, path, errs, 0); err != nil {
		return nil, err
	}
	d.resolveSelfReferences(errs)
	return d, nil
}

func loadYAMLDictInto(d *Dictionary, path string, errs *ErrorLog, depth int) error {
	if depth > 16 {
		return fmt.Errorf("dictionary include depth exceeded at %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dictionary %q: %w", path, err)
	}
	var y yamlDictFile
	if err := yaml.Unmarshal(b, &y); err != nil {
		return fmt.Errorf("parse dictionary %q: %w", path, err)
	}
	for _, inc := range y.Include {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(filepath.Dir(path), incPath)
		}
		if err := loadYAMLDictInto(d, incPath, errs, depth+1); err != nil {
			if errs != nil {
				errs.Add(Pos{Filename: path}, SeverityError, "%v", err)
			}
		}
	}
	for k, v := range y.Entries {
		d.Set(k, v)
	}
	return nil
}
