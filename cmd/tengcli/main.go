// Command tengcli renders a single template against an optional data
// file, mirroring original_source/src/example/example.cc's role as a
// minimal driver rather than a production server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"teng"
)

func main() {
	var (
		root    = flag.String("root", ".", "template root directory")
		tmpl    = flag.String("template", "", "template file, relative to -root")
		dict    = flag.String("dict", "", "dictionary file, relative to -root")
		lang    = flag.String("lang", "", "dictionary language/skin suffix")
		ctype   = flag.String("content-type", "text/html", "output content type")
		dataPth = flag.String("data", "", "JSON file to populate the data tree from")
	)
	flag.Parse()

	if *tmpl == "" {
		fmt.Fprintln(os.Stderr, "tengcli: -template is required")
		os.Exit(2)
	}

	data := teng.NewFragment()
	if *dataPth != "" {
		if err := loadJSONFragment(*dataPth, data); err != nil {
			fmt.Fprintf(os.Stderr, "tengcli: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := teng.DefaultConfig()
	engine := teng.NewEngine(*root, cfg)

	req := teng.PageRequest{
		TemplateFile: *tmpl,
		DictPath:     *dict,
		Lang:         *lang,
		ContentType:  *ctype,
		Data:         data,
	}

	sev, err := engine.GeneratePage(req, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tengcli: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCodeFor(sev))
}

// exitCodeFor maps the highest diagnostic severity from a render to a
// process exit code, per spec.md §6.
func exitCodeFor(sev teng.Severity) int {
	return int(sev)
}

// loadJSONFragment populates root from a JSON object, treating nested
// objects as sub-fragments, arrays of objects as fragment lists, and
// scalars as leaves. This is a convenience for the CLI only — the
// engine's own API takes a *teng.Fragment built directly by the host
// application.
func loadJSONFragment(path string, root *teng.Fragment) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read data file %s: %w", filepath.Clean(path), err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("parse data file: %w", err)
	}
	fillFragment(root, raw)
	return nil
}

func fillFragment(f *teng.Fragment, m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			f.SetString(k, val)
		case float64:
			if val == float64(int64(val)) {
				f.SetInt(k, int64(val))
			} else {
				f.SetReal(k, val)
			}
		case bool:
			if val {
				f.SetInt(k, 1)
			} else {
				f.SetInt(k, 0)
			}
		case map[string]any:
			fillFragment(f.AddFragment(k), val)
		case []any:
			list := f.AddFragmentList(k)
			for _, item := range val {
				if obj, ok := item.(map[string]any); ok {
					fillFragment(list.AddFragment(), obj)
				}
			}
		}
	}
}
