package teng

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Engine is the facade a host application talks to: it owns the
// program and dictionary caches rooted at one directory and exposes
// page generation and dictionary lookup, per spec.md §5. Grounded on
// the teacher's top-level Template/engine wiring, generalized from a
// single-template-pool cache to Teng's combined program+dictionary
// cache pair.
type Engine struct {
	rootDir   string
	cfg       Config
	programs  *ProgramCache
	dicts     *DictCache
	log       *slog.Logger
}

// NewEngine constructs an engine rooted at rootDir, resolving relative
// template and include paths against it.
func NewEngine(rootDir string, cfg Config) *Engine {
	resolver := func(dir, path string) (string, string, error) {
		return defaultIncludeResolver(dir, path)
	}
	return &Engine{
		rootDir:  rootDir,
		cfg:      cfg,
		programs: NewProgramCache(rootDir, cfg.lexerConfig(), resolver, cfg.ProgramCacheSize),
		dicts:    NewDictCache(cfg.DictCacheSize),
		log:      slog.Default().With("component", "teng.engine"),
	}
}

// PageRequest names what to render and how, per spec.md §5
// "generate_page". Exactly one of TemplateFile or TemplateString should
// be set.
type PageRequest struct {
	TemplateFile   string
	TemplateString string
	Skin           string
	DictPath       string
	Lang           string
	ContentType    string
	Data           *Fragment
}

// GeneratePage compiles (or reuses the cached compilation of) the
// requested template, executes it against data, and writes the result
// to w. It returns the maximum diagnostic severity recorded during
// compilation and execution — the process exit-code convention of
// spec.md §6 — and a non-nil error only for a genuine Go-level failure
// (a nil writer, an unreadable template file, or an I/O error while
// writing output).
func (e *Engine) GeneratePage(req PageRequest, w io.Writer) (Severity, error) {
	if w == nil {
		return SeverityFatal, fmt.Errorf("teng: nil writer")
	}

	renderID := uuid.NewString()
	log := e.log.With("render_id", renderID)

	var prog *Program
	var errs *ErrorLog
	var err error

	switch {
	case req.TemplateFile != "":
		path := e.resolveSkin(req.TemplateFile, req.Skin)
		prog, errs, err = e.programs.GetFile(path)
	case req.TemplateString != "":
		prog, errs, err = e.programs.GetString(req.TemplateString)
	default:
		return SeverityFatal, fmt.Errorf("teng: page request names neither TemplateFile nor TemplateString")
	}
	if err != nil {
		log.Error("template compile failed", "error", err)
		return SeverityFatal, fmt.Errorf("teng: load template: %w", err)
	}
	// The cached compile log is shared by every render of this program;
	// each render gets its own log seeded with a copy of its entries.
	compileErrs := errs
	errs = NewErrorLog()
	for _, entry := range compileErrs.Entries() {
		errs.Add(entry.Pos, entry.Severity, "%s", entry.Message)
	}
	errs.RenderID = renderID

	var dict *Dictionary
	if req.DictPath != "" {
		path := e.resolveSkin(req.DictPath, req.Lang)
		dict, err = e.dicts.Get(path, errs)
		if err != nil {
			log.Warn("dictionary load failed", "path", path, "error", err)
			dict = NewDictionary()
		}
	}

	ctype := req.ContentType
	if ctype == "" {
		ctype = e.cfg.DefaultContentType
	}

	data := req.Data
	if data == nil {
		data = NewFragment()
	}

	proc := NewProcessor(prog, data, w, ctype, dict, errs)
	if err := proc.Run(); err != nil {
		log.Error("render failed", "error", err)
		return SeverityFatal, err
	}
	if errs.MaxSeverity() >= SeverityError {
		log.Warn("render completed with diagnostics", "max_severity", errs.MaxSeverity().String(), "count", errs.Count())
	} else {
		log.Debug("render completed", "max_severity", errs.MaxSeverity().String())
	}
	return errs.MaxSeverity(), nil
}

// GeneratePageToString is a convenience wrapper returning the rendered
// output as a string alongside the diagnostic severity.
func (e *Engine) GeneratePageToString(req PageRequest) (string, Severity, error) {
	var buf bytes.Buffer
	sev, err := e.GeneratePage(req, &buf)
	return buf.String(), sev, err
}

// resolveSkin applies Teng's skin/language filename overlay:
// "page.html" with skin "mobile" resolves to "page.mobile.html" if
// that file exists, falling back to the unmodified name otherwise.
func (e *Engine) resolveSkin(name, skin string) string {
	if skin == "" {
		return e.absPath(name)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	overlaid := base + "." + skin + ext
	if _, err := os.Stat(e.absPath(overlaid)); err == nil {
		return e.absPath(overlaid)
	}
	return e.absPath(name)
}

func (e *Engine) absPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.rootDir, name)
}

// DictionaryLookup resolves a single key against the named dictionary
// and language, without going through a full page render.
func (e *Engine) DictionaryLookup(dictPath, lang, key string) (string, bool) {
	path := e.resolveSkin(dictPath, lang)
	dict, err := e.dicts.Get(path, NewErrorLog())
	if err != nil {
		return "", false
	}
	return dict.Lookup(key)
}

// ListSupportedContentTypes returns the names of every registered
// content type, built-in or application-registered.
func (e *Engine) ListSupportedContentTypes() []string {
	names := make([]string, 0, len(defaultContentTypes.byName))
	for name := range defaultContentTypes.byName {
		names = append(names, name)
	}
	return names
}
