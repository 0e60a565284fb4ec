package teng

import "strings"

// EscapeEntry pairs a literal byte sequence with its escaped form,
// applied in order by ContentType.Escape.
type EscapeEntry struct {
	From string
	To   string
}

// ContentType describes how PRINT_ESC escapes text for one output
// format, plus that format's own line- and block-comment markers; the
// level-1 lexer does not consult it (spec.md §5 "content-type
// registry"). Grounded on the teacher's htmlEscapeFast scan-then-copy
// escaping idiom (utils.go), generalized into a per-content-type
// escape table.
type ContentType struct {
	Name         string
	Escapes      []EscapeEntry
	LineComment  string // "" if not supported
	BlockComment [2]string
}

// Escape applies the content type's escape table left to right.
func (c *ContentType) Escape(s string) string {
	if c == nil || len(c.Escapes) == 0 {
		return s
	}
	r := s
	for _, e := range c.Escapes {
		r = strings.ReplaceAll(r, e.From, e.To)
	}
	return r
}

// Unescape reverses Escape, applied right to left so overlapping
// escape targets round-trip (e.g. "&amp;" must not re-collapse into an
// already-unescaped "&" before "&lt;" is handled).
func (c *ContentType) Unescape(s string) string {
	if c == nil || len(c.Escapes) == 0 {
		return s
	}
	r := s
	for i := len(c.Escapes) - 1; i >= 0; i-- {
		e := c.Escapes[i]
		r = strings.ReplaceAll(r, e.To, e.From)
	}
	return r
}

// contentTypeRegistry is the process-wide table of known content
// types, seeded with Teng's built-ins and open to registration of
// custom ones by an embedding application.
type contentTypeRegistry struct {
	byName map[string]*ContentType
}

var defaultContentTypes = newContentTypeRegistry()

func newContentTypeRegistry() *contentTypeRegistry {
	r := &contentTypeRegistry{byName: make(map[string]*ContentType)}
	r.register(&ContentType{
		Name: "text/html",
		Escapes: []EscapeEntry{
			{"&", "&amp;"}, {"<", "&lt;"}, {">", "&gt;"}, {`"`, "&quot;"},
		},
		BlockComment: [2]string{"<!--", "-->"},
	})
	r.register(&ContentType{Name: "text/xml", Escapes: []EscapeEntry{
		{"&", "&amp;"}, {"<", "&lt;"}, {">", "&gt;"}, {`"`, "&quot;"}, {"'", "&apos;"},
	}})
	r.register(&ContentType{Name: "text/plain"})
	r.register(&ContentType{
		Name:    "quoted-string",
		Escapes: []EscapeEntry{{`\`, `\\`}, {`"`, `\"`}},
	})
	r.register(&ContentType{
		Name:        "application/x-sh",
		Escapes:     []EscapeEntry{{`\`, `\\`}, {`"`, `\"`}, {"$", `\$`}, {"`", "\\`"}},
		LineComment: "#",
	})
	r.register(&ContentType{
		Name:         "application/x-c",
		Escapes:      []EscapeEntry{{`\`, `\\`}, {`"`, `\"`}, {"\n", `\n`}},
		LineComment:  "//",
		BlockComment: [2]string{"/*", "*/"},
	})
	r.register(&ContentType{
		Name:    "application/json",
		Escapes: []EscapeEntry{{`\`, `\\`}, {`"`, `\"`}, {"\n", `\n`}, {"\r", `\r`}, {"\t", `\t`}},
	})
	r.register(&ContentType{Name: "text/csv", Escapes: []EscapeEntry{{`"`, `""`}}})
	return r
}

func (r *contentTypeRegistry) register(ct *ContentType) { r.byName[ct.Name] = ct }

// Lookup returns the named content type, or nil, false if unknown.
// Unknown names fall back to text/plain semantics for escaping but
// keep their own name for diagnostics, matching Teng's tolerant
// behavior toward application-defined content types it wasn't told
// about (spec.md §5 "unknown-name placeholder behavior").
func (r *contentTypeRegistry) Lookup(name string) (*ContentType, bool) {
	if name == "" {
		return r.byName["text/plain"], true
	}
	ct, ok := r.byName[name]
	if ok {
		return ct, true
	}
	return &ContentType{Name: name}, false
}

// RegisterContentType lets an embedding application add or override a
// content type before rendering, e.g. a project-specific escaping
// convention.
func RegisterContentType(ct *ContentType) { defaultContentTypes.register(ct) }
