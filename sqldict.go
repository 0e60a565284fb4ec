package teng

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLDictSource loads dictionary entries from a SQLite database with a
// table of (lang, key, value) rows, an alternative to the file-based
// loader for deployments that keep translations in a shared store
// (SPEC_FULL.md §3 "domain stack", wiring modernc.org/sqlite).
type SQLDictSource struct {
	db    *sql.DB
	table string
}

// OpenSQLDict opens the SQLite file at path (a cache-scoped, pure-Go
// driver so no cgo toolchain is required at build time) and prepares
// lookups against the named table, which must have columns
// lang, key, value.
func OpenSQLDict(path, table string) (*SQLDictSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sql dictionary %q: %w", path, err)
	}
	return &SQLDictSource{db: db, table: table}, nil
}

// Close releases the underlying database handle.
func (s *SQLDictSource) Close() error { return s.db.Close() }

// LoadLang materializes every (key, value) row for lang into a
// Dictionary, applying the same #{key} self-reference expansion as the
// file-based loader.
func (s *SQLDictSource) LoadLang(lang string, errs *ErrorLog) (*Dictionary, error) {
	d := NewDictionary()
	query := fmt.Sprintf("SELECT key, value FROM %s WHERE lang = ?", s.table)
	rows, err := s.db.Query(query, lang)
	if err != nil {
		return nil, fmt.Errorf("query sql dictionary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan sql dictionary row: %w", err)
		}
		d.Set(key, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.resolveSelfReferences(errs)
	return d, nil
}
