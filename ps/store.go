package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wiredb/wiredb/core"
)

var ErrKeyNotFound = errors.New("key not found")

// KV is the pluggable storage contract. A key is an opaque document name;
// the value is the encoded document. Implementations must be safe for
// concurrent use.
type KV interface {
	Write(key string, data []byte) error
	Read(key string) (data []byte, found bool, err error)
	Delete(key string) error
}

const (
	tableKeyPrefix = "table_"
	schemaKey      = "table_schema"
)

// SanitizeKey maps a document key to a safe name: every byte that is not an
// ASCII letter or digit becomes an underscore. Distinct table names can
// collide after sanitizing; the last writer wins, matching the storage
// contract of one document per sanitized key.
func SanitizeKey(key string) string {
	b := []byte(key)
	for i, ch := range b {
		switch {
		case 'a' <= ch && ch <= 'z':
		case 'A' <= ch && ch <= 'Z':
		case '0' <= ch && ch <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

// Store layers the table persistence API over any KV backend. Each table
// lives in one document keyed table_<name>; the accumulated schemas live in
// the table_schema pseudo-table document.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func tableKey(name string) string {
	return tableKeyPrefix + name
}

// SaveTable writes the full table document. Every value is rendered to its
// string form; types are re-derived from the strings at load time.
func (store *Store) SaveTable(table *core.Table) error {
	doc := tableDocument{Name: table.Name}
	for _, row := range table.Rows {
		encoded := make(map[string]string, len(row))
		for field, value := range row {
			encoded[field] = value.String()
		}
		doc.Rows = append(doc.Rows, encoded)
	}

	if err := store.kv.Write(tableKey(table.Name), encodeTableDocument(doc)); err != nil {
		return fmt.Errorf("saving table %s: %w", table.Name, err)
	}
	return nil
}

// LoadTable reads one table document. The second return is false when the
// backend has no document for the table.
func (store *Store) LoadTable(name string) (*core.Table, bool, error) {
	data, found, err := store.kv.Read(tableKey(name))
	if err != nil {
		return nil, false, fmt.Errorf("loading table %s: %w", name, err)
	}
	if !found {
		return nil, false, nil
	}

	doc, err := decodeTableDocument(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding table %s: %w", name, err)
	}

	table := core.NewTable(name, nil)
	for _, encoded := range doc.Rows {
		row := make(core.Row, len(encoded))
		for field, literal := range encoded {
			row[field] = core.ParseValue(literal)
			table.AddColumn(field)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, true, nil
}

func (store *Store) DeleteTable(name string) error {
	if err := store.kv.Delete(tableKey(name)); err != nil {
		return fmt.Errorf("deleting table %s: %w", name, err)
	}
	return nil
}

// SaveSchemas writes the schema pseudo-table: one row per table with its
// column list joined by commas.
func (store *Store) SaveSchemas(schemas map[string][]string) error {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := tableDocument{Name: "schema"}
	for _, name := range names {
		doc.Rows = append(doc.Rows, map[string]string{
			"table_name": name,
			"columns":    strings.Join(schemas[name], ","),
		})
	}

	if err := store.kv.Write(schemaKey, encodeTableDocument(doc)); err != nil {
		return fmt.Errorf("saving schemas: %w", err)
	}
	return nil
}

// LoadSchemas reads the schema pseudo-table back into a name-to-columns
// map. A missing schema document yields an empty map.
func (store *Store) LoadSchemas() (map[string][]string, error) {
	schemas := make(map[string][]string)

	data, found, err := store.kv.Read(schemaKey)
	if err != nil {
		return nil, fmt.Errorf("loading schemas: %w", err)
	}
	if !found {
		return schemas, nil
	}

	doc, err := decodeTableDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decoding schemas: %w", err)
	}

	for _, row := range doc.Rows {
		name := row["table_name"]
		if name == "" {
			continue
		}
		var columns []string
		if row["columns"] != "" {
			columns = strings.Split(row["columns"], ",")
		}
		schemas[name] = columns
	}
	return schemas, nil
}

// TableNames lists the known tables from the schema document, sorted.
func (store *Store) TableNames() ([]string, error) {
	schemas, err := store.LoadSchemas()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
