package core

// Row maps field names to their values. Field names are case-sensitive.
type Row map[string]Value

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table holds a table's rows together with its accumulated schema. Columns
// records every field name ever seen for the table, in first-seen order; it
// grows on INSERT, UPDATE, CREATE and ALTER and never shrinks.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

func NewTable(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// HasColumn reports whether the schema already tracks the column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn unions a column name into the schema. It reports whether the
// schema actually changed.
func (t *Table) AddColumn(name string) bool {
	if t.HasColumn(name) {
		return false
	}
	t.Columns = append(t.Columns, name)
	return true
}

// Clone returns a deep copy: the snapshot a transaction mutates in place.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}
