// Package table provides a small in-memory typed table used to pass the
// dataset between pipeline stages. Cells hold string, int64, float64, bool,
// or nil; column order is fixed and row order is preserved so that output
// is deterministic for a given input.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the declared type of a column.
type Type string

const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
)

// Column describes one table column.
type Column struct {
	Name string
	Type Type
}

// Table is an ordered collection of typed columns and rows.
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]any
}

// New creates an empty table with the given columns.
func New(cols []Column) *Table {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Table{
		cols:  cols,
		index: index,
	}
}

// Columns returns the column definitions in order.
func (t *Table) Columns() []Column {
	return t.cols
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// AppendRow appends a row. The cell count must match the column count.
func (t *Table) AppendRow(cells []any) error {
	if len(cells) != len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.cols))
	}
	t.rows = append(t.rows, cells)
	return nil
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Row returns the i-th row. The returned slice is not a copy.
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Value returns the cell at (row, column name).
func (t *Table) Value(row int, col string) (any, bool) {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][i], true
}

// ColumnValues returns all values of the named column in row order.
func (t *Table) ColumnValues(name string) ([]any, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", name)
	}
	values := make([]any, len(t.rows))
	for r, row := range t.rows {
		values[r] = row[i]
	}
	return values, nil
}

// Retype returns a copy of the table conforming to the given column layout.
// Columns are matched by name and every cell is re-parsed into its declared
// type, so a table read back from a CSV artifact regains the typed layout
// it was written from.
func (t *Table) Retype(cols []Column) (*Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.index[c.Name]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", c.Name)
		}
		idx[i] = j
	}

	out := New(cols)
	for r, row := range t.rows {
		cells := make([]any, len(cols))
		for i, c := range cols {
			v, err := ParseCell(FormatCell(row[idx[i]]), c.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", r+1, c.Name, err)
			}
			cells[i] = v
		}
		if err := out.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FormatCell renders a cell value as a string. Integers are base-10, floats
// use the shortest representation that round-trips, nil renders empty. This
// is the single formatting path for CSV output, document encoding, and
// violation samples, so the rendering is stable across stages.
func FormatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprintf("%v", c)
	}
}

// ParseCell parses a rendered cell back into its declared type, inverting
// FormatCell. Empty cells become nil; missing values are the validator's
// concern, not a parse error.
func ParseCell(s string, typ Type) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	switch typ {
	case TypeString:
		return s, nil
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to int", s)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to float", s)
		}
		return f, nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to bool", s)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown column type: %s", typ)
	}
}
