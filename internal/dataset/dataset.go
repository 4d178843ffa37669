// Package dataset holds the in-memory table the translation engine reads
// and produces: ordered named columns and rows of string cells.
package dataset

import "fmt"

// Row maps a column name to its cell value. Absent keys are empty cells.
type Row map[string]string

// Cell addresses a single value in a Dataset.
type Cell struct {
	Row    int
	Column string
}

func (c Cell) String() string {
	return fmt.Sprintf("%d:%s", c.Row, c.Column)
}

// Dataset is an ordered collection of rows over a fixed column list.
type Dataset struct {
	Columns []string
	Rows    []Row
}

func New(columns ...string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols}
}

// AddRow appends a row built positionally from values. Extra values are
// ignored; missing ones leave the cell absent.
func (d *Dataset) AddRow(values ...string) {
	row := make(Row, len(d.Columns))
	for i, col := range d.Columns {
		if i >= len(values) {
			break
		}
		row[col] = values[i]
	}
	d.Rows = append(d.Rows, row)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Get returns the value at (row, column) and whether the cell is present.
func (d *Dataset) Get(row int, column string) (string, bool) {
	if row < 0 || row >= len(d.Rows) {
		return "", false
	}
	v, ok := d.Rows[row][column]
	return v, ok
}

// Set writes a cell value. Out-of-range rows are ignored.
func (d *Dataset) Set(cell Cell, value string) {
	if cell.Row < 0 || cell.Row >= len(d.Rows) {
		return
	}
	if d.Rows[cell.Row] == nil {
		d.Rows[cell.Row] = make(Row)
	}
	d.Rows[cell.Row][cell.Column] = value
}

// Clone returns a deep copy; the copy shares no maps or slices with d.
func (d *Dataset) Clone() *Dataset {
	out := New(d.Columns...)
	out.Rows = make([]Row, len(d.Rows))
	for i, row := range d.Rows {
		if row == nil {
			continue
		}
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Apply returns a clone of d with values written over the addressed cells.
// d itself is left untouched.
func (d *Dataset) Apply(values map[Cell]string) *Dataset {
	out := d.Clone()
	for cell, v := range values {
		out.Set(cell, v)
	}
	return out
}

// Column returns the values of one column in row order; absent cells are "".
func (d *Dataset) Column(name string) []string {
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[name]
	}
	return out
}
