package store

// Well-known task columns. Any other column is carried through untouched.
const (
	ColumnProduct     = "product"
	ColumnPresale     = "presale"
	ColumnPriceRange  = "price_range"
	ColumnExtraFilter = "extra_filter"
)

// Fields lists the columns edited per product group, in display order.
var Fields = []string{ColumnProduct, ColumnPresale, ColumnPriceRange, ColumnExtraFilter}

// Row maps column name to cell text. A missing key reads as "".
type Row map[string]string

// Collection is the full row set of one task file.
// All rows share Columns; row order is the file order and is kept on save.
type Collection struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewCollection returns an empty collection with the given header.
func NewCollection(name string, columns ...string) *Collection {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Collection{Name: name, Columns: cols, Rows: make([]Row, 0)}
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	return len(c.Rows)
}

// Clone deep-copies the collection.
func (c *Collection) Clone() *Collection {
	out := NewCollection(c.Name, c.Columns...)
	out.Rows = make([]Row, len(c.Rows))
	for i, r := range c.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// HasColumn reports whether the header contains name.
func (c *Collection) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// EnsureColumn appends name to the header if it is missing.
// It returns true when the column was added.
func (c *Collection) EnsureColumn(name string) bool {
	if c.HasColumn(name) {
		return false
	}
	c.Columns = append(c.Columns, name)
	return true
}

// Append adds a row, keeping only the collection's columns.
func (c *Collection) Append(r Row) {
	row := make(Row, len(c.Columns))
	for _, col := range c.Columns {
		row[col] = r[col]
	}
	c.Rows = append(c.Rows, row)
}

// Products returns the distinct non-empty product values in first-seen order.
func (c *Collection) Products() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Rows {
		p := r[ColumnProduct]
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// First returns the first row whose column equals value.
func (c *Collection) First(column, value string) (Row, bool) {
	for _, r := range c.Rows {
		if r[column] == value {
			return r, true
		}
	}
	return nil, false
}

// UpdateWhere sets field to value on every row whose column equals match and
// returns how many rows were touched. The field column is added if missing.
func (c *Collection) UpdateWhere(column, match, field, value string) int {
	c.EnsureColumn(field)
	n := 0
	for _, r := range c.Rows {
		if r[column] != match {
			continue
		}
		r[field] = value
		n++
	}
	return n
}

// SetColumn sets field to value on every row.
func (c *Collection) SetColumn(field, value string) int {
	c.EnsureColumn(field)
	for _, r := range c.Rows {
		r[field] = value
	}
	return len(c.Rows)
}

// record renders row i in header order.
func (c *Collection) record(i int) []string {
	rec := make([]string, len(c.Columns))
	for j, col := range c.Columns {
		rec[j] = c.Rows[i][col]
	}
	return rec
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Concat merges collections in order under a new name. The header is the
// union of all source headers in first-seen order; cells a source does not
// have are left empty.
func Concat(name string, parts ...*Collection) *Collection {
	out := NewCollection(name)
	for _, p := range parts {
		for _, col := range p.Columns {
			out.EnsureColumn(col)
		}
	}
	for _, p := range parts {
		for _, r := range p.Rows {
			out.Append(r)
		}
	}
	return out
}
