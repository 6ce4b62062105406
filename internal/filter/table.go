package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRowIndex is returned when a table row index is out of range.
var ErrRowIndex = errors.New("filter row index out of range")

// Table is the structured, editable view of a filter expression. Unlike the
// encoded text it may hold incomplete rows (a freshly added blank row, or a
// section still waiting for its price); those rows are kept in the table but
// left out of Text.
type Table struct {
	rows []Pair
}

// NewTable builds a table from decoded pairs.
func NewTable(pairs []Pair) *Table {
	t := &Table{}
	t.Replace(pairs)
	return t
}

// Parse builds a table from filter text.
func Parse(text string) *Table {
	return NewTable(Decode(text))
}

// Rows returns a copy of the current rows.
func (t *Table) Rows() []Pair {
	out := make([]Pair, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows, including incomplete ones.
func (t *Table) Len() int {
	return len(t.rows)
}

// Replace swaps the whole row set.
func (t *Table) Replace(pairs []Pair) {
	t.rows = make([]Pair, len(pairs))
	copy(t.rows, pairs)
}

// Set overwrites row i. Values are trimmed the same way Decode trims them.
func (t *Table) Set(i int, section, price string) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.rows[i] = Pair{Section: strings.TrimSpace(section), Price: strings.TrimSpace(price)}
	return nil
}

// Add appends an empty row and returns its index.
func (t *Table) Add() int {
	t.rows = append(t.rows, Pair{})
	return len(t.rows) - 1
}

// Delete removes row i.
func (t *Table) Delete(i int) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

// Text encodes the complete rows.
func (t *Table) Text() string {
	return Encode(t.rows)
}

func (t *Table) check(i int) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: %d (rows: %d)", ErrRowIndex, i, len(t.rows))
	}
	return nil
}
