package store

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `event_id,product,presale,price_range,extra_filter,notes
1,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326",first
2,GA,2025-01-01,50-100,"FLR1:350, FLR2,FLR3:326",second
3,VIP,2025-01-02,200-400,,third
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir), dir
}

func TestList(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "b.csv", "product\nx\n")
	writeFile(t, dir, "a.CSV", "product\nx\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".a.csv.123.tmp", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.CSV", "b.csv"}, names)
}

func TestList_MissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope"))
	_, err := s.List()
	assert.ErrorIs(t, err, ErrIO)
}

func TestLoad(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	c, err := s.Load("show.csv")
	require.NoError(t, err)
	assert.Equal(t, "show.csv", c.Name)
	assert.Equal(t, []string{"event_id", "product", "presale", "price_range", "extra_filter", "notes"}, c.Columns)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "FLR1:350, FLR2,FLR3:326", c.Rows[0][ColumnExtraFilter])
	assert.Equal(t, "", c.Rows[2][ColumnExtraFilter])
	assert.Equal(t, []string{"GA", "VIP"}, c.Products())
}

func TestLoad_NaNNormalized(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "n.csv", "product,extra_filter\nGA,NaN\nGA,nan\n")

	c, err := s.Load("n.csv")
	require.NoError(t, err)
	for _, r := range c.Rows {
		assert.Equal(t, "", r[ColumnExtraFilter])
	}
}

func TestLoad_Errors(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "ragged.csv", "a,b\n1,2,3\n")
	writeFile(t, dir, "empty.csv", "")
	writeFile(t, dir, "dup.csv", "a,a\n1,2\n")
	writeFile(t, dir, "quote.csv", "a,b\n\"1,2\n")

	_, err := s.Load("missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, name := range []string{"ragged.csv", "empty.csv", "dup.csv", "quote.csv"} {
		_, err := s.Load(name)
		assert.ErrorIs(t, err, ErrParse, name)
	}

	_, err = s.Load("../escape.csv")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	orig, err := s.Load("show.csv")
	require.NoError(t, err)

	require.NoError(t, s.Save("copy.csv", orig))
	got, err := s.Load("copy.csv")
	require.NoError(t, err)

	assert.Equal(t, orig.Columns, got.Columns)
	assert.Equal(t, orig.Rows, got.Rows)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSave_PreservesUnknownColumnsAndOrder(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	c, err := s.Load("show.csv")
	require.NoError(t, err)
	c.UpdateWhere(ColumnProduct, "GA", ColumnPresale, "2026-02-02")
	require.NoError(t, s.Save("show.csv", c))

	got, err := s.Load("show.csv")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Rows[0]["notes"])
	assert.Equal(t, "2026-02-02", got.Rows[1][ColumnPresale])
	assert.Equal(t, "2025-01-02", got.Rows[2][ColumnPresale])
	assert.Equal(t, []string{"1", "2", "3"}, []string{got.Rows[0]["event_id"], got.Rows[1]["event_id"], got.Rows[2]["event_id"]})
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	c, err := s.Load("show.csv")
	require.NoError(t, err)
	c.SetColumn(ColumnPresale, "changed")

	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	err = s.Save("show.csv", c)
	assert.ErrorIs(t, err, ErrIO)

	data, err := os.ReadFile(filepath.Join(dir, "show.csv"))
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))
}

func TestDelete(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	require.NoError(t, s.Delete("show.csv"))
	_, err := os.Stat(filepath.Join(dir, "show.csv"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete("show.csv"), ErrNotFound)
}

func TestDuplicate(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	name, err := s.Duplicate("show.csv", "show-copy")
	require.NoError(t, err)
	assert.Equal(t, "show-copy.csv", name)

	orig, err := s.Load("show.csv")
	require.NoError(t, err)
	dup, err := s.Load(name)
	require.NoError(t, err)
	assert.Equal(t, orig.Rows, dup.Rows)
}

func TestDuplicate_AlreadyExists(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)
	writeFile(t, dir, "taken.csv", "product\nother\n")

	_, err := s.Duplicate("show.csv", "taken.csv")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	data, err := os.ReadFile(filepath.Join(dir, "taken.csv"))
	require.NoError(t, err)
	assert.Equal(t, "product\nother\n", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "show.csv"))
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))
}

func TestDuplicate_CaseSensitiveCollision(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	_, err := s.Duplicate("show.csv", "show.csv")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDuplicateCollection_IsDeepCopy(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "show.csv", sampleCSV)

	c, err := s.Load("show.csv")
	require.NoError(t, err)
	_, err = s.DuplicateCollection(c, "dup.csv")
	require.NoError(t, err)

	c.Rows[0][ColumnPresale] = "mutated"
	dup, err := s.Load("dup.csv")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", dup.Rows[0][ColumnPresale])
}

func TestMerge(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.csv", "product,presale\nA1,p1\nA2,p2\n")
	writeFile(t, dir, "b.csv", "product,presale\nB1,p3\n")

	name, err := s.Merge([]string{"a.csv", "b.csv"}, "c")
	require.NoError(t, err)
	assert.Equal(t, "c.csv", name)

	c, err := s.Load("c.csv")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"A1", "A2", "B1"}, []string{c.Rows[0]["product"], c.Rows[1]["product"], c.Rows[2]["product"]})
}

func TestMerge_ReverseOrder(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.csv", "product\nA1\n")
	writeFile(t, dir, "b.csv", "product\nB1\nB2\n")

	_, err := s.Merge([]string{"b.csv", "a.csv"}, "c.csv")
	require.NoError(t, err)
	c, err := s.Load("c.csv")
	require.NoError(t, err)
	assert.Equal(t, "B1", c.Rows[0]["product"])
	assert.Equal(t, "A1", c.Rows[2]["product"])
}

func TestMerge_DivergentColumnsUnion(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.csv", "product,presale\nA1,p1\n")
	writeFile(t, dir, "b.csv", "price_range,product\n10-20,B1\n")

	_, err := s.Merge([]string{"a.csv", "b.csv"}, "c.csv")
	require.NoError(t, err)

	c, err := s.Load("c.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "presale", "price_range"}, c.Columns)
	assert.Equal(t, Row{"product": "A1", "presale": "p1", "price_range": ""}, c.Rows[0])
	assert.Equal(t, Row{"product": "B1", "presale": "", "price_range": "10-20"}, c.Rows[1])
}

func TestMerge_Errors(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.csv", "product\nA1\n")
	writeFile(t, dir, "b.csv", "product\nB1\n")

	_, err := s.Merge([]string{"a.csv"}, "c.csv")
	assert.ErrorIs(t, err, ErrMergeSources)

	_, err = s.Merge([]string{"a.csv", "b.csv"}, "a.csv")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.Merge([]string{"a.csv", "missing.csv"}, "c.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(filepath.Join(dir, "c.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateFromTemplate(t *testing.T) {
	dir := t.TempDir()
	tplDir := t.TempDir()
	s := New(dir, WithTemplatesDir(tplDir))

	_, err := s.CreateFromTemplate("new", "base.csv")
	assert.ErrorIs(t, err, ErrNoTemplates)

	writeFile(t, tplDir, "base.csv", sampleCSV)
	templates, err := s.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"base.csv"}, templates)

	_, err = s.CreateFromTemplate("new", "other.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	name, err := s.CreateFromTemplate("new", "base.csv")
	require.NoError(t, err)
	assert.Equal(t, "new.csv", name)
	data, err := os.ReadFile(filepath.Join(dir, "new.csv"))
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))

	_, err = s.CreateFromTemplate("new.csv", "base.csv")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRevision(t *testing.T) {
	s, dir := newTestStore(t)
	writeFile(t, dir, "a.csv", "product\nA1\n")

	r1, err := s.Revision("a.csv")
	require.NoError(t, err)
	r2, err := s.Revision("a.csv")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	writeFile(t, dir, "a.csv", "product\nA2\n")
	r3, err := s.Revision("a.csv")
	require.NoError(t, err)
	assert.NotEqual(t, r1, r3)

	_, err = s.Revision("missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeName(t *testing.T) {
	s := New(t.TempDir())
	assert.Equal(t, "a.csv", s.NormalizeName("a"))
	assert.Equal(t, "a.CSV", s.NormalizeName("a.CSV"))
	assert.Equal(t, "a.csv", s.NormalizeName("  a.csv "))
	assert.Equal(t, "", s.NormalizeName(""))
}
