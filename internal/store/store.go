// Package store keeps task collections as CSV files in a single directory.
//
// Every file in the directory is one collection: a header row followed by data
// rows. Saves are atomic (temp file in the same directory, then rename), so a
// failed write never damages the previous version. Nothing here is cached;
// each call goes to disk.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"taskgen/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultExtension is the suffix of task files.
const DefaultExtension = ".csv"

// Store is a CSV collection store rooted at one directory.
type Store struct {
	dir          string
	templatesDir string
	ext          string
}

// Option configures a Store.
type Option func(*Store)

// WithTemplatesDir sets the directory CreateFromTemplate copies from.
func WithTemplatesDir(dir string) Option {
	return func(s *Store) { s.templatesDir = dir }
}

// WithExtension changes the task file suffix (default ".csv").
func WithExtension(ext string) Option {
	return func(s *Store) {
		if ext != "" {
			s.ext = ext
		}
	}
}

// New returns a store over dir. The directory is not created.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, ext: DefaultExtension}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the base directory.
func (s *Store) Dir() string { return s.dir }

// TemplatesDir returns the template directory ("" when unset).
func (s *Store) TemplatesDir() string { return s.templatesDir }

// NormalizeName appends the task extension when name lacks it.
func (s *Store) NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(strings.ToLower(name), strings.ToLower(s.ext)) {
		return name
	}
	return name + s.ext
}

// List returns the task files directly inside the directory, sorted.
// Hidden files (including in-flight save temp files) are skipped.
func (s *Store) List() ([]string, error) {
	names, err := listFiles(s.dir, s.ext)
	if err != nil {
		return nil, opError("list", "", ErrIO, err)
	}
	return names, nil
}

// ListTemplates returns the template files available to CreateFromTemplate.
func (s *Store) ListTemplates() ([]string, error) {
	if s.templatesDir == "" {
		return nil, nil
	}
	names, err := listFiles(s.templatesDir, s.ext)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, opError("templates", "", ErrIO, err)
	}
	return names, nil
}

// Exists reports whether name is a listed task (exact, case-sensitive match).
func (s *Store) Exists(name string) (bool, error) {
	names, err := s.List()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// Load parses a task file.
func (s *Store) Load(name string) (*Collection, error) {
	path, err := s.path("load", name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, opError("load", name, ErrNotFound, nil)
		}
		return nil, opError("load", name, ErrIO, err)
	}
	defer f.Close()

	c, err := decode(name, f)
	if err != nil {
		logging.StoreWarn("load %s: %v", name, err)
		return nil, opError("load", name, ErrParse, err)
	}
	logging.StoreDebug("loaded %s: %d rows, columns=%v", name, c.Len(), c.Columns)
	return c, nil
}

// Save atomically replaces the file for name with the collection contents.
func (s *Store) Save(name string, c *Collection) error {
	if c == nil {
		return opError("save", name, ErrIO, errors.New("nil collection"))
	}
	var buf bytes.Buffer
	if err := encode(&buf, c); err != nil {
		return opError("save", name, ErrIO, err)
	}
	if err := s.writeAtomic("save", name, buf.Bytes()); err != nil {
		return err
	}
	logging.Store("saved %s (%d rows)", name, c.Len())
	return nil
}

// Delete removes the file for name.
func (s *Store) Delete(name string) error {
	path, err := s.path("delete", name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opError("delete", name, ErrNotFound, nil)
		}
		return opError("delete", name, ErrIO, err)
	}
	logging.Store("deleted %s", name)
	return nil
}

// Duplicate copies the on-disk task name to newName and returns the final
// name (with the extension appended if it was missing).
func (s *Store) Duplicate(name, newName string) (string, error) {
	c, err := s.Load(name)
	if err != nil {
		return "", err
	}
	return s.DuplicateCollection(c, newName)
}

// DuplicateCollection saves a deep copy of c under newName.
func (s *Store) DuplicateCollection(c *Collection, newName string) (string, error) {
	newName = s.NormalizeName(newName)
	if err := s.checkFree("duplicate", newName); err != nil {
		return "", err
	}
	dup := c.Clone()
	dup.Name = newName
	if err := s.Save(newName, dup); err != nil {
		return "", err
	}
	logging.Store("duplicated %s as %s", c.Name, newName)
	return newName, nil
}

// Merge concatenates the named tasks, in order, into a new task.
// Sources with different headers are merged on the union of their columns.
// The merge is not atomic across files: sources are only read, and the new
// file is written once at the end.
func (s *Store) Merge(names []string, newName string) (string, error) {
	if len(names) < 2 {
		return "", opError("merge", newName, ErrMergeSources, fmt.Errorf("got %d", len(names)))
	}
	newName = s.NormalizeName(newName)
	if err := s.checkFree("merge", newName); err != nil {
		return "", err
	}

	parts := make([]*Collection, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			c, err := s.Load(name)
			if err != nil {
				return err
			}
			parts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	merged := Concat(newName, parts...)
	if err := s.Save(newName, merged); err != nil {
		return "", err
	}
	logging.Store("merged %v into %s (%d rows)", names, newName, merged.Len())
	return newName, nil
}

// CreateFromTemplate copies template byte-for-byte into a new task.
func (s *Store) CreateFromTemplate(name, template string) (string, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return "", err
	}
	if len(templates) == 0 {
		return "", opError("create", name, ErrNoTemplates, nil)
	}
	found := false
	for _, t := range templates {
		if t == template {
			found = true
			break
		}
	}
	if !found {
		return "", opError("create", template, ErrNotFound, fmt.Errorf("available: %s", strings.Join(templates, ", ")))
	}

	name = s.NormalizeName(name)
	if err := s.checkFree("create", name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.templatesDir, template))
	if err != nil {
		return "", opError("create", template, ErrIO, err)
	}
	if err := s.writeAtomic("create", name, data); err != nil {
		return "", err
	}
	logging.Store("created %s from template %s", name, template)
	return name, nil
}

// Revision returns a content hash of the file, used to tell whether the file
// on disk still matches what a session loaded.
func (s *Store) Revision(name string) (string, error) {
	path, err := s.path("revision", name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", opError("revision", name, ErrNotFound, nil)
		}
		return "", opError("revision", name, ErrIO, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Store) path(op, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", opError(op, name, ErrInvalidName, nil)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *Store) checkFree(op, name string) error {
	if _, err := s.path(op, name); err != nil {
		return err
	}
	exists, err := s.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return opError(op, name, ErrAlreadyExists, nil)
	}
	return nil
}

// writeAtomic writes data to a hidden temp file next to the target and renames
// it into place. The temp file is removed on any failure.
func (s *Store) writeAtomic(op, name string, data []byte) (err error) {
	path, err := s.path(op, name)
	if err != nil {
		return err
	}
	tmpPath := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return opError(op, name, ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
			logging.StoreError("%s %s failed: %v", op, name, err)
		}
	}()

	if _, werr := f.Write(data); werr != nil {
		f.Close()
		return opError(op, name, ErrIO, werr)
	}
	if serr := f.Sync(); serr != nil {
		f.Close()
		return opError(op, name, ErrIO, serr)
	}
	if cerr := f.Close(); cerr != nil {
		return opError(op, name, ErrIO, cerr)
	}
	if info, serr := os.Stat(path); serr == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	}
	if rerr := os.Rename(tmpPath, path); rerr != nil {
		return opError(op, name, ErrIO, rerr)
	}
	return nil
}

func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ext = strings.ToLower(ext)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), ext) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// decode reads a header plus rows. Every row must have as many fields as the
// header. Textual NaN cells (as written by pandas) read as empty.
func decode(name string, r io.Reader) (*Collection, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
	}

	c := NewCollection(name, header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = normalizeCell(rec[i])
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

func encode(w io.Writer, c *Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.Columns); err != nil {
		return err
	}
	for i := range c.Rows {
		if err := cw.Write(c.record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func normalizeCell(v string) string {
	if v == "NaN" || v == "nan" {
		return ""
	}
	return v
}
