// Package session keeps the editable view of one open task consistent with
// the task directory.
//
// A Session owns the loaded collection, the product groups derived from it and
// a draft of every editable field per group. Drafts are only written back on
// Save; Cancel throws them away by reloading from disk. Directory events
// refresh the listing and raise flags on the open task, but never overwrite
// what the user is typing.
//
// A Session is driven from a single goroutine (the UI update loop or a CLI
// command) and does no locking of its own.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskgen/internal/filter"
	"taskgen/internal/logging"
	"taskgen/internal/store"
	"taskgen/internal/watcher"

	"github.com/google/uuid"
)

var (
	ErrDeclined     = errors.New("delete declined")
	ErrNoSession    = errors.New("no task open")
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownGroup = errors.New("unknown product group")
)

// State is the lifecycle position of a session.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the subset of *store.Store a session needs.
type Store interface {
	List() ([]string, error)
	ListTemplates() ([]string, error)
	Load(name string) (*store.Collection, error)
	Save(name string, c *store.Collection) error
	Delete(name string) error
	DuplicateCollection(c *store.Collection, newName string) (string, error)
	Merge(names []string, newName string) (string, error)
	CreateFromTemplate(name, template string) (string, error)
	Revision(name string) (string, error)
}

// Option configures a Session.
type Option func(*Session)

// WithConfirmer sets who answers the delete prompts. Without one every
// delete is declined.
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) {
		if c != nil {
			s.confirmer = c
		}
	}
}

// WithFields overrides the editable field set. extra_filter keeps its filter
// table behaviour whenever it is included.
func WithFields(fields []string) Option {
	return func(s *Session) {
		if len(fields) > 0 {
			s.fields = append([]string(nil), fields...)
		}
	}
}

// Session is the edit-session reconciler.
type Session struct {
	st        Store
	confirmer Confirmer
	fields    []string

	listing []string

	state    State
	id       string
	name     string
	coll     *store.Collection
	revision string
	groups   []*group
	active   int

	stale         bool
	removedOnDisk bool
	message       string
}

// New returns an empty session over st.
func New(st Store, opts ...Option) *Session {
	s := &Session{
		st:        st,
		confirmer: declineAll{},
		fields:    append([]string(nil), store.Fields...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Name returns the open task, or "".
func (s *Session) Name() string { return s.name }

// Stale reports that the open file changed on disk since it was loaded or saved.
func (s *Session) Stale() bool { return s.stale }

// RemovedOnDisk reports that the open file was deleted or moved away.
func (s *Session) RemovedOnDisk() bool { return s.removedOnDisk }

// Message returns the last status or error message.
func (s *Session) Message() string { return s.message }

// Fields returns the editable field names in display order.
func (s *Session) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Refresh reloads the task listing. On failure the previous listing is kept.
func (s *Session) Refresh() error {
	names, err := s.st.List()
	if err != nil {
		s.fail(err)
		return err
	}
	s.listing = names
	return nil
}

// Listing returns the last loaded task names.
func (s *Session) Listing() []string {
	return append([]string(nil), s.listing...)
}

// Templates returns the names CreateFromTemplate accepts.
func (s *Session) Templates() ([]string, error) {
	return s.st.ListTemplates()
}

// Select opens name. Selecting the task that is already open does nothing, so
// in-progress drafts are not lost to a stray click.
func (s *Session) Select(name string) error {
	if s.state != StateEmpty && name == s.name {
		return nil
	}

	c, err := s.st.Load(name)
	if err != nil {
		s.reset()
		s.fail(err)
		return err
	}
	rev, err := s.st.Revision(name)
	if err != nil {
		logging.SessionWarn("revision of %s: %v", name, err)
	}

	s.reset()
	s.id = uuid.NewString()
	s.name = name
	s.coll = c
	s.revision = rev
	s.groups = buildGroups(c, s.fields)
	s.state = StateLoaded
	s.message = fmt.Sprintf("Opened %s", name)

	logging.Session("open %s: %d rows, %d groups", name, c.Len(), len(s.groups))
	logging.AuditWithSession(s.id).Transition(logging.AuditSessionOpen, name, "")
	return nil
}

// Deselect closes the open task without saving.
func (s *Session) Deselect() {
	if s.state == StateEmpty {
		return
	}
	logging.AuditWithSession(s.id).Transition(logging.AuditSessionClose, s.name, s.state.String())
	s.reset()
}

func (s *Session) reset() {
	s.state = StateEmpty
	s.id = ""
	s.name = ""
	s.coll = nil
	s.revision = ""
	s.groups = nil
	s.active = 0
	s.stale = false
	s.removedOnDisk = false
}

// Groups returns the product group keys in first-seen order. A task without
// any product has one group with the empty key.
func (s *Session) Groups() []string {
	keys := make([]string, len(s.groups))
	for i, g := range s.groups {
		keys[i] = g.key
	}
	return keys
}

// ActiveGroup returns the key of the group being edited.
func (s *Session) ActiveGroup() string {
	if s.state == StateEmpty || len(s.groups) == 0 {
		return ""
	}
	return s.groups[s.active].key
}

// SwitchGroup makes key the active group. Drafts of every group are kept and
// nothing is committed.
func (s *Session) SwitchGroup(key string) error {
	if s.state == StateEmpty {
		return ErrNoSession
	}
	for i, g := range s.groups {
		if g.key == key {
			s.active = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownGroup, key)
}

// CycleGroup moves the active group by delta, wrapping around.
func (s *Session) CycleGroup(delta int) {
	if s.state == StateEmpty || len(s.groups) == 0 {
		return
	}
	n := len(s.groups)
	s.active = ((s.active+delta)%n + n) % n
}

// Field returns the active group's draft of field.
func (s *Session) Field(field string) string {
	g := s.activeGroup()
	if g == nil {
		return ""
	}
	return g.drafts[field]
}

// EditField replaces the active group's draft of field. Editing the extra
// filter also rebuilds its table, but only when the text decodes to at least
// one pair, so a half-typed value does not wipe the table.
func (s *Session) EditField(field, value string) error {
	g := s.activeGroup()
	if g == nil {
		return ErrNoSession
	}
	if !s.hasField(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	g.drafts[field] = value
	if field == store.ColumnExtraFilter {
		if pairs := filter.Decode(value); len(pairs) > 0 {
			g.table.Replace(pairs)
		}
	}
	s.state = StateEditing
	return nil
}

// FilterRows returns the active group's filter table rows.
func (s *Session) FilterRows() []filter.Pair {
	g := s.activeGroup()
	if g == nil {
		return nil
	}
	return g.table.Rows()
}

// FilterTable returns a detached copy of the active group's filter table, or
// nil when nothing is open. Edits go through SetFilterRow and friends.
func (s *Session) FilterTable() *filter.Table {
	g := s.activeGroup()
	if g == nil {
		return nil
	}
	return filter.NewTable(g.table.Rows())
}

// SetFilterRow edits row i of the filter table.
func (s *Session) SetFilterRow(i int, section, price string) error {
	return s.editTable(func(t *filter.Table) error { return t.Set(i, section, price) })
}

// AddFilterRow appends an empty row and returns its index.
func (s *Session) AddFilterRow() (int, error) {
	idx := -1
	err := s.editTable(func(t *filter.Table) error {
		idx = t.Add()
		return nil
	})
	return idx, err
}

// DeleteFilterRow removes row i of the filter table.
func (s *Session) DeleteFilterRow(i int) error {
	return s.editTable(func(t *filter.Table) error { return t.Delete(i) })
}

// editTable applies fn to the active filter table and rewrites the
// extra_filter draft from the result.
func (s *Session) editTable(fn func(*filter.Table) error) error {
	g := s.activeGroup()
	if g == nil {
		return ErrNoSession
	}
	if !s.hasField(store.ColumnExtraFilter) {
		return fmt.Errorf("%w: %q", ErrUnknownField, store.ColumnExtraFilter)
	}
	if err := fn(g.table); err != nil {
		return err
	}
	g.drafts[store.ColumnExtraFilter] = g.table.Text()
	s.state = StateEditing
	return nil
}

// Save commits the active group's drafts into the collection and writes it.
// On failure the collection is rolled back, the drafts are kept and the
// session stays where it was.
func (s *Session) Save() error {
	g := s.activeGroup()
	if g == nil {
		return ErrNoSession
	}
	start := time.Now()
	audit := logging.AuditWithSession(s.id)

	snapshot := s.coll.Clone()
	rows := s.commit(g)

	if err := s.st.Save(s.name, s.coll); err != nil {
		s.coll = snapshot
		s.fail(err)
		audit.Operation(logging.AuditTaskSave, s.name, start, err)
		return err
	}

	rev, err := s.st.Revision(s.name)
	if err != nil {
		logging.SessionWarn("revision of %s after save: %v", s.name, err)
	}
	s.revision = rev
	s.stale = false
	s.removedOnDisk = false
	s.state = StateLoaded
	if len(s.groups) > 1 {
		g.drafts[store.ColumnProduct] = g.key
	} else {
		g.key = g.drafts[store.ColumnProduct]
	}
	s.message = fmt.Sprintf("Saved %s (%d rows updated)", s.name, rows)

	logging.Session("saved %s group %q: %d rows", s.name, g.key, rows)
	audit.Operation(logging.AuditTaskSave, s.name, start, nil)
	return nil
}

// commit writes the drafts of g into the collection and returns the number of
// rows touched. With a single group every field, product included, is written
// to the whole column. With several groups the product column is the group
// key itself and is left alone.
func (s *Session) commit(g *group) int {
	n := 0
	whole := len(s.groups) == 1
	for _, f := range s.fields {
		v := g.drafts[f]
		if whole {
			n = s.coll.SetColumn(f, v)
			continue
		}
		if f == store.ColumnProduct {
			continue
		}
		n = s.coll.UpdateWhere(store.ColumnProduct, g.key, f, v)
	}
	return n
}

// Cancel discards every draft and reloads the task from disk. The active
// group is kept when it still exists.
func (s *Session) Cancel() error {
	if s.state == StateEmpty {
		return ErrNoSession
	}
	c, err := s.st.Load(s.name)
	if err != nil {
		s.fail(err)
		return err
	}
	rev, err := s.st.Revision(s.name)
	if err != nil {
		logging.SessionWarn("revision of %s: %v", s.name, err)
	}

	key := s.ActiveGroup()
	s.coll = c
	s.revision = rev
	s.groups = buildGroups(c, s.fields)
	s.active = 0
	for i, g := range s.groups {
		if g.key == key {
			s.active = i
			break
		}
	}
	s.state = StateLoaded
	s.stale = false
	s.removedOnDisk = false
	s.message = fmt.Sprintf("Reloaded %s", s.name)

	logging.Session("cancel %s: reloaded", s.name)
	logging.AuditWithSession(s.id).Transition(logging.AuditSessionCancel, s.name, "")
	return nil
}

// Delete removes the open task after two separate confirmations.
func (s *Session) Delete(ctx context.Context) error {
	if s.state == StateEmpty {
		return ErrNoSession
	}
	name := s.name
	for _, p := range DeletePrompts(name) {
		ok, err := s.confirmer.Confirm(ctx, p)
		if err != nil {
			return fmt.Errorf("confirm delete: %w", err)
		}
		if !ok {
			s.message = "Delete cancelled"
			return ErrDeclined
		}
	}

	start := time.Now()
	audit := logging.AuditWithSession(s.id)
	if err := s.st.Delete(name); err != nil {
		s.fail(err)
		audit.Operation(logging.AuditTaskDelete, name, start, err)
		return err
	}
	audit.Operation(logging.AuditTaskDelete, name, start, nil)

	s.reset()
	_ = s.Refresh()
	s.message = fmt.Sprintf("Deleted %s", name)
	logging.Session("deleted %s", name)
	return nil
}

// Duplicate saves a copy of the open collection (as last saved or loaded, not
// the unsaved drafts) under newName and opens the copy.
func (s *Session) Duplicate(newName string) (string, error) {
	if s.state == StateEmpty {
		return "", ErrNoSession
	}
	start := time.Now()
	name, err := s.st.DuplicateCollection(s.coll, newName)
	logging.AuditWithSession(s.id).Operation(logging.AuditTaskDuplicate, newName, start, err)
	if err != nil {
		s.fail(err)
		return "", err
	}
	return name, s.openCreated(name)
}

// Merge concatenates names into newName and opens the result.
func (s *Session) Merge(names []string, newName string) (string, error) {
	start := time.Now()
	name, err := s.st.Merge(names, newName)
	logging.AuditWithSession(s.id).Operation(logging.AuditTaskMerge, newName, start, err)
	if err != nil {
		s.fail(err)
		return "", err
	}
	return name, s.openCreated(name)
}

// Create copies template into a new task. The open task stays open.
func (s *Session) Create(name, template string) (string, error) {
	start := time.Now()
	final, err := s.st.CreateFromTemplate(name, template)
	logging.Audit().Operation(logging.AuditTaskCreate, name, start, err)
	if err != nil {
		s.fail(err)
		return "", err
	}
	_ = s.Refresh()
	s.message = fmt.Sprintf("Created %s from %s", final, template)
	return final, nil
}

func (s *Session) openCreated(name string) error {
	_ = s.Refresh()
	if err := s.Select(name); err != nil {
		return err
	}
	s.message = fmt.Sprintf("Created %s", name)
	return nil
}

// HandleEvent applies one directory change. The listing is refreshed unless
// the change was an in-place write. The open task only gets its flags updated,
// never its field values.
func (s *Session) HandleEvent(ev watcher.Event) {
	if ev.Kind != watcher.Modified {
		_ = s.Refresh()
	}
	if s.state == StateEmpty || ev.Name() != s.name {
		return
	}

	switch ev.Kind {
	case watcher.Deleted, watcher.Moved:
		s.removedOnDisk = true
		s.message = fmt.Sprintf("%s was removed on disk", s.name)
	case watcher.Created, watcher.Modified:
		rev, err := s.st.Revision(s.name)
		if err != nil {
			return
		}
		s.removedOnDisk = false
		if rev != s.revision {
			s.stale = true
			s.message = fmt.Sprintf("%s changed on disk", s.name)
		}
	default:
		return
	}
	logging.SessionDebug("event %s on open task %s: stale=%v removed=%v", ev.Kind, s.name, s.stale, s.removedOnDisk)
	logging.AuditWithSession(s.id).Transition(logging.AuditExternalChange, s.name, ev.Kind.String())
}

func (s *Session) activeGroup() *group {
	if s.state == StateEmpty || len(s.groups) == 0 {
		return nil
	}
	return s.groups[s.active]
}

func (s *Session) hasField(field string) bool {
	for _, f := range s.fields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Session) fail(err error) {
	s.message = err.Error()
	logging.SessionError("%v", err)
}
