package session

import "taskgen/internal/filter"

// FieldValue is one editable field and its current draft.
type FieldValue struct {
	Name  string
	Value string
}

// View is a copy of everything the presentation layer draws. It shares no
// memory with the session.
type View struct {
	State         State
	Name          string
	Listing       []string
	Groups        []string
	ActiveGroup   string
	Fields        []FieldValue
	FilterRows    []filter.Pair
	Stale         bool
	RemovedOnDisk bool
	Message       string
}

// Open reports whether a task is loaded.
func (v View) Open() bool { return v.State != StateEmpty }

// Dirty reports unsaved drafts.
func (v View) Dirty() bool { return v.State == StateEditing }

// Snapshot captures the current session for rendering.
func (s *Session) Snapshot() View {
	v := View{
		State:         s.state,
		Name:          s.name,
		Listing:       s.Listing(),
		Groups:        s.Groups(),
		ActiveGroup:   s.ActiveGroup(),
		Stale:         s.stale,
		RemovedOnDisk: s.removedOnDisk,
		Message:       s.message,
	}
	if g := s.activeGroup(); g != nil {
		v.Fields = make([]FieldValue, len(s.fields))
		for i, f := range s.fields {
			v.Fields[i] = FieldValue{Name: f, Value: g.drafts[f]}
		}
		v.FilterRows = g.table.Rows()
	}
	return v
}
