package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// Store owns the ordered tab list of one session. Mutations that cannot be
// resolved are silent no-ops reported through the diagnostics hook.
type Store struct {
	mu       sync.RWMutex
	tabs     []schema.Tab
	session  schema.SessionID
	local    LocalSink
	download DownloadSink
	sink     EventSink
	diag     func(Diagnostic)
	clock    func() time.Time
	logger   pslog.Logger
}

// NewStore constructs a store holding the seed tabs.
func NewStore(deps StoreDeps) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.Session != "" {
		logger = logger.With("session", deps.Session)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	diag := deps.Diagnostics
	if diag == nil {
		diag = logDiagnostics(logger)
	}
	return &Store{
		tabs:     SeedTabs(),
		session:  deps.Session,
		local:    deps.Local,
		download: deps.Download,
		sink:     deps.EventSink,
		diag:     diag,
		clock:    clock,
		logger:   logger,
	}
}

// Session returns the session id the store was created for.
func (s *Store) Session() schema.SessionID {
	return s.session
}

// Seed resets the tab list to the seed tabs.
func (s *Store) Seed() {
	s.mu.Lock()
	s.tabs = SeedTabs()
	s.mu.Unlock()
	s.emit(schema.StoreEvent{Type: schema.StoreEventStateLoaded})
}

// SetFieldValue replaces the value of the field with the given id.
func (s *Store) SetFieldValue(fieldID schema.FieldID, value string) {
	s.mu.Lock()
	found := false
	for ti := range s.tabs {
		for fi := range s.tabs[ti].Fields {
			if s.tabs[ti].Fields[fi].ID == fieldID {
				s.tabs[ti].Fields[fi].Value = value
				found = true
			}
		}
	}
	s.mu.Unlock()
	if !found {
		s.report("set_field_value", schema.ErrFieldNotFound, map[string]any{"field": fieldID})
		return
	}
	s.emit(schema.StoreEvent{Type: schema.StoreEventFieldValue, FieldID: fieldID})
}

// ReorderFields moves the field at oldIndex to newIndex within a tab.
func (s *Store) ReorderFields(tabID schema.TabID, oldIndex, newIndex int) {
	s.mu.Lock()
	idx := s.tabIndexLocked(tabID)
	if idx < 0 {
		s.mu.Unlock()
		s.report("reorder_fields", schema.ErrTabNotFound, map[string]any{"tab": tabID})
		return
	}
	fields := s.tabs[idx].Fields
	if oldIndex < 0 || oldIndex >= len(fields) || newIndex < 0 || newIndex >= len(fields) {
		s.mu.Unlock()
		s.report("reorder_fields", schema.ErrIndexOutOfRange, map[string]any{
			"tab": tabID, "from_index": oldIndex, "to_index": newIndex,
		})
		return
	}
	if oldIndex == newIndex {
		s.mu.Unlock()
		return
	}
	moved := fields[oldIndex]
	fields = append(fields[:oldIndex], fields[oldIndex+1:]...)
	s.tabs[idx].Fields = insertField(fields, newIndex, moved)
	s.mu.Unlock()
	s.emit(schema.StoreEvent{Type: schema.StoreEventFieldsReordered, FieldID: moved.ID, FromTab: tabID, ToTab: tabID})
}

// MoveField removes a field from one tab and inserts it into another at
// newIndex. The index is clamped to the destination bounds.
func (s *Store) MoveField(fieldID schema.FieldID, fromTabID, toTabID schema.TabID, newIndex int) {
	s.mu.Lock()
	fromIdx := s.tabIndexLocked(fromTabID)
	toIdx := s.tabIndexLocked(toTabID)
	if fromIdx < 0 || toIdx < 0 {
		s.mu.Unlock()
		s.report("move_field", schema.ErrTabNotFound, map[string]any{
			"field": fieldID, "from_tab": fromTabID, "to_tab": toTabID,
		})
		return
	}
	pos := fieldIndex(s.tabs[fromIdx].Fields, fieldID)
	if pos < 0 {
		s.mu.Unlock()
		s.report("move_field", schema.ErrFieldNotFound, map[string]any{"field": fieldID, "from_tab": fromTabID})
		return
	}
	field := s.tabs[fromIdx].Fields[pos]
	field.TabID = toTabID
	src := s.tabs[fromIdx].Fields
	s.tabs[fromIdx].Fields = append(src[:pos:pos], src[pos+1:]...)
	s.tabs[toIdx].Fields = insertField(s.tabs[toIdx].Fields, newIndex, field)
	s.mu.Unlock()
	s.emit(schema.StoreEvent{Type: schema.StoreEventFieldMoved, FieldID: fieldID, FromTab: fromTabID, ToTab: toTabID})
}

// Load replaces the tab list with the tabs of a snapshot. Field tab ids are
// re-derived from the containing tab.
func (s *Store) Load(snapshot schema.Snapshot) error {
	tabs := schema.CloneTabs(snapshot.Tabs)
	seenTabs := make(map[schema.TabID]struct{}, len(tabs))
	seenFields := make(map[schema.FieldID]struct{})
	for ti := range tabs {
		if _, dup := seenTabs[tabs[ti].ID]; dup {
			return fmt.Errorf("%w: duplicate tab id %q", schema.ErrInvalidSnapshot, tabs[ti].ID)
		}
		seenTabs[tabs[ti].ID] = struct{}{}
		for fi := range tabs[ti].Fields {
			field := &tabs[ti].Fields[fi]
			if _, dup := seenFields[field.ID]; dup {
				return fmt.Errorf("%w: duplicate field id %q", schema.ErrInvalidSnapshot, field.ID)
			}
			seenFields[field.ID] = struct{}{}
			field.TabID = tabs[ti].ID
			field.Type = schema.NormalizeFieldType(string(field.Type))
		}
	}
	s.mu.Lock()
	s.tabs = tabs
	s.mu.Unlock()
	s.logger.Info("store state loaded", "tabs", len(tabs), "fields", len(seenFields))
	s.emit(schema.StoreEvent{Type: schema.StoreEventStateLoaded})
	return nil
}

// Tabs returns a deep copy of the ordered tab list.
func (s *Store) Tabs() []schema.Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.CloneTabs(s.tabs)
}

// Snapshot captures the current tabs with the store clock.
func (s *Store) Snapshot() schema.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.NewSnapshot(s.tabs, s.clock())
}

// FindField returns the field with the given id.
func (s *Store) FindField(fieldID schema.FieldID) (schema.Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tab := range s.tabs {
		if pos := fieldIndex(tab.Fields, fieldID); pos >= 0 {
			return tab.Fields[pos], true
		}
	}
	return schema.Field{}, false
}

// TabOf returns the id of the tab that holds the field.
func (s *Store) TabOf(fieldID schema.FieldID) (schema.TabID, bool) {
	field, ok := s.FindField(fieldID)
	if !ok {
		return "", false
	}
	return field.TabID, true
}

// FieldIndex returns the position of a field within a tab, or -1.
func (s *Store) FieldIndex(tabID schema.TabID, fieldID schema.FieldID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tabIndexLocked(tabID)
	if idx < 0 {
		return -1
	}
	return fieldIndex(s.tabs[idx].Fields, fieldID)
}

// FieldsIn returns the number of fields in a tab, or -1 when it does not exist.
func (s *Store) FieldsIn(tabID schema.TabID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.tabIndexLocked(tabID)
	if idx < 0 {
		return -1
	}
	return len(s.tabs[idx].Fields)
}

// HasTab reports whether a tab with the id exists.
func (s *Store) HasTab(tabID schema.TabID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tabIndexLocked(tabID) >= 0
}

// FieldCount returns the number of fields across all tabs.
func (s *Store) FieldCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, tab := range s.tabs {
		n += len(tab.Fields)
	}
	return n
}

func (s *Store) tabIndexLocked(tabID schema.TabID) int {
	for i := range s.tabs {
		if s.tabs[i].ID == tabID {
			return i
		}
	}
	return -1
}

func (s *Store) report(op string, err error, attrs map[string]any) {
	if s.diag != nil {
		s.diag(Diagnostic{Op: op, Err: err, Attrs: attrs})
	}
}

func (s *Store) emit(event schema.StoreEvent) {
	if s.sink == nil {
		return
	}
	event.Session = s.session
	s.sink.OnStoreEvent(event)
}

func fieldIndex(fields []schema.Field, fieldID schema.FieldID) int {
	for i := range fields {
		if fields[i].ID == fieldID {
			return i
		}
	}
	return -1
}

func insertField(fields []schema.Field, index int, field schema.Field) []schema.Field {
	if index < 0 {
		index = 0
	}
	if index > len(fields) {
		index = len(fields)
	}
	out := make([]schema.Field, 0, len(fields)+1)
	out = append(out, fields[:index]...)
	out = append(out, field)
	return append(out, fields[index:]...)
}
