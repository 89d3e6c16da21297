package core

import (
	"sync"

	"github.com/google/uuid"
	"pkt.systems/tabforge/schema"
)

// Mapper turns drag gestures into store mutations and keeps the gesture log.
// One mapper belongs to one store.
type Mapper struct {
	mu          sync.Mutex
	store       *Store
	activeID    schema.FieldID
	currentTab  schema.TabID
	dragOverTab schema.TabID
	log         []schema.Interaction
	newID       func() string
}

// NewMapper constructs a mapper over store with the default tab current.
func NewMapper(store *Store) *Mapper {
	return &Mapper{
		store:      store,
		currentTab: DefaultTab,
		newID:      uuid.NewString,
	}
}

// Store returns the store the mapper drives.
func (m *Mapper) Store() *Store {
	return m.store
}

// CurrentTab returns the tab whose fields are shown.
func (m *Mapper) CurrentTab() schema.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTab
}

// ActiveID returns the field being dragged, or empty.
func (m *Mapper) ActiveID() schema.FieldID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// DragOverTab returns the tab button under the drag, or empty.
func (m *Mapper) DragOverTab() schema.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dragOverTab
}

// Interactions returns a copy of the gesture log.
func (m *Mapper) Interactions() []schema.Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneInteractions(m.log)
}

// SelectTab makes tabID current. Unknown tabs are ignored.
func (m *Mapper) SelectTab(tabID schema.TabID) {
	if !m.store.HasTab(tabID) {
		m.store.report("select_tab", schema.ErrTabNotFound, map[string]any{"tab": tabID})
		return
	}
	m.mu.Lock()
	changed := m.currentTab != tabID
	m.currentTab = tabID
	m.mu.Unlock()
	if changed {
		m.store.emit(schema.StoreEvent{Type: schema.StoreEventTabSelected, ToTab: tabID})
	}
}

// Start begins dragging itemID.
func (m *Mapper) Start(itemID schema.FieldID) {
	m.mu.Lock()
	m.activeID = itemID
	m.appendLocked(schema.ActionStart, itemID, map[string]any{"activeId": itemID})
	m.mu.Unlock()
	m.store.logger.Debug("gesture start", "field", itemID)
}

// Over records a hover. A tab target switches the current tab immediately.
func (m *Mapper) Over(itemID schema.FieldID, targetID string) {
	overType := schema.OverNone
	switch {
	case targetID == "":
	case m.store.HasTab(schema.TabID(targetID)):
		overType = schema.OverTabButton
	default:
		overType = schema.OverField
	}

	m.mu.Lock()
	switched := false
	if overType == schema.OverTabButton {
		tab := schema.TabID(targetID)
		m.dragOverTab = tab
		if m.currentTab != tab {
			m.currentTab = tab
			switched = true
		}
	} else {
		m.dragOverTab = ""
	}
	if !m.coalesceOverLocked(itemID, targetID) {
		m.appendLocked(schema.ActionOver, itemID, map[string]any{
			"activeId": itemID,
			"overId":   targetID,
			"overType": overType,
		})
	}
	current := m.currentTab
	m.mu.Unlock()

	if switched {
		m.store.logger.Debug("gesture hover switched tab", "field", itemID, "tab", current)
		m.store.emit(schema.StoreEvent{Type: schema.StoreEventTabSelected, FieldID: itemID, ToTab: current})
	}
}

// End drops itemID on targetID, which is a tab id, a field id or empty.
func (m *Mapper) End(itemID schema.FieldID, targetID string) {
	m.mu.Lock()
	m.activeID = ""
	m.dragOverTab = ""
	current := m.currentTab
	m.mu.Unlock()

	fromTab, ok := m.store.TabOf(itemID)
	if !ok {
		m.store.report("gesture_end", schema.ErrFieldNotFound, map[string]any{"field": itemID})
		return
	}

	if targetID == "" || m.store.HasTab(schema.TabID(targetID)) {
		if size := m.store.FieldsIn(current); size >= 0 && fromTab != current {
			m.store.MoveField(itemID, fromTab, current, size)
		}
		m.record(schema.ActionEnd, itemID, fromTab, map[string]any{
			"activeId":  itemID,
			"result":    schema.DropSnapToList,
			"targetTab": current,
			"fromTab":   fromTab,
		})
		return
	}

	overID := schema.FieldID(targetID)
	overTab, ok := m.store.TabOf(overID)
	if !ok {
		m.store.report("gesture_end", schema.ErrFieldNotFound, map[string]any{"field": itemID, "target": targetID})
		return
	}
	oldIndex := m.store.FieldIndex(fromTab, itemID)
	newIndex := m.store.FieldIndex(overTab, overID)
	if fromTab == overTab {
		if oldIndex == newIndex {
			return
		}
		m.store.ReorderFields(fromTab, oldIndex, newIndex)
		m.record(schema.ActionEnd, itemID, fromTab, map[string]any{
			"activeId":  itemID,
			"overId":    targetID,
			"result":    schema.DropReorder,
			"tab":       fromTab,
			"fromIndex": oldIndex,
			"toIndex":   newIndex,
		})
		return
	}
	m.store.MoveField(itemID, fromTab, overTab, newIndex)
	m.record(schema.ActionEnd, itemID, fromTab, map[string]any{
		"activeId":  itemID,
		"overId":    targetID,
		"result":    schema.DropMoveBetweenTabs,
		"fromTab":   fromTab,
		"toTab":     overTab,
		"fromIndex": oldIndex,
		"toIndex":   newIndex,
	})
}

func (m *Mapper) record(action schema.InteractionAction, itemID schema.FieldID, fromTab schema.TabID, details map[string]any) {
	m.mu.Lock()
	entry := schema.Interaction{
		ID:        m.newID(),
		Action:    action,
		FieldID:   itemID,
		FromTab:   fromTab,
		ToTab:     m.currentTab,
		Timestamp: m.store.clock().UnixMilli(),
		Details:   details,
	}
	m.log = append(m.log, entry)
	m.mu.Unlock()
	m.store.logger.Debug("gesture end", "field", itemID, "result", details["result"], "from_tab", fromTab)
}

func (m *Mapper) appendLocked(action schema.InteractionAction, itemID schema.FieldID, details map[string]any) {
	fromTab, _ := m.store.TabOf(itemID)
	m.log = append(m.log, schema.Interaction{
		ID:        m.newID(),
		Action:    action,
		FieldID:   itemID,
		FromTab:   fromTab,
		ToTab:     m.currentTab,
		Timestamp: m.store.clock().UnixMilli(),
		Details:   details,
	})
}

// coalesceOverLocked folds a hover into the previous entry when it repeats the
// same field and target.
func (m *Mapper) coalesceOverLocked(itemID schema.FieldID, targetID string) bool {
	if len(m.log) == 0 {
		return false
	}
	last := &m.log[len(m.log)-1]
	if last.Action != schema.ActionOver || last.FieldID != itemID {
		return false
	}
	if overID, _ := last.Details["overId"].(string); overID != targetID {
		return false
	}
	repeats, _ := last.Details["repeats"].(int)
	last.Details["repeats"] = repeats + 1
	last.Timestamp = m.store.clock().UnixMilli()
	last.ToTab = m.currentTab
	return true
}

func cloneInteractions(in []schema.Interaction) []schema.Interaction {
	out := make([]schema.Interaction, len(in))
	for i, entry := range in {
		out[i] = entry
		if entry.Details != nil {
			details := make(map[string]any, len(entry.Details))
			for k, v := range entry.Details {
				details[k] = v
			}
			out[i].Details = details
		}
	}
	return out
}
