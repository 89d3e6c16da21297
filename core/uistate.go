package core

import "pkt.systems/tabforge/schema"

// tabButtonSpacing is the horizontal distance between tab buttons in pixels.
const tabButtonSpacing = 200

// UIState returns the complete UI state document of the session.
func (m *Mapper) UIState() schema.UIState {
	tabs := m.store.Tabs()
	now := m.store.clock().UnixMilli()

	m.mu.Lock()
	current := m.currentTab
	drag := schema.DragState{
		IsDragging:  m.activeID != "",
		ActiveID:    m.activeID,
		DragOverTab: m.dragOverTab,
	}
	interactions := cloneInteractions(m.log)
	m.mu.Unlock()

	state := schema.UIState{
		UI: schema.UIView{
			CurrentTab: current,
			DragState:  drag,
			Layout:     schema.UILayout{TabButtons: make([]schema.TabButton, 0, len(tabs))},
		},
		Tabs:         make([]schema.UITab, 0, len(tabs)),
		Interactions: interactions,
		Metadata: schema.UIMetadata{
			LastUpdated:       now,
			TotalInteractions: len(interactions),
		},
	}
	if len(interactions) > 0 {
		state.Metadata.SessionDuration = now - interactions[0].Timestamp
	}
	for i, tab := range tabs {
		active := tab.ID == current
		state.UI.Layout.TabButtons = append(state.UI.Layout.TabButtons, schema.TabButton{
			ID:       tab.ID,
			IsActive: active,
			Position: schema.Position{X: i * tabButtonSpacing},
		})
		view := schema.UITab{ID: tab.ID, Name: tab.Name, IsActive: active, Fields: make([]schema.UIField, len(tab.Fields))}
		for order, field := range tab.Fields {
			view.Fields[order] = schema.UIField{
				ID:    field.ID,
				Label: field.Label,
				Value: field.Value,
				Type:  field.Type,
				Order: order,
			}
		}
		state.Tabs = append(state.Tabs, view)
	}
	return state
}

// CurrentFields returns the fields of the current tab.
func (m *Mapper) CurrentFields() []schema.Field {
	current := m.CurrentTab()
	for _, tab := range m.store.Tabs() {
		if tab.ID == current {
			return tab.Fields
		}
	}
	return nil
}
