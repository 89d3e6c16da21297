package schema

// StoreEventType names a store mutation.
type StoreEventType string

const (
	// StoreEventFieldValue indicates a field value changed.
	StoreEventFieldValue StoreEventType = "field_value"
	// StoreEventFieldsReordered indicates fields moved within a tab.
	StoreEventFieldsReordered StoreEventType = "fields_reordered"
	// StoreEventFieldMoved indicates a field moved between tabs.
	StoreEventFieldMoved StoreEventType = "field_moved"
	// StoreEventTabsCreated indicates tabs were added from headers.
	StoreEventTabsCreated StoreEventType = "tabs_created"
	// StoreEventStateLoaded indicates the tab list was replaced from a snapshot.
	StoreEventStateLoaded StoreEventType = "state_loaded"
	// StoreEventSaved indicates a save completed (possibly with sink errors).
	StoreEventSaved StoreEventType = "saved"
	// StoreEventTabSelected indicates the current tab changed.
	StoreEventTabSelected StoreEventType = "tab_selected"
)

// StoreEvent describes a completed mutation for UI subscribers.
type StoreEvent struct {
	Type    StoreEventType `json:"type"`
	Session SessionID      `json:"session,omitempty"`
	FieldID FieldID        `json:"fieldId,omitempty"`
	FromTab TabID          `json:"fromTab,omitempty"`
	ToTab   TabID          `json:"toTab,omitempty"`
	TabIDs  []TabID        `json:"tabIds,omitempty"`
	Error   string         `json:"error,omitempty"`
}
