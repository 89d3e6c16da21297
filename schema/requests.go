package schema

// Field edits.

// SetFieldValueRequest replaces a field value.
type SetFieldValueRequest struct {
	FieldID FieldID `json:"fieldId"`
	Value   string  `json:"value"`
}

// ReorderFieldsRequest moves a field within a tab by position.
type ReorderFieldsRequest struct {
	TabID    TabID `json:"tabId"`
	OldIndex int   `json:"oldIndex"`
	NewIndex int   `json:"newIndex"`
}

// MoveFieldRequest moves a field to another tab.
type MoveFieldRequest struct {
	FieldID   FieldID `json:"fieldId"`
	FromTabID TabID   `json:"fromTabId"`
	ToTabID   TabID   `json:"toTabId"`
	NewIndex  int     `json:"newIndex"`
}

// Tabs.

// SelectTabRequest makes a tab current.
type SelectTabRequest struct {
	TabID TabID `json:"tabId"`
}

// CreateTabsRequest adds tabs from header labels.
type CreateTabsRequest struct {
	Headers []string `json:"headers"`
}

// CreateTabsResponse lists the tabs actually added.
type CreateTabsResponse struct {
	Added []TabID `json:"added"`
}

// Gestures.

// GestureRequest carries a drag phase. TargetID is a tab id, a field id or empty.
type GestureRequest struct {
	ItemID   FieldID `json:"itemId"`
	TargetID string  `json:"targetId,omitempty"`
}
