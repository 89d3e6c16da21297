package schema

// InteractionAction is the phase of a drag gesture.
type InteractionAction string

const (
	// ActionStart marks the beginning of a drag.
	ActionStart InteractionAction = "start"
	// ActionOver marks a hover during a drag.
	ActionOver InteractionAction = "over"
	// ActionEnd marks a drop.
	ActionEnd InteractionAction = "end"
)

// Drop result names recorded in the interaction log details.
const (
	DropSnapToList      = "snap_to_list"
	DropReorder         = "reorder"
	DropMoveBetweenTabs = "move_between_tabs"
)

// Over target kinds recorded in the interaction log details.
const (
	OverTabButton = "tab_button"
	OverField     = "field"
	OverNone      = "none"
)

// Interaction is one entry of the append-only gesture log.
type Interaction struct {
	ID        string            `json:"id"`
	Action    InteractionAction `json:"action"`
	FieldID   FieldID           `json:"fieldId"`
	FromTab   TabID             `json:"fromTab,omitempty"`
	ToTab     TabID             `json:"toTab,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Details   map[string]any    `json:"details,omitempty"`
}

// DragState is the live state of the current gesture.
type DragState struct {
	IsDragging  bool    `json:"isDragging"`
	ActiveID    FieldID `json:"activeId"`
	DragOverTab TabID   `json:"dragOverTab"`
}

// Position is a layout coordinate in pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TabButton is the layout entry for one tab button.
type TabButton struct {
	ID       TabID    `json:"id"`
	IsActive bool     `json:"isActive"`
	Position Position `json:"position"`
}

// UILayout groups layout information.
type UILayout struct {
	TabButtons []TabButton `json:"tabButtons"`
}

// UIView is the view part of the UI state document.
type UIView struct {
	CurrentTab TabID     `json:"currentTab"`
	DragState  DragState `json:"dragState"`
	Layout     UILayout  `json:"layout"`
}

// UIField is a field with its position in the tab.
type UIField struct {
	ID    FieldID   `json:"id"`
	Label string    `json:"label"`
	Value string    `json:"value"`
	Type  FieldType `json:"type"`
	Order int       `json:"order"`
}

// UITab is a tab as seen by the UI state document.
type UITab struct {
	ID       TabID     `json:"id"`
	Name     TabName   `json:"name"`
	IsActive bool      `json:"isActive"`
	Fields   []UIField `json:"fields"`
}

// UIMetadata carries bookkeeping for the UI state document.
type UIMetadata struct {
	LastUpdated       int64 `json:"lastUpdated"`
	TotalInteractions int   `json:"totalInteractions"`
	SessionDuration   int64 `json:"sessionDuration"`
}

// UIState is the complete UI state document.
type UIState struct {
	UI           UIView        `json:"ui"`
	Tabs         []UITab       `json:"tabs"`
	Interactions []Interaction `json:"interactions"`
	Metadata     UIMetadata    `json:"metadata"`
}
