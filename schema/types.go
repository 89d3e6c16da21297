package schema

// TabID identifies a tab. Ids derived from labels are lowercase with
// whitespace runs replaced by a single hyphen.
type TabID string

// TabName is the user-facing name of a tab.
type TabName string

// FieldID identifies a field across the whole store.
type FieldID string

// SessionID identifies a UI session (browser cookie, SSH session or local TUI).
type SessionID string

// FieldType describes how a field value is edited.
type FieldType string

const (
	// FieldText is a plain text input.
	FieldText FieldType = "text"
	// FieldPassword is a masked text input.
	FieldPassword FieldType = "password"
	// FieldFile is an image upload that triggers tab analysis.
	FieldFile FieldType = "file"
)

// Field is a single labeled editable value owned by exactly one tab.
type Field struct {
	ID    FieldID   `json:"id"`
	Label string    `json:"label"`
	Value string    `json:"value"`
	Type  FieldType `json:"type"`
	// TabID always equals the id of the tab whose field list holds the field.
	// It is implied by the containing tab on the wire.
	TabID TabID `json:"-"`
}

// Tab is a named, ordered container of fields.
type Tab struct {
	ID     TabID   `json:"id"`
	Name   TabName `json:"name"`
	Fields []Field `json:"fields"`
}

// Clone returns a deep copy of the tab.
func (t Tab) Clone() Tab {
	out := t
	out.Fields = make([]Field, len(t.Fields))
	copy(out.Fields, t.Fields)
	return out
}

// CloneTabs returns a deep copy of tabs.
func CloneTabs(tabs []Tab) []Tab {
	out := make([]Tab, len(tabs))
	for i, tab := range tabs {
		out[i] = tab.Clone()
	}
	return out
}
