package core

import (
	"fmt"
	"strings"

	"pkt.systems/tabforge/schema"
)

// fieldsPerGeneratedTab is the number of placeholder fields a generated tab gets.
const fieldsPerGeneratedTab = 3

// generatedFieldLabels is the label pool for tabs created from headers. Each
// tab draws consecutive labels starting at (position*3) mod len.
var generatedFieldLabels = [...]string{
	"Primary Identifier", "Status Code", "Reference Number",
	"Creation Date", "Last Modified", "Priority Level",
	"Category Type", "Department Code", "Location ID",
	"Contact Person", "Phone Number", "Email Address",
	"Budget Amount", "Cost Center", "Approval Status",
	"Document Type", "File Path", "Version Number",
	"User Access", "Permission Level", "Security Group",
	"System Log", "Error Code", "Debug Info",
}

// CreateTabsFromHeaders appends one tab per label whose derived id is not yet
// present and returns the ids of the tabs it added.
func (s *Store) CreateTabsFromHeaders(labels []string) []schema.TabID {
	s.mu.Lock()
	seen := make(map[schema.TabID]struct{}, len(s.tabs)+len(labels))
	for _, tab := range s.tabs {
		seen[tab.ID] = struct{}{}
	}
	var added []schema.TabID
	for position, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		id := schema.TabIDFromLabel(label)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.tabs = append(s.tabs, generatedTab(id, label, position))
		added = append(added, id)
	}
	s.mu.Unlock()
	if len(added) == 0 {
		return nil
	}
	s.logger.Info("store tabs created", "tabs", added)
	s.emit(schema.StoreEvent{Type: schema.StoreEventTabsCreated, TabIDs: append([]schema.TabID(nil), added...)})
	return added
}

func generatedTab(id schema.TabID, label string, position int) schema.Tab {
	start := (position * fieldsPerGeneratedTab) % len(generatedFieldLabels)
	fields := make([]schema.Field, fieldsPerGeneratedTab)
	for i := range fields {
		fields[i] = schema.Field{
			ID:    schema.FieldID(fmt.Sprintf("%s-field-%d", id, i)),
			Label: generatedFieldLabels[(start+i)%len(generatedFieldLabels)],
			Type:  schema.FieldText,
			TabID: id,
		}
	}
	return schema.Tab{ID: id, Name: schema.TabName(label), Fields: fields}
}
