package core

import "pkt.systems/tabforge/schema"

// SeedTabs returns the initial tab list of a fresh store.
func SeedTabs() []schema.Tab {
	return []schema.Tab{
		{
			ID:   "account",
			Name: "Account",
			Fields: []schema.Field{
				{ID: "name", Label: "Name", Value: "Pedro Duarte", Type: schema.FieldText, TabID: "account"},
				{ID: "username", Label: "Username", Value: "@peduarte", Type: schema.FieldText, TabID: "account"},
			},
		},
		{
			ID:   "settings",
			Name: "Settings",
			Fields: []schema.Field{
				{ID: "theme", Label: "Theme", Value: "Light", Type: schema.FieldText, TabID: "settings"},
				{ID: "language", Label: "Language", Value: "English", Type: schema.FieldText, TabID: "settings"},
				{ID: "timezone", Label: "Timezone", Value: "UTC", Type: schema.FieldText, TabID: "settings"},
			},
		},
		{
			ID:   "upload",
			Name: "Upload",
			Fields: []schema.Field{
				{ID: "profile-image", Label: "Profile Image", Value: "", Type: schema.FieldFile, TabID: "upload"},
			},
		},
	}
}

// DefaultTab is the tab a fresh session starts on.
const DefaultTab schema.TabID = "account"
