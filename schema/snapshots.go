package schema

import "time"

const (
	// SnapshotVersion is the format version written into every snapshot.
	SnapshotVersion = "1.0"
	// StorageKey is the local storage key under which snapshots are saved.
	StorageKey = "fieldStoreData"
	// TimestampLayout is ISO-8601 UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Snapshot is the portable save format of a store.
type Snapshot struct {
	Tabs      []Tab  `json:"tabs"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NewSnapshot builds a snapshot of tabs captured at now.
func NewSnapshot(tabs []Tab, now time.Time) Snapshot {
	return Snapshot{
		Tabs:      CloneTabs(tabs),
		Timestamp: FormatTimestamp(now),
		Version:   SnapshotVersion,
	}
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DownloadName returns the export file name for a save made at t.
func DownloadName(t time.Time) string {
	return "field-data-" + t.UTC().Format("2006-01-02") + ".json"
}
