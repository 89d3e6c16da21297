package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/tabforge/schema"
)

// SaveResult describes what a save produced.
type SaveResult struct {
	Snapshot     schema.Snapshot
	DownloadName string
	Download     []byte
}

// SaveData writes a snapshot of the store to the local sink under
// schema.StorageKey and to the download sink. The store is never modified.
// Sink failures are reported through diagnostics and returned joined.
func (s *Store) SaveData(ctx context.Context) (SaveResult, error) {
	s.mu.RLock()
	now := s.clock()
	snap := schema.NewSnapshot(s.tabs, now)
	s.mu.RUnlock()

	result := SaveResult{Snapshot: snap, DownloadName: schema.DownloadName(now)}
	compact, err := json.Marshal(snap)
	if err != nil {
		return result, fmt.Errorf("encode snapshot: %w", err)
	}
	indented, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return result, fmt.Errorf("encode snapshot: %w", err)
	}
	result.Download = indented

	var errs []error
	if s.local == nil {
		errs = append(errs, fmt.Errorf("local storage: %w", schema.ErrSinkUnavailable))
	} else if err := s.local.Put(ctx, schema.StorageKey, compact); err != nil {
		errs = append(errs, fmt.Errorf("local storage: %w", err))
	}
	if s.download != nil {
		if err := s.download.Write(ctx, result.DownloadName, indented); err != nil {
			errs = append(errs, fmt.Errorf("download %s: %w", result.DownloadName, err))
		}
	}
	saveErr := errors.Join(errs...)
	event := schema.StoreEvent{Type: schema.StoreEventSaved}
	if saveErr != nil {
		s.report("save_data", saveErr, map[string]any{"download": result.DownloadName})
		s.logger.Warn("store save failed", "err", saveErr, "download", result.DownloadName)
		event.Error = saveErr.Error()
	} else {
		s.logger.Info("store saved", "download", result.DownloadName, "tabs", len(snap.Tabs))
	}
	s.emit(event)
	return result, saveErr
}
