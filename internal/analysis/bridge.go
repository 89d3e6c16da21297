package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"pkt.systems/pslog"
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/schema"
)

// Result is what an upload slot shows after an analysis attempt. Err is empty
// on success.
type Result struct {
	TabHeaders []string
	Analysis   string
	Err        string
}

// OK reports whether the analysis succeeded.
func (r Result) OK() bool {
	return r.Err == ""
}

// Slot identifies one upload field in one session.
type Slot struct {
	Session schema.SessionID
	Field   schema.FieldID
}

// Bridge runs analyses for upload slots, one at a time per slot. Sessions
// never share a slot.
type Bridge struct {
	analyzer Analyzer
	log      pslog.Logger
	mu       sync.Mutex
	slots    map[Slot]*semaphore.Weighted
}

// NewBridge constructs a bridge over analyzer.
func NewBridge(analyzer Analyzer, logger pslog.Logger) *Bridge {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bridge{analyzer: analyzer, log: logger, slots: make(map[Slot]*semaphore.Weighted)}
}

// Analyze runs one analysis for slot. A second call for a slot that is still
// running is rejected immediately. Failures are reported in Result.Err.
func (b *Bridge) Analyze(ctx context.Context, slot Slot, image []byte, mime string) Result {
	sem := b.slot(slot)
	if !sem.TryAcquire(1) {
		b.log.Debug("analysis slot busy", "session", slot.Session, "field", slot.Field)
		return Result{TabHeaders: []string{}, Err: schema.ErrAnalysisBusy.Error()}
	}
	defer sem.Release(1)

	resp, err := b.analyzer.AnalyzeImage(ctx, image, mime)
	if err != nil {
		text := errorText(err)
		b.log.Warn("analysis failed", "session", slot.Session, "field", slot.Field, "err", text)
		return Result{TabHeaders: []string{}, Err: text}
	}
	headers := resp.TabHeaders
	if headers == nil {
		headers = []string{}
	}
	return Result{TabHeaders: headers, Analysis: resp.Analysis}
}

func (b *Bridge) slot(key Slot) *semaphore.Weighted {
	b.mu.Lock()
	defer b.mu.Unlock()
	sem, ok := b.slots[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		b.slots[key] = sem
	}
	return sem
}

func errorText(err error) string {
	var respErr *ResponseError
	var transportErr *TransportError
	switch {
	case errors.As(err, &respErr):
		return respErr.Error()
	case errors.As(err, &transportErr):
		return transportErr.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Network error: " + err.Error()
	default:
		body, _ := json.Marshal(ErrorBody(err))
		return fmt.Sprintf("Error: %d - %s", HTTPStatus(err), body)
	}
}

// ApplyResult creates tabs from a successful result and returns the ids added.
func ApplyResult(store *core.Store, result Result) []schema.TabID {
	if !result.OK() || len(result.TabHeaders) == 0 {
		return nil
	}
	return store.CreateTabsFromHeaders(result.TabHeaders)
}
