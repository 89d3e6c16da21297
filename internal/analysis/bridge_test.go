package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/schema"
)

var profileSlot = Slot{Session: "s1", Field: "profile-image"}

type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAnalyzer) AnalyzeImage(ctx context.Context, _ []byte, _ string) (schema.AnalysisResponse, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return schema.AnalysisResponse{}, ctx.Err()
	}
	return schema.AnalysisResponse{Success: true, TabHeaders: []string{"Items"}, Analysis: `["Items"]`}, nil
}

func TestBridgeSuccess(t *testing.T) {
	bridge := NewBridge(NewService(&fakeProvider{reply: `["Items"]`}, nil), nil)
	result := bridge.Analyze(context.Background(), profileSlot, pngBytes(t), "image/png")
	if !result.OK() || !reflect.DeepEqual(result.TabHeaders, []string{"Items"}) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBridgeRejectsConcurrentSlot(t *testing.T) {
	analyzer := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	bridge := NewBridge(analyzer, nil)
	done := make(chan Result, 1)
	go func() {
		done <- bridge.Analyze(context.Background(), profileSlot, []byte("x"), "image/png")
	}()
	select {
	case <-analyzer.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first analysis did not start")
	}

	busy := bridge.Analyze(context.Background(), profileSlot, []byte("x"), "image/png")
	if busy.Err != schema.ErrAnalysisBusy.Error() || len(busy.TabHeaders) != 0 {
		t.Fatalf("expected busy result, got %+v", busy)
	}

	other := make(chan Result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { other <- bridge.Analyze(ctx, Slot{Session: "s1", Field: "other-slot"}, []byte("x"), "image/png") }()
	cancel()
	if res := <-other; res.Err == schema.ErrAnalysisBusy.Error() {
		t.Fatalf("independent slot should not be busy")
	}

	close(analyzer.release)
	if res := <-done; !res.OK() {
		t.Fatalf("expected first analysis to succeed, got %+v", res)
	}
	again := bridge.Analyze(context.Background(), profileSlot, []byte("x"), "image/png")
	if !again.OK() {
		t.Fatalf("slot should be free again, got %+v", again)
	}
}

func TestBridgeSlotsAreScopedToSession(t *testing.T) {
	analyzer := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	bridge := NewBridge(analyzer, nil)
	first := make(chan Result, 1)
	go func() {
		first <- bridge.Analyze(context.Background(), Slot{Session: "alice", Field: "profile-image"}, []byte("x"), "image/png")
	}()
	select {
	case <-analyzer.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first analysis did not start")
	}

	second := make(chan Result, 1)
	go func() {
		second <- bridge.Analyze(context.Background(), Slot{Session: "bob", Field: "profile-image"}, []byte("x"), "image/png")
	}()
	select {
	case res := <-second:
		t.Fatalf("other session should wait on its own analysis, got %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
	busy := bridge.Analyze(context.Background(), Slot{Session: "alice", Field: "profile-image"}, []byte("x"), "image/png")
	if busy.Err != schema.ErrAnalysisBusy.Error() {
		t.Fatalf("same session slot should be busy, got %+v", busy)
	}

	close(analyzer.release)
	for name, ch := range map[string]chan Result{"alice": first, "bob": second} {
		if res := <-ch; !res.OK() {
			t.Fatalf("%s analysis failed: %+v", name, res)
		}
	}
}

func TestBridgeInProcessErrorText(t *testing.T) {
	bridge := NewBridge(NewService(nil, nil), nil)
	result := bridge.Analyze(context.Background(), profileSlot, pngBytes(t), "image/png")
	if result.Err != `Error: 500 - {"error":"OpenAI API key not configured"}` {
		t.Fatalf("unexpected error text %q", result.Err)
	}
	if len(result.TabHeaders) != 0 {
		t.Fatalf("expected no headers")
	}
}

func TestBridgeRemoteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No image file provided"}`))
	}))
	bridge := NewBridge(NewRemoteClient(srv.URL, srv.Client()), nil)
	result := bridge.Analyze(context.Background(), profileSlot, []byte("x"), "image/png")
	if result.Err != `Error: 400 - {"error":"No image file provided"}` {
		t.Fatalf("unexpected error text %q", result.Err)
	}
	srv.Close()

	result = bridge.Analyze(context.Background(), profileSlot, []byte("x"), "image/png")
	if !strings.HasPrefix(result.Err, "Network error: ") {
		t.Fatalf("expected network error, got %q", result.Err)
	}
}

func TestRemoteClientPostsMultipart(t *testing.T) {
	var gotMime string
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotMime = header.Header.Get("Content-Type")
		gotLen = int(header.Size)
		_, _ = w.Write([]byte(`{"success":true,"tabHeaders":["Items"],"analysis":"[\"Items\"]"}`))
	}))
	defer srv.Close()
	client := NewRemoteClient(srv.URL, srv.Client())
	resp, err := client.AnalyzeImage(context.Background(), []byte("abc"), "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !resp.Success || resp.TabHeaders[0] != "Items" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotMime != "image/png" || gotLen != 3 {
		t.Fatalf("unexpected upload mime=%q len=%d", gotMime, gotLen)
	}
}

func TestApplyResult(t *testing.T) {
	store := core.NewStore(core.StoreDeps{})
	if added := ApplyResult(store, Result{Err: "boom", TabHeaders: []string{"Items"}}); added != nil {
		t.Fatalf("failed result should not create tabs")
	}
	added := ApplyResult(store, Result{TabHeaders: []string{"Items", "Account"}})
	if !reflect.DeepEqual(added, []schema.TabID{"items"}) {
		t.Fatalf("unexpected added %v", added)
	}
}
