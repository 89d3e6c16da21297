package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabforge"
	"pkt.systems/tabforge/httpapi"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/internal/persist"
	"pkt.systems/tabforge/schema"
	"pkt.systems/tabforge/sshserver"
)

// fixedVision answers every prompt with the same reply.
type fixedVision struct {
	reply string

	mu    sync.Mutex
	calls int
}

func (v *fixedVision) Describe(context.Context, string, []byte, string) (string, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	return v.reply, nil
}

func (v *fixedVision) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type eventRecorder struct {
	mu     sync.Mutex
	events []schema.StoreEvent
}

func (r *eventRecorder) OnStoreEvent(event schema.StoreEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *eventRecorder) Count(kind schema.StoreEventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Type == kind {
			n++
		}
	}
	return n
}

// Sessions returns the distinct sessions that emitted kind, in order.
func (r *eventRecorder) Sessions(kind schema.StoreEventType) []schema.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sessions []schema.SessionID
	seen := make(map[schema.SessionID]bool)
	for _, event := range r.events {
		if event.Type == kind && !seen[event.Session] {
			seen[event.Session] = true
			sessions = append(sessions, event.Session)
		}
	}
	return sessions
}

type testServer struct {
	srv       tabforge.Server
	local     persist.LocalStore
	exports   *persist.DownloadDir
	vision    *fixedVision
	events    *eventRecorder
	httpURL   string
	sshAddr   string
	uploadDir string
}

type serverSetup struct {
	http bool
	ssh  bool
}

func newTestServer(t *testing.T, setup serverSetup) *testServer {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	local, err := persist.OpenLocalStore(ctx, persist.Options{
		Backend:    persist.BackendSQLite,
		SQLitePath: filepath.Join(dir, "tabforge.db"),
	})
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	exports, err := persist.NewDownloadDir(filepath.Join(dir, "exports"), nil)
	if err != nil {
		t.Fatalf("download dir: %v", err)
	}
	vision := &fixedVision{reply: "```json\n[\"Items\", \"Billing\"]\n```"}
	ts := &testServer{
		local:     local,
		exports:   exports,
		vision:    vision,
		events:    &eventRecorder{},
		uploadDir: filepath.Join(dir, "uploads"),
	}

	cfg := tabforge.ServerConfig{HubDepth: 16}
	var opts []tabforge.ServerOption
	if setup.http {
		addr := freeAddr(t)
		cfg.HTTP = httpapi.Config{Addr: addr, SessionCookie: "tabforge_session", SessionTTLHours: 1}
		ts.httpURL = "http://" + addr
		opts = append(opts, tabforge.WithHTTP())
	}
	if setup.ssh {
		ts.sshAddr = freeAddr(t)
		cfg.SSH = sshserver.Config{
			Addr:        ts.sshAddr,
			HostKeyPath: filepath.Join(dir, "ssh_host_key"),
			UploadDir:   ts.uploadDir,
		}
		opts = append(opts, tabforge.WithSSH())
	}

	srv, err := tabforge.New(cfg, tabforge.ServerDeps{
		Analyzer:  analysis.NewService(vision, nil),
		Local:     local,
		Downloads: exports,
		EventSink: ts.events,
	}, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts.srv = srv
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			t.Errorf("stop server: %v", err)
		}
	})
	if setup.http {
		waitForHTTP(t, ts.httpURL+"/api/state", 5*time.Second)
	}
	if setup.ssh {
		waitForTCP(t, ts.sshAddr, 5*time.Second)
	}
	return ts
}

// savedSnapshot returns what the most recently saving session wrote to local
// storage.
func (ts *testServer) savedSnapshot(t *testing.T) schema.Snapshot {
	t.Helper()
	var sessions []schema.SessionID
	waitFor(t, 2*time.Second, "saved event", func() bool {
		sessions = ts.events.Sessions(schema.StoreEventSaved)
		return len(sessions) > 0
	})
	return ts.sessionSnapshot(t, sessions[len(sessions)-1])
}

func (ts *testServer) sessionSnapshot(t *testing.T, session schema.SessionID) schema.Snapshot {
	t.Helper()
	data, err := ts.local.Get(context.Background(), persist.SessionKey(session, schema.StorageKey))
	if err != nil {
		t.Fatalf("read saved snapshot: %v", err)
	}
	snap, err := persist.ValidateSnapshot(data)
	if err != nil {
		t.Fatalf("saved snapshot invalid: %v", err)
	}
	return snap
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForHTTP(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("http server not ready: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func waitForTCP(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("ssh server not ready: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func postJSON(t *testing.T, client *http.Client, url string, body any, target any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	decodeResponse(t, resp, target)
}

func getJSON(t *testing.T, client *http.Client, url string, target any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	decodeResponse(t, resp, target)
}

func decodeResponse(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if target == nil {
		return
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatal(err)
	}
}

func screenshotPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fieldIDs(tabs []schema.Tab, tabID schema.TabID) []schema.FieldID {
	for _, tab := range tabs {
		if tab.ID != tabID {
			continue
		}
		ids := make([]schema.FieldID, 0, len(tab.Fields))
		for _, field := range tab.Fields {
			ids = append(ids, field.ID)
		}
		return ids
	}
	return nil
}

func uiFieldIDs(tabs []schema.UITab, tabID schema.TabID) []schema.FieldID {
	for _, tab := range tabs {
		if tab.ID != tabID {
			continue
		}
		ids := make([]schema.FieldID, 0, len(tab.Fields))
		for _, field := range tab.Fields {
			ids = append(ids, field.ID)
		}
		return ids
	}
	return nil
}

func tabIDs(tabs []schema.Tab) []schema.TabID {
	ids := make([]schema.TabID, 0, len(tabs))
	for _, tab := range tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !ok() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
