package tui

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/schema"
)

type memLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memLocal) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type stubAnalyzer struct {
	resp schema.AnalysisResponse
	err  error
}

func (s stubAnalyzer) AnalyzeImage(context.Context, []byte, string) (schema.AnalysisResponse, error) {
	return s.resp, s.err
}

func newTestModel(t *testing.T, opts Options) *Model {
	t.Helper()
	if opts.Workspace == nil {
		opts.Workspace = core.NewWorkspace(core.StoreDeps{
			Session: "tui-test",
			Local:   &memLocal{},
			Clock:   func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
		})
	}
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.NewRenderer(io.Discard)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = func(string) error { return nil }
	}
	return New(opts)
}

func ready(m *Model) {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	right = tea.KeyMsg{Type: tea.KeyRight}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func fieldIDs(fields []schema.Field) []schema.FieldID {
	out := make([]schema.FieldID, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.ID)
	}
	return out
}

func tabFields(t *testing.T, m *Model, tab schema.TabID) []schema.FieldID {
	t.Helper()
	for _, candidate := range m.ws.Store.Tabs() {
		if candidate.ID == tab {
			return fieldIDs(candidate.Fields)
		}
	}
	t.Fatalf("tab %q not found", tab)
	return nil
}

// runCmd executes cmd and any batched children, returning every message.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 0x1d, G: 0x3b, B: 0x6f, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoadingStateIgnoresInput(t *testing.T) {
	m := newTestModel(t, Options{})
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading view, got %q", m.View())
	}
	press(m, space)
	if got := m.ws.Mapper.ActiveID(); got != "" {
		t.Fatalf("expected no gesture before ready, got %q", got)
	}
	ready(m)
	if strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected workspace view after resize")
	}
	if !strings.Contains(m.View(), "Account") {
		t.Fatalf("expected account tab in view")
	}
}

func TestQuitBeforeReady(t *testing.T) {
	m := newTestModel(t, Options{})
	cmd := press(m, runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestDragToTabSnapsToEnd(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)

	press(m, space)
	if got := m.ws.Mapper.ActiveID(); got != "name" {
		t.Fatalf("expected name to be grabbed, got %q", got)
	}
	press(m, right)
	if got := m.ws.Mapper.CurrentTab(); got != "settings" {
		t.Fatalf("expected hover to switch to settings, got %q", got)
	}
	if got := m.ws.Mapper.DragOverTab(); got != "settings" {
		t.Fatalf("expected drag-over settings, got %q", got)
	}
	press(m, space)

	if got := m.ws.Mapper.ActiveID(); got != "" {
		t.Fatalf("expected gesture to end, got %q", got)
	}
	want := []schema.FieldID{"theme", "language", "timezone", "name"}
	if got := tabFields(t, m, "settings"); !reflect.DeepEqual(got, want) {
		t.Fatalf("settings fields = %v, want %v", got, want)
	}
	if got := tabFields(t, m, "account"); !reflect.DeepEqual(got, []schema.FieldID{"username"}) {
		t.Fatalf("account fields = %v", got)
	}
	if m.cursor != 3 {
		t.Fatalf("expected cursor to follow dropped field, got %d", m.cursor)
	}
}

func TestDragOntoSiblingReorders(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)

	press(m, space, down)
	if m.hoverField != 1 {
		t.Fatalf("expected hover on second field, got %d", m.hoverField)
	}
	if !strings.Contains(m.View(), "drop here") {
		t.Fatalf("expected drop marker in view")
	}
	press(m, enter)

	want := []schema.FieldID{"username", "name"}
	if got := tabFields(t, m, "account"); !reflect.DeepEqual(got, want) {
		t.Fatalf("account fields = %v, want %v", got, want)
	}
	log := m.ws.Mapper.Interactions()
	last := log[len(log)-1]
	if last.Action != schema.ActionEnd || last.Details["result"] != schema.DropReorder {
		t.Fatalf("unexpected last interaction %+v", last)
	}
}

func TestEscDropsOnEmptySpace(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)
	press(m, space, runes("3"))
	if got := m.ws.Mapper.CurrentTab(); got != "upload" {
		t.Fatalf("expected upload tab, got %q", got)
	}
	press(m, esc)
	want := []schema.FieldID{"profile-image", "name"}
	if got := tabFields(t, m, "upload"); !reflect.DeepEqual(got, want) {
		t.Fatalf("upload fields = %v, want %v", got, want)
	}
}

func TestEditFieldValue(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)
	press(m, down, runes("e"))
	if m.edit != editValue {
		t.Fatalf("expected edit mode")
	}
	m.input.SetValue("")
	press(m, runes("ada"), enter)
	field, _ := m.ws.Store.FindField("username")
	if field.Value != "ada" {
		t.Fatalf("expected username value ada, got %q", field.Value)
	}
	if m.edit != editNone {
		t.Fatalf("expected edit mode to end")
	}
}

func TestEditCancelKeepsValue(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)
	press(m, runes("e"), runes("xyz"), esc)
	field, _ := m.ws.Store.FindField("name")
	if field.Value != "Pedro Duarte" {
		t.Fatalf("expected unchanged value, got %q", field.Value)
	}
}

func TestFileFieldRunsAnalysis(t *testing.T) {
	shot := pngBytes(t)
	bridge := analysis.NewBridge(stubAnalyzer{resp: schema.AnalysisResponse{
		Success:    true,
		TabHeaders: []string{"Items", "Billing"},
		Analysis:   `["Items", "Billing"]`,
	}}, nil)
	m := newTestModel(t, Options{
		Bridge: bridge,
		ReadFile: func(path string) ([]byte, error) {
			if path != "/tmp/shot.png" {
				return nil, errors.New("unexpected path")
			}
			return shot, nil
		},
	})
	ready(m)
	press(m, runes("3"), runes("e"))
	if m.edit != editFile {
		t.Fatalf("expected file edit mode")
	}
	m.input.SetValue("/tmp/shot.png")
	cmd := press(m, enter)

	field, _ := m.ws.Store.FindField("profile-image")
	if field.Value != "shot.png" {
		t.Fatalf("expected base name as value, got %q", field.Value)
	}
	if !m.analyzing["profile-image"] {
		t.Fatalf("expected slot to be analyzing")
	}
	if !strings.Contains(m.View(), "Analyzing image...") {
		t.Fatalf("expected analyzing indicator")
	}

	var done bool
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(analysisDoneMsg); ok {
			done = true
			m.Update(msg)
		}
	}
	if !done {
		t.Fatalf("expected analysis to complete")
	}
	if m.analyzing["profile-image"] {
		t.Fatalf("expected slot to be idle")
	}
	var names []schema.TabName
	for _, tab := range m.ws.Store.Tabs() {
		names = append(names, tab.Name)
	}
	want := []schema.TabName{"Account", "Settings", "Upload", "Items", "Billing"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("tabs = %v, want %v", names, want)
	}
	if !strings.Contains(m.status, "added 2 tabs") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestFileFieldBusyWhileAnalyzing(t *testing.T) {
	shot := pngBytes(t)
	m := newTestModel(t, Options{
		Bridge:   analysis.NewBridge(stubAnalyzer{}, nil),
		ReadFile: func(string) ([]byte, error) { return shot, nil },
	})
	ready(m)
	press(m, runes("3"), runes("e"))
	m.input.SetValue("/tmp/shot.png")
	press(m, enter)
	if !m.analyzing["profile-image"] {
		t.Fatalf("expected slot to be analyzing")
	}

	press(m, runes("e"))
	if m.edit != editNone {
		t.Fatalf("file field should not open while analyzing")
	}
	if !m.statusErr || m.status != schema.ErrAnalysisBusy.Error() {
		t.Fatalf("unexpected status %q", m.status)
	}

	m.Update(analysisDoneMsg{slot: "profile-image", result: analysis.Result{
		TabHeaders: []string{},
		Err:        schema.ErrAnalysisBusy.Error(),
	}})
	if !m.analyzing["profile-image"] {
		t.Fatalf("busy result must not clear the running analysis")
	}
	if !strings.Contains(m.View(), "Analyzing image...") {
		t.Fatalf("expected analyzing indicator to stay")
	}
	if _, ok := m.results["profile-image"]; ok {
		t.Fatalf("busy result should not be recorded")
	}
}

func TestFileFieldRejectsNonImage(t *testing.T) {
	m := newTestModel(t, Options{
		Bridge:   analysis.NewBridge(stubAnalyzer{}, nil),
		ReadFile: func(string) ([]byte, error) { return []byte("%PDF-1.4 not an image"), nil },
	})
	ready(m)
	press(m, runes("3"), runes("e"))
	m.input.SetValue("doc.pdf")
	if cmd := press(m, enter); cmd != nil {
		t.Fatalf("expected no analysis command")
	}
	field, _ := m.ws.Store.FindField("profile-image")
	if field.Value != "" {
		t.Fatalf("expected value unchanged, got %q", field.Value)
	}
	if !m.statusErr {
		t.Fatalf("expected error status")
	}
}

func TestAnalysisFailureShowsError(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)
	m.Update(analysisDoneMsg{slot: "profile-image", result: analysis.Result{
		TabHeaders: []string{},
		Err:        `Error: 500 - {"error":"OpenAI API key not configured"}`,
	}})
	if len(m.ws.Store.Tabs()) != 3 {
		t.Fatalf("expected no tabs added")
	}
	press(m, runes("3"))
	if !strings.Contains(m.View(), "OpenAI API key not configured") {
		t.Fatalf("expected error text in view")
	}
}

func TestSaveCommand(t *testing.T) {
	local := &memLocal{}
	ws := core.NewWorkspace(core.StoreDeps{
		Local: local,
		Clock: func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	m := newTestModel(t, Options{Workspace: ws})
	ready(m)
	cmd := press(m, runes("s"))
	if cmd == nil {
		t.Fatalf("expected save command")
	}
	m.Update(cmd())
	if m.status != "Saved field-data-2024-05-06.json" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if _, ok := local.data[schema.StorageKey]; !ok {
		t.Fatalf("expected local snapshot")
	}
}

func TestCopySnapshot(t *testing.T) {
	var copied string
	m := newTestModel(t, Options{Clipboard: func(text string) error {
		copied = text
		return nil
	}})
	ready(m)
	press(m, runes("y"))
	if !strings.Contains(copied, `"timestamp": "2024-05-06T07:08:09.000Z"`) {
		t.Fatalf("unexpected clipboard text %q", copied)
	}
}

func TestDebugPaneShowsInteractions(t *testing.T) {
	m := newTestModel(t, Options{})
	ready(m)
	press(m, space, esc, runes("d"))
	if !m.showDebug {
		t.Fatalf("expected debug pane")
	}
	view := m.View()
	if !strings.Contains(view, "Interactions") || !strings.Contains(view, "start") {
		t.Fatalf("expected interaction log in debug pane")
	}
}

func TestStoreEventsUpdateStatus(t *testing.T) {
	events := make(chan schema.StoreEvent, 1)
	m := newTestModel(t, Options{Events: events})
	ready(m)
	events <- schema.StoreEvent{Type: schema.StoreEventFieldValue, FieldID: "name"}
	msg := m.Init()()
	_, next := m.Update(msg)
	if m.lastEvent != "field_value name" {
		t.Fatalf("unexpected last event %q", m.lastEvent)
	}
	if next == nil {
		t.Fatalf("expected to keep listening")
	}
	close(events)
	m.Update(next())
	if m.events != nil {
		t.Fatalf("expected closed channel to stop listening")
	}
}
