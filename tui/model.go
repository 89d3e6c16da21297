package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"pkt.systems/pslog"
	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/analysis"
	"pkt.systems/tabforge/schema"
)

// Options configures a Model.
type Options struct {
	Context   context.Context
	Workspace *core.Workspace
	// Bridge runs image analysis. Nil disables analysis.
	Bridge *analysis.Bridge
	// Events delivers store events for the workspace session. Optional.
	Events <-chan schema.StoreEvent
	// Renderer styles output for a specific terminal. Defaults to stdout.
	Renderer  *lipgloss.Renderer
	Clipboard func(string) error
	ReadFile  func(string) ([]byte, error)
	Logger    pslog.Logger
}

type editKind int

const (
	editNone editKind = iota
	editValue
	editFile
)

// Model is the terminal front end over one workspace.
type Model struct {
	ctx       context.Context
	ws        *core.Workspace
	bridge    *analysis.Bridge
	events    <-chan schema.StoreEvent
	clipboard func(string) error
	readFile  func(string) ([]byte, error)
	log       pslog.Logger

	renderer *lipgloss.Renderer
	styles   styles
	keys     keyMap
	help     help.Model
	input    textinput.Model
	spinner  spinner.Model
	debug    viewport.Model
	markdown *markdownRenderer

	ready  bool
	width  int
	height int

	cursor     int
	hoverField int
	hoverTab   schema.TabID

	edit      editKind
	editField schema.FieldID

	analyzing map[schema.FieldID]bool
	results   map[schema.FieldID]analysis.Result

	showDebug bool
	status    string
	statusErr bool
	lastEvent string
}

type storeEventMsg struct {
	event schema.StoreEvent
	ok    bool
}

type analysisDoneMsg struct {
	slot   schema.FieldID
	result analysis.Result
}

type saveDoneMsg struct {
	result core.SaveResult
	err    error
}

// New constructs a Model. The model stays in its loading state until the
// first window size message arrives.
func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ws := opts.Workspace
	if ws == nil {
		ws = core.NewWorkspace(core.StoreDeps{})
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}

	input := textinput.New()
	input.CharLimit = 512
	input.Prompt = "> "

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		ctx:       ctx,
		ws:        ws,
		bridge:    opts.Bridge,
		events:    opts.Events,
		clipboard: clip,
		readFile:  readFile,
		log:       logger,
		renderer:  renderer,
		styles:    newStyles(renderer),
		keys:      defaultKeyMap(),
		help:      help.New(),
		input:     input,
		spinner:   spin,
		debug:     viewport.New(0, 0),
		markdown:  newMarkdownRenderer(),
		analyzing: make(map[schema.FieldID]bool),
		results:   make(map[schema.FieldID]analysis.Result),
	}
}

// Workspace returns the workspace the model drives.
func (m *Model) Workspace() *core.Workspace {
	return m.ws
}

// Init starts listening for store events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		if !m.ready {
			m.ready = true
			m.log.Debug("tui ready", "width", msg.Width, "height", msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if !m.ready {
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.handleKey(msg)
	case storeEventMsg:
		if !msg.ok {
			m.events = nil
			return m, nil
		}
		m.lastEvent = describeEvent(msg.event)
		m.clampCursor()
		m.refreshDebug()
		return m, m.waitForEvent()
	case analysisDoneMsg:
		return m.finishAnalysis(msg)
	case saveDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Save failed: %v", msg.err))
		} else {
			m.setStatus(fmt.Sprintf("Saved %s", msg.result.DownloadName))
		}
		return m, nil
	case spinner.TickMsg:
		if len(m.analyzing) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	if m.edit != editNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.edit != editNone {
		return m.handleEditKey(msg)
	}
	if m.ws.Mapper.ActiveID() != "" {
		return m.handleDragKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = !m.showDebug
		m.refreshDebug()
	case m.showDebug && key.Matches(msg, m.keys.PageUp):
		m.debug.HalfPageUp()
	case m.showDebug && key.Matches(msg, m.keys.PageDown):
		m.debug.HalfPageDown()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.ws.Mapper.CurrentFields())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Left):
		m.selectTabOffset(-1)
	case key.Matches(msg, m.keys.Right):
		m.selectTabOffset(1)
	case key.Matches(msg, m.keys.TabN):
		if tab, ok := m.tabByNumber(msg.String()); ok {
			m.ws.Mapper.SelectTab(tab)
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.Grab):
		m.grab()
	case key.Matches(msg, m.keys.Edit):
		return m, m.beginEdit()
	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Copy):
		m.copySnapshot()
	}
	m.refreshDebug()
	return m, nil
}

func (m *Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mapper := m.ws.Mapper
	item := mapper.ActiveID()
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.hoverTabOffset(item, -1)
	case key.Matches(msg, m.keys.Right):
		m.hoverTabOffset(item, 1)
	case key.Matches(msg, m.keys.TabN):
		if tab, ok := m.tabByNumber(msg.String()); ok {
			m.hoverTabTarget(item, tab)
		}
	case key.Matches(msg, m.keys.Up):
		m.hoverFieldOffset(item, -1)
	case key.Matches(msg, m.keys.Down):
		m.hoverFieldOffset(item, 1)
	case key.Matches(msg, m.keys.Drop):
		m.drop(item, m.dropTarget())
	case key.Matches(msg, m.keys.Cancel):
		m.drop(item, "")
	}
	m.refreshDebug()
	return m, nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endEdit()
		return m, nil
	case tea.KeyEnter:
		return m, m.commitEdit()
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) grab() {
	fields := m.ws.Mapper.CurrentFields()
	if m.cursor < 0 || m.cursor >= len(fields) {
		return
	}
	m.ws.Mapper.Start(fields[m.cursor].ID)
	m.hoverField = -1
	m.hoverTab = ""
}

// dropTarget is the hovered field when one is marked, otherwise the hovered
// tab button, otherwise empty space.
func (m *Model) dropTarget() string {
	fields := m.ws.Mapper.CurrentFields()
	if m.hoverField >= 0 && m.hoverField < len(fields) {
		return string(fields[m.hoverField].ID)
	}
	return string(m.hoverTab)
}

func (m *Model) drop(item schema.FieldID, target string) {
	m.ws.Mapper.End(item, target)
	m.hoverField = -1
	m.hoverTab = ""
	m.cursor = 0
	for i, field := range m.ws.Mapper.CurrentFields() {
		if field.ID == item {
			m.cursor = i
			break
		}
	}
}

func (m *Model) hoverTabOffset(item schema.FieldID, delta int) {
	tabs := m.ws.Store.Tabs()
	if len(tabs) == 0 {
		return
	}
	from := m.hoverTab
	if from == "" {
		from = m.ws.Mapper.CurrentTab()
	}
	idx := 0
	for i, tab := range tabs {
		if tab.ID == from {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(tabs)) % len(tabs)
	m.hoverTabTarget(item, tabs[idx].ID)
}

func (m *Model) hoverTabTarget(item schema.FieldID, tab schema.TabID) {
	m.ws.Mapper.Over(item, string(tab))
	m.hoverTab = tab
	m.hoverField = -1
}

func (m *Model) hoverFieldOffset(item schema.FieldID, delta int) {
	fields := m.ws.Mapper.CurrentFields()
	if len(fields) == 0 {
		return
	}
	idx := m.hoverField
	if idx < 0 {
		idx = m.cursor
		for i, field := range fields {
			if field.ID == item {
				idx = i
				break
			}
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(fields) {
		idx = len(fields) - 1
	}
	m.hoverField = idx
	m.hoverTab = ""
	m.ws.Mapper.Over(item, string(fields[idx].ID))
}

func (m *Model) selectTabOffset(delta int) {
	tabs := m.ws.Store.Tabs()
	if len(tabs) == 0 {
		return
	}
	current := m.ws.Mapper.CurrentTab()
	idx := 0
	for i, tab := range tabs {
		if tab.ID == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(tabs)) % len(tabs)
	m.ws.Mapper.SelectTab(tabs[idx].ID)
	m.cursor = 0
}

func (m *Model) tabByNumber(s string) (schema.TabID, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return "", false
	}
	n := int(s[0] - '1')
	tabs := m.ws.Store.Tabs()
	if n >= len(tabs) {
		return "", false
	}
	return tabs[n].ID, true
}

func (m *Model) beginEdit() tea.Cmd {
	fields := m.ws.Mapper.CurrentFields()
	if m.cursor < 0 || m.cursor >= len(fields) {
		return nil
	}
	field := fields[m.cursor]
	if m.analyzing[field.ID] {
		m.setError(schema.ErrAnalysisBusy.Error())
		return nil
	}
	m.editField = field.ID
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	switch field.Type {
	case schema.FieldFile:
		m.edit = editFile
		m.input.Placeholder = "path to an image"
	case schema.FieldPassword:
		m.edit = editValue
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
		m.input.Placeholder = ""
		m.input.SetValue(field.Value)
	default:
		m.edit = editValue
		m.input.Placeholder = field.Label
		m.input.SetValue(field.Value)
	}
	return m.input.Focus()
}

func (m *Model) endEdit() {
	m.edit = editNone
	m.editField = ""
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) commitEdit() tea.Cmd {
	kind, fieldID, value := m.edit, m.editField, m.input.Value()
	m.endEdit()
	if kind == editValue {
		m.ws.Store.SetFieldValue(fieldID, value)
		m.refreshDebug()
		return nil
	}

	path := strings.TrimSpace(value)
	if path == "" {
		return nil
	}
	data, err := m.readFile(path)
	if err != nil {
		m.setError(fmt.Sprintf("Cannot read %s: %v", path, err))
		return nil
	}
	upload, err := analysis.Inspect(data)
	if err != nil {
		m.setError(fmt.Sprintf("%s is not an image", filepath.Base(path)))
		return nil
	}
	m.ws.Store.SetFieldValue(fieldID, filepath.Base(path))
	m.refreshDebug()
	if m.bridge == nil {
		m.setError("Image analysis is not configured")
		return nil
	}
	m.analyzing[fieldID] = true
	delete(m.results, fieldID)
	m.setStatus("Analyzing image...")
	return tea.Batch(m.spinner.Tick, m.analyzeCmd(fieldID, data, upload.MIME))
}

func (m *Model) analyzeCmd(slot schema.FieldID, data []byte, mime string) tea.Cmd {
	bridge, ctx := m.bridge, m.ctx
	key := analysis.Slot{Session: m.ws.Store.Session(), Field: slot}
	return func() tea.Msg {
		return analysisDoneMsg{slot: slot, result: bridge.Analyze(ctx, key, data, mime)}
	}
}

func (m *Model) finishAnalysis(msg analysisDoneMsg) (tea.Model, tea.Cmd) {
	if msg.result.Err == schema.ErrAnalysisBusy.Error() {
		// The running analysis still owns the slot and reports its own result.
		m.setError(msg.result.Err)
		return m, nil
	}
	delete(m.analyzing, msg.slot)
	m.results[msg.slot] = msg.result
	if !msg.result.OK() {
		m.setError(msg.result.Err)
		return m, nil
	}
	added := analysis.ApplyResult(m.ws.Store, msg.result)
	switch len(added) {
	case 0:
		m.setStatus("Analysis complete, no new tabs")
	case 1:
		m.setStatus("Analysis complete, added 1 tab")
	default:
		m.setStatus(fmt.Sprintf("Analysis complete, added %d tabs", len(added)))
	}
	m.refreshDebug()
	return m, nil
}

func (m *Model) saveCmd() tea.Cmd {
	store, ctx := m.ws.Store, m.ctx
	return func() tea.Msg {
		result, err := store.SaveData(ctx)
		return saveDoneMsg{result: result, err: err}
	}
}

func (m *Model) copySnapshot() {
	data, err := json.MarshalIndent(m.ws.Store.Snapshot(), "", "  ")
	if err != nil {
		m.setError(fmt.Sprintf("Encode snapshot: %v", err))
		return
	}
	if err := m.clipboard(string(data)); err != nil {
		m.setError(fmt.Sprintf("Clipboard: %v", err))
		return
	}
	m.setStatus("Copied snapshot JSON")
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		return storeEventMsg{event: event, ok: ok}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	m.input.Width = max(width-8, 10)
	m.debug.Width = max(width-4, 10)
	m.debug.Height = max(height/3, 5)
	m.markdown.setWidth(max(width-10, 20))
	m.refreshDebug()
}

func (m *Model) refreshDebug() {
	if !m.showDebug {
		return
	}
	state, err := json.MarshalIndent(m.ws.Mapper.UIState(), "", "  ")
	if err != nil {
		state = []byte(err.Error())
	}
	var b strings.Builder
	b.WriteString("Interactions\n")
	interactions := m.ws.Mapper.Interactions()
	if len(interactions) == 0 {
		b.WriteString("(none)\n")
	}
	for _, entry := range interactions {
		fmt.Fprintf(&b, "%s %-10s %s", time.UnixMilli(entry.Timestamp).Format("15:04:05"), entry.Action, entry.FieldID)
		if len(entry.Details) > 0 {
			details, _ := json.Marshal(entry.Details)
			fmt.Fprintf(&b, " %s", details)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nUI state\n")
	b.Write(state)
	b.WriteByte('\n')
	m.debug.SetContent(b.String())
}

func (m *Model) clampCursor() {
	n := len(m.ws.Mapper.CurrentFields())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(text string) {
	m.status, m.statusErr = text, false
}

func (m *Model) setError(text string) {
	m.status, m.statusErr = text, true
	m.log.Debug("tui status error", "status", text)
}

func describeEvent(event schema.StoreEvent) string {
	switch {
	case event.Error != "":
		return fmt.Sprintf("%s (%s)", event.Type, event.Error)
	case event.FieldID != "":
		return fmt.Sprintf("%s %s", event.Type, event.FieldID)
	case len(event.TabIDs) > 0:
		return fmt.Sprintf("%s %v", event.Type, event.TabIDs)
	}
	return string(event.Type)
}
