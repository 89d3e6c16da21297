package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	TabN     key.Binding
	Grab     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Edit     key.Binding
	Save     key.Binding
	Copy     key.Binding
	Debug    key.Binding
	Help     key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev tab")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next tab")),
		TabN:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "tab")),
		Grab:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "grab/drop")),
		Drop:     key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space/enter", "drop")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "drop in list")),
		Edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e/enter", "edit")),
		Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy json")),
		Debug:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "debug")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll debug")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll debug")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Edit, k.Save, k.Debug, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.TabN},
		{k.Grab, k.Drop, k.Cancel, k.Edit},
		{k.Save, k.Copy, k.Debug, k.PageUp, k.PageDown},
		{k.Help, k.Quit},
	}
}
