package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

// KeyMap holds the picker's key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Copy   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns vim-style bindings plus arrows.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j", "down")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "open")),
		Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("q/Esc", "cancel")),
	}
}

// Action is what the user chose to do with the selection.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionCopy
)

type copiedMsg struct{ err error }

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results []search.SearchResult
	query   string
	cursor  int
	action  Action
	status  string
	keys    KeyMap
	clip    func(string) error
	width   int
	height  int
}

// Option configures a Picker.
type Option func(*Picker)

// WithKeyMap replaces the default bindings.
func WithKeyMap(km KeyMap) Option {
	return func(p *Picker) { p.keys = km }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(p *Picker) { p.clip = write }
}

// New creates a new Picker with the given search results.
func New(results []search.SearchResult, query string, opts ...Option) Picker {
	p := Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		clip:    clipboard.WriteAll,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case copiedMsg:
		if msg.err != nil {
			p.status = "copy failed: " + msg.err.Error()
			p.action = ActionNone
			return p, nil
		}
		return p, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.action = ActionNone
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) == 0 {
				return p, nil
			}
			p.action = ActionOpen
			return p, tea.Quit

		case key.Matches(msg, p.keys.Copy):
			if len(p.results) == 0 {
				return p, nil
			}
			p.action = ActionCopy
			url := p.results[p.cursor].Bookmark.URL
			write := p.clip
			return p, func() tea.Msg { return copiedMsg{err: write(url)} }

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		}
	}

	return p, nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	// List items
	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := style.Render(result.Bookmark.Title)
		url := urlStyle.Render(result.Bookmark.URL)

		b.WriteString(fmt.Sprintf("%s%s\n", cursor, title))
		b.WriteString(fmt.Sprintf("   %s\n", url))
	}

	if p.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(p.status))
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(p.help()))

	return b.String()
}

func (p Picker) help() string {
	bindings := []key.Binding{p.keys.Down, p.keys.Up, p.keys.Open, p.keys.Copy, p.keys.Cancel}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// Selected returns the chosen bookmark and action. ok is false when the
// picker was cancelled.
func (p Picker) Selected() (model.KeyedBookmark, Action, bool) {
	if p.action == ActionNone || p.cursor >= len(p.results) {
		return model.KeyedBookmark{}, ActionNone, false
	}
	return p.results[p.cursor].Bookmark, p.action, true
}

// Cancelled returns true if the user quit without choosing.
func (p Picker) Cancelled() bool {
	return p.action == ActionNone
}
