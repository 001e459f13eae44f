package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Screen is one entry on the navigation stack.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	Header() HeaderOptions
}

// HeaderOptions describes the navigation bar of a screen. It is read on
// every render, so screens derive it from their current state.
type HeaderOptions struct {
	Title string
	Left  string
	Right []string
}

type App struct {
	stack  []Screen
	width  int
	height int

	statusMsg     string
	statusIsError bool

	log *zap.SugaredLogger
}

func NewApp(root Screen, log *zap.SugaredLogger) App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return App{stack: []Screen{root}, log: log}
}

func (a App) Init() tea.Cmd {
	return a.top().Init()
}

func (a App) top() Screen {
	return a.stack[len(a.stack)-1]
}

// Depth is the number of screens on the stack.
func (a App) Depth() int {
	return len(a.stack)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		for i, s := range a.stack {
			var cmd tea.Cmd
			a.stack[i], cmd = s.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case PushMsg:
		if msg.Screen == nil {
			return a, nil
		}
		a.stack = append(a.stack, msg.Screen)
		a.log.Debugw("screen pushed", "title", msg.Screen.Header().Title, "depth", len(a.stack))
		cmds := []tea.Cmd{msg.Screen.Init()}
		if a.width > 0 {
			size := tea.WindowSizeMsg{Width: a.width, Height: a.height}
			cmds = append(cmds, func() tea.Msg { return size })
		}
		return a, tea.Batch(cmds...)

	case PopMsg:
		if len(a.stack) == 1 {
			return a, nil
		}
		a.stack = a.stack[:len(a.stack)-1]
		a.log.Debugw("screen popped", "depth", len(a.stack))
		return a, func() tea.Msg { return ScreenFocusedMsg{} }

	case StatusMsg:
		a.statusMsg = msg.Message
		a.statusIsError = msg.IsError
		return a, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return ClearStatusMsg{}
		})

	case ClearStatusMsg:
		a.statusMsg = ""
		return a, nil

	case SyncDoneMsg:
		// The root screen started the sync, whatever sits on top now.
		var cmd tea.Cmd
		a.stack[0], cmd = a.stack[0].Update(msg)
		return a, cmd
	}

	i := len(a.stack) - 1
	var cmd tea.Cmd
	a.stack[i], cmd = a.stack[i].Update(msg)
	return a, cmd
}

func (a App) View() string {
	var b strings.Builder

	s := a.top()
	b.WriteString(renderHeader(s.Header(), a.width))
	b.WriteString("\n\n")
	b.WriteString(s.View())

	if a.statusMsg != "" {
		b.WriteString("\n\n")
		if a.statusIsError {
			b.WriteString(errorStyle.Render("⚠ " + a.statusMsg))
		} else {
			b.WriteString(successStyle.Render("✓ " + a.statusMsg))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("ctrl+c quit"))
	return b.String()
}

func renderHeader(h HeaderOptions, width int) string {
	left := headerButtonStyle.Render(h.Left)
	right := headerButtonStyle.Render(strings.Join(h.Right, " "))
	title := headerTitleStyle.Render(h.Title)

	if width <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Center, left, " ", title, " ", right)
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < lipgloss.Width(title) {
		return lipgloss.JoinHorizontal(lipgloss.Center, left, " ", title, " ", right)
	}
	middle := lipgloss.PlaceHorizontal(gap, lipgloss.Center, title)
	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Center, left, middle, right))
}
