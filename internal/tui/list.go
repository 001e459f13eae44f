package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"contacts/internal/models"
	"contacts/internal/storemgr"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type ListScreen struct {
	mgr  StoreManager
	opts ContactOptions

	contacts    []models.Contact
	filtered    []models.Contact
	cursor      int
	searchInput textinput.Model

	loading  bool
	syncing  bool
	lastSync time.Time
	loadErr  error
}

func NewListScreen(mgr StoreManager, opts ContactOptions) ListScreen {
	search := textinput.New()
	search.Placeholder = "Search contacts..."
	search.Width = 40

	return ListScreen{
		mgr:         mgr,
		opts:        opts,
		searchInput: search,
		loading:     true,
	}
}

func (l ListScreen) Init() tea.Cmd {
	return ListCmd(l.mgr)
}

func (l ListScreen) Header() HeaderOptions {
	right := []string{"a add"}
	if l.mgr.SyncEnabled() {
		right = append(right, "s sync")
	}
	return HeaderOptions{Title: "Contacts", Right: right}
}

// Contacts returns the rows currently shown.
func (l ListScreen) Contacts() []models.Contact {
	return l.filtered
}

func (l ListScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case ScreenFocusedMsg:
		l.loading = true
		return l, ListCmd(l.mgr)

	case ContactsLoadedMsg:
		l.loading = false
		l.loadErr = msg.Err
		if msg.Err == nil {
			l.contacts = msg.Contacts
			l.lastSync = msg.LastSync
			l.filterContacts()
		}
		return l, nil

	case ContactCreatedMsg:
		if msg.Err != nil {
			return l, Status("Failed to create contact: "+msg.Err.Error(), true)
		}
		return l, Push(NewContactScreen(l.mgr, msg.Contact, l.opts))

	case SyncDoneMsg:
		l.syncing = false
		if msg.Err != nil {
			return l, tea.Batch(Status("Sync failed: "+msg.Err.Error(), true), ListCmd(l.mgr))
		}
		isErr := msg.Report.Failed > 0
		return l, tea.Batch(Status("Synced: "+msg.Report.String(), isErr), ListCmd(l.mgr))

	case tea.KeyMsg:
		if l.searchInput.Focused() {
			switch msg.String() {
			case "esc":
				l.searchInput.Blur()
				l.searchInput.SetValue("")
				l.filterContacts()
				return l, nil
			case "enter":
				l.searchInput.Blur()
				return l, nil
			}
			l.searchInput, cmd = l.searchInput.Update(msg)
			l.filterContacts()
			return l, cmd
		}
		return l.updateList(msg)
	}

	return l, nil
}

func (l ListScreen) updateList(msg tea.KeyMsg) (Screen, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j":
		if l.cursor < len(l.filtered)-1 {
			l.cursor++
		}
	case "enter":
		if len(l.filtered) > 0 {
			return l, Push(NewContactScreen(l.mgr, l.filtered[l.cursor], l.opts))
		}
	case "a":
		return l, CreateCmd(l.mgr)
	case "s":
		if !l.mgr.SyncEnabled() {
			return l, Status(storemgr.ErrSyncDisabled.Error(), true)
		}
		if l.syncing {
			return l, nil
		}
		l.syncing = true
		return l, SyncCmd(l.mgr)
	case "/":
		cmd := l.searchInput.Focus()
		return l, cmd
	case "q":
		return l, tea.Quit
	}
	return l, nil
}

func (l *ListScreen) filterContacts() {
	query := strings.ToLower(l.searchInput.Value())
	if query == "" {
		l.filtered = l.contacts
	} else {
		l.filtered = make([]models.Contact, 0)
		for _, c := range l.contacts {
			for _, f := range models.EditableFields {
				v, _ := c.Get(f.Key)
				if strings.Contains(strings.ToLower(v), query) {
					l.filtered = append(l.filtered, c)
					break
				}
			}
		}
	}

	if l.cursor >= len(l.filtered) {
		l.cursor = max(0, len(l.filtered)-1)
	}
}

func lastSyncLine(t time.Time) string {
	if t.IsZero() {
		return "Never synced"
	}
	return "Last synced " + t.Local().Format("2006-01-02 15:04")
}

func badges(c models.Contact) string {
	var parts []string
	if c.Is(models.FlagDeleted) {
		parts = append(parts, deletedBadgeStyle.Render("[deleted]"))
	} else if c.Local() {
		parts = append(parts, pendingBadgeStyle.Render("["+c.Flags.String()+"]"))
	}
	if c.LastError != "" {
		parts = append(parts, errorStyle.Render("!"))
	}
	return strings.Join(parts, " ")
}

func (l ListScreen) View() string {
	var b strings.Builder

	b.WriteString(l.searchInput.View())
	b.WriteString("\n\n")

	switch {
	case l.loadErr != nil && !errors.Is(l.loadErr, storemgr.ErrTimeout):
		b.WriteString(errorStyle.Render("Failed to load contacts: " + l.loadErr.Error()))
	case l.loadErr != nil:
		b.WriteString(errorStyle.Render("Loading contacts timed out."))
	case l.loading && len(l.contacts) == 0:
		b.WriteString(mutedStyle.Render("Loading..."))
	case len(l.filtered) == 0 && len(l.contacts) == 0:
		b.WriteString(mutedStyle.Render("No contacts yet. Press 'a' to add one."))
	case len(l.filtered) == 0:
		b.WriteString(mutedStyle.Render("No contacts match your search."))
	default:
		for i, c := range l.filtered {
			cursor := "  "
			style := normalStyle
			if i == l.cursor {
				cursor = "▸ "
				style = selectedStyle
			}

			line := fmt.Sprintf("%s%s", cursor, style.Render(c.DisplayName()))
			if c.Title != "" {
				line += mutedStyle.Render(" (" + c.Title + ")")
			}
			if bs := badges(c); bs != "" {
				line += " " + bs
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if l.syncing {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Syncing..."))
	} else if l.mgr.SyncEnabled() {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(lastSyncLine(l.lastSync)))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ navigate • enter open • a add • s sync • / search • q quit"))

	return b.String()
}
