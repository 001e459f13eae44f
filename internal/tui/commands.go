package tui

import (
	"context"
	"time"

	"contacts/internal/models"
	contactsync "contacts/internal/sync"

	tea "github.com/charmbracelet/bubbletea"
)

// StoreManager is the persistence collaborator used by the screens.
// Records go in by value and the confirmed state comes back.
type StoreManager interface {
	SaveContact(ctx context.Context, c models.Contact) (models.Contact, error)
	DeleteContact(ctx context.Context, c models.Contact) error
	CreateContact(ctx context.Context) (models.Contact, error)
	List(ctx context.Context) ([]models.Contact, error)
	LastSync(ctx context.Context) (time.Time, error)
	Sync(ctx context.Context) (contactsync.Report, error)
	SyncEnabled() bool
}

func SaveCmd(mgr StoreManager, c models.Contact) tea.Cmd {
	return func() tea.Msg {
		saved, err := mgr.SaveContact(context.Background(), c)
		return ContactSavedMsg{Contact: saved, Err: err}
	}
}

func DeleteCmd(mgr StoreManager, c models.Contact) tea.Cmd {
	return func() tea.Msg {
		err := mgr.DeleteContact(context.Background(), c)
		return ContactDeletedMsg{Contact: c, Err: err}
	}
}

func CreateCmd(mgr StoreManager) tea.Cmd {
	return func() tea.Msg {
		c, err := mgr.CreateContact(context.Background())
		return ContactCreatedMsg{Contact: c, Err: err}
	}
}

func ListCmd(mgr StoreManager) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		contacts, err := mgr.List(ctx)
		if err != nil {
			return ContactsLoadedMsg{Err: err}
		}
		last, err := mgr.LastSync(ctx)
		return ContactsLoadedMsg{Contacts: contacts, LastSync: last, Err: err}
	}
}

func SyncCmd(mgr StoreManager) tea.Cmd {
	return func() tea.Msg {
		report, err := mgr.Sync(context.Background())
		return SyncDoneMsg{Report: report, Err: err}
	}
}

func Push(s Screen) tea.Cmd {
	return func() tea.Msg {
		return PushMsg{Screen: s}
	}
}

func Pop() tea.Msg {
	return PopMsg{}
}

func Status(message string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Message: message, IsError: isError}
	}
}
