package tui

import (
	"time"

	"contacts/internal/models"
	contactsync "contacts/internal/sync"
)

// PushMsg puts Screen on top of the navigation stack.
type PushMsg struct {
	Screen Screen
}

// PopMsg returns to the previous screen. The root screen is never popped.
type PopMsg struct{}

// ScreenFocusedMsg is sent to a screen when it becomes the top of the stack
// again after a pop.
type ScreenFocusedMsg struct{}

type ContactSavedMsg struct {
	Contact models.Contact
	Err     error
}

type ContactDeletedMsg struct {
	Contact models.Contact
	Err     error
}

type ContactCreatedMsg struct {
	Contact models.Contact
	Err     error
}

// ContactsLoadedMsg carries the stored contacts. LastSync is zero when no
// sync has completed.
type ContactsLoadedMsg struct {
	Contacts []models.Contact
	LastSync time.Time
	Err      error
}

type SyncDoneMsg struct {
	Report contactsync.Report
	Err    error
}

type StatusMsg struct {
	Message string
	IsError bool
}

type ClearStatusMsg struct{}
