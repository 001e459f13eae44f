package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownField = errors.New("unknown contact field")

// SyncFlags records how a contact differs from the last synced state.
// Local is derived from the bits, never stored on its own.
type SyncFlags uint8

const (
	FlagCreated SyncFlags = 1 << iota
	FlagModified
	FlagUpdated
	FlagDeleted
)

func (f SyncFlags) Has(flag SyncFlags) bool {
	return f&flag != 0
}

func (f SyncFlags) Local() bool {
	return f != 0
}

func (f SyncFlags) String() string {
	if f == 0 {
		return "clean"
	}
	var parts []string
	for _, p := range []struct {
		flag SyncFlags
		name string
	}{
		{FlagCreated, "created"},
		{FlagModified, "modified"},
		{FlagUpdated, "updated"},
		{FlagDeleted, "deleted"},
	} {
		if f.Has(p.flag) {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "|")
}

type Field struct {
	Key   string
	Label string
}

// EditableFields is the ordered set of fields shown on the contact screen.
var EditableFields = []Field{
	{Key: "FirstName", Label: "First name"},
	{Key: "LastName", Label: "Last name"},
	{Key: "Title", Label: "Title"},
	{Key: "Phone", Label: "Phone"},
	{Key: "Email", Label: "Email"},
}

type Contact struct {
	ID        string
	RemoteID  string
	FirstName string
	LastName  string
	Title     string
	Phone     string
	Email     string
	UpdatedAt time.Time

	Flags     SyncFlags
	LastError string
}

// NewContact returns an on-device record that has never been synced.
func NewContact() Contact {
	return Contact{
		ID:        uuid.NewString(),
		UpdatedAt: time.Now(),
		Flags:     FlagCreated,
	}
}

func (c Contact) Local() bool {
	return c.Flags.Local()
}

func (c Contact) Is(flag SyncFlags) bool {
	return c.Flags.Has(flag)
}

func (c *Contact) setFlag(flag SyncFlags, on bool) {
	if on {
		c.Flags |= flag
	} else {
		c.Flags &^= flag
	}
}

func (c Contact) Get(key string) (string, error) {
	switch key {
	case "FirstName":
		return c.FirstName, nil
	case "LastName":
		return c.LastName, nil
	case "Title":
		return c.Title, nil
	case "Phone":
		return c.Phone, nil
	case "Email":
		return c.Email, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, key)
}

// Set stores value verbatim. It does not mark the record dirty; dirtiness is
// recorded when the edit is committed.
func (c *Contact) Set(key, value string) error {
	switch key {
	case "FirstName":
		c.FirstName = value
	case "LastName":
		c.LastName = value
	case "Title":
		c.Title = value
	case "Phone":
		c.Phone = value
	case "Email":
		c.Email = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

// MarkSaved prepares the record for an explicit save: the previous error is
// dropped before the outcome of the new attempt is known.
func (c *Contact) MarkSaved() {
	c.LastError = ""
	c.setFlag(FlagUpdated, true)
}

func (c *Contact) MarkModified() {
	c.setFlag(FlagModified, true)
}

func (c *Contact) ToggleDeleted() {
	c.setFlag(FlagDeleted, !c.Is(FlagDeleted))
}

func (c *Contact) ClearSyncState() {
	c.Flags = 0
	c.LastError = ""
}

// SameFields reports whether every editable field matches other.
func (c Contact) SameFields(other Contact) bool {
	return c.FirstName == other.FirstName &&
		c.LastName == other.LastName &&
		c.Title == other.Title &&
		c.Phone == other.Phone &&
		c.Email == other.Email
}

func (c Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// contactJSON keeps the SmartStore soup field names so exported records stay
// compatible with the mobile sync tooling.
type contactJSON struct {
	ID        string    `json:"local_id"`
	RemoteID  string    `json:"Id,omitempty"`
	FirstName string    `json:"FirstName"`
	LastName  string    `json:"LastName"`
	Title     string    `json:"Title"`
	Phone     string    `json:"Phone"`
	Email     string    `json:"Email"`
	UpdatedAt time.Time `json:"updated_at"`

	LocallyCreated  bool   `json:"__locally_created__"`
	LocallyModified bool   `json:"__locally_modified__"`
	LocallyUpdated  bool   `json:"__locally_updated__"`
	LocallyDeleted  bool   `json:"__locally_deleted__"`
	Local           bool   `json:"__local__"`
	LastError       string `json:"__last_error__,omitempty"`
}

func (c Contact) MarshalJSON() ([]byte, error) {
	return json.Marshal(contactJSON{
		ID:              c.ID,
		RemoteID:        c.RemoteID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Title:           c.Title,
		Phone:           c.Phone,
		Email:           c.Email,
		UpdatedAt:       c.UpdatedAt,
		LocallyCreated:  c.Is(FlagCreated),
		LocallyModified: c.Is(FlagModified),
		LocallyUpdated:  c.Is(FlagUpdated),
		LocallyDeleted:  c.Is(FlagDeleted),
		Local:           c.Local(),
		LastError:       c.LastError,
	})
}

// UnmarshalJSON ignores __local__; it is recomputed from the other flags.
func (c *Contact) UnmarshalJSON(data []byte) error {
	var raw contactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Contact{
		ID:        raw.ID,
		RemoteID:  raw.RemoteID,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Title:     raw.Title,
		Phone:     raw.Phone,
		Email:     raw.Email,
		UpdatedAt: raw.UpdatedAt,
		LastError: raw.LastError,
	}
	c.setFlag(FlagCreated, raw.LocallyCreated)
	c.setFlag(FlagModified, raw.LocallyModified)
	c.setFlag(FlagUpdated, raw.LocallyUpdated)
	c.setFlag(FlagDeleted, raw.LocallyDeleted)
	return nil
}
