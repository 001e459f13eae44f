package storage

import (
	"path/filepath"
	"testing"
	"time"

	"contacts/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "contacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetContact(t *testing.T) {
	s := openTestStore(t)

	c := models.NewContact()
	c.FirstName = "Grace"
	c.LastError = `[{"message":"Bad phone"}]`
	require.NoError(t, s.SaveContact(c))

	got, err := s.GetContact(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, c.Flags, got.Flags)
	assert.Equal(t, c.LastError, got.LastError)
}

func TestSaveContactRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SaveContact(models.Contact{FirstName: "x"}))
}

func TestGetMissingContact(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetContact("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteContactIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	c := models.NewContact()
	require.NoError(t, s.SaveContact(c))
	require.NoError(t, s.DeleteContact(c.ID))
	require.NoError(t, s.DeleteContact(c.ID))

	_, err := s.GetContact(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListContactsSorted(t *testing.T) {
	s := openTestStore(t)

	for _, name := range [][2]string{{"Alan", "Turing"}, {"Ada", "Lovelace"}, {"Barbara", "liskov"}} {
		c := models.NewContact()
		c.FirstName, c.LastName = name[0], name[1]
		require.NoError(t, s.SaveContact(c))
	}

	list, err := s.ListContacts()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "liskov", list[0].LastName)
	assert.Equal(t, "Lovelace", list[1].LastName)
	assert.Equal(t, "Turing", list[2].LastName)
}

func TestFindByRemoteID(t *testing.T) {
	s := openTestStore(t)

	c := models.NewContact()
	c.RemoteID = "003xx"
	require.NoError(t, s.SaveContact(c))

	got, err := s.FindByRemoteID("003xx")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.FindByRemoteID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByRemoteID("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastSync(t *testing.T) {
	s := openTestStore(t)

	zero, err := s.LastSync()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(now))

	got, err := s.LastSync()
	require.NoError(t, err)
	assert.True(t, now.Equal(got))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.db")
	s, err := Open(path)
	require.NoError(t, err)

	c := models.NewContact()
	c.Email = "keep@example.com"
	require.NoError(t, s.SaveContact(c))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetContact(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep@example.com", got.Email)
}
