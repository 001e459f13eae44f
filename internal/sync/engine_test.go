package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"contacts/internal/errdecode"
	"contacts/internal/models"
	"contacts/internal/server"
	"contacts/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	remote *server.Server
	store  *storage.Store
	engine *Engine
}

func newFixture(t *testing.T, shape string) *fixture {
	t.Helper()

	remote := server.New(0, nil)
	ts := httptest.NewServer(remote.Handler())
	t.Cleanup(ts.Close)

	store, err := storage.Open(filepath.Join(t.TempDir(), "contacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := NewEngine(NewClient(ts.URL), store, shape, zaptest.NewLogger(t).Sugar())
	return &fixture{remote: remote, store: store, engine: engine}
}

func (f *fixture) save(t *testing.T, c models.Contact) models.Contact {
	t.Helper()
	require.NoError(t, f.store.SaveContact(c))
	return c
}

func TestSyncUpCreatesRemoteRecord(t *testing.T) {
	f := newFixture(t, errdecode.ShapeEnvelope)

	c := models.NewContact()
	c.FirstName, c.LastName = "Ada", "Lovelace"
	c.MarkSaved()
	f.save(t, c)

	report, err := f.engine.SyncUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)

	got, err := f.store.GetContact(c.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.RemoteID)
	assert.False(t, got.Local())
	assert.Empty(t, got.LastError)
}

func TestSyncUpFailureRecordsDecodableError(t *testing.T) {
	for _, shape := range []string{errdecode.ShapeArray, errdecode.ShapeEnvelope} {
		t.Run(shape, func(t *testing.T) {
			f := newFixture(t, shape)

			c := models.NewContact()
			c.FirstName = "No last name"
			c.MarkSaved()
			f.save(t, c)

			report, err := f.engine.SyncUp(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, report.Failed)

			got, err := f.store.GetContact(c.ID)
			require.NoError(t, err)
			assert.True(t, got.Is(models.FlagUpdated), "flags survive a failed push")
			require.NotEmpty(t, got.LastError)

			decoder, err := errdecode.ForShape(shape)
			require.NoError(t, err)
			msg, err := decoder.Extract(got.LastError)
			require.NoError(t, err)
			assert.Equal(t, "Required fields are missing: [LastName]", msg)
		})
	}
}

func TestSyncUpUpdatesAndDeletes(t *testing.T) {
	f := newFixture(t, errdecode.ShapeEnvelope)

	kept := f.remote.Seed(server.Contact{FirstName: "Grace", LastName: "Hopper"})
	gone := f.remote.Seed(server.Contact{FirstName: "Alan", LastName: "Turing"})

	_, err := f.engine.SyncDown(context.Background())
	require.NoError(t, err)

	local, err := f.store.FindByRemoteID(kept.ID)
	require.NoError(t, err)
	local.Title = "Rear Admiral"
	local.MarkSaved()
	f.save(t, local)

	toDelete, err := f.store.FindByRemoteID(gone.ID)
	require.NoError(t, err)
	toDelete.ToggleDeleted()
	f.save(t, toDelete)

	report, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Pulled)

	_, err = f.store.GetContact(toDelete.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := f.store.FindByRemoteID(kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rear Admiral", updated.Title)
	assert.False(t, updated.Local())

	last, err := f.store.LastSync()
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestDeletedBeforeFirstPushIsDroppedLocally(t *testing.T) {
	f := newFixture(t, errdecode.ShapeEnvelope)

	c := models.NewContact()
	c.ToggleDeleted()
	f.save(t, c)

	report, err := f.engine.SyncUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)

	_, err = f.store.GetContact(c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSyncDownKeepsLocalEdits(t *testing.T) {
	f := newFixture(t, errdecode.ShapeEnvelope)

	rc := f.remote.Seed(server.Contact{FirstName: "Remote", LastName: "Name"})
	_, err := f.engine.SyncDown(context.Background())
	require.NoError(t, err)

	local, err := f.store.FindByRemoteID(rc.ID)
	require.NoError(t, err)
	local.FirstName = "Local"
	local.MarkSaved()
	f.save(t, local)

	report, err := f.engine.SyncDown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Pulled)

	got, err := f.store.GetContact(local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local", got.FirstName)
}

func TestSyncDownRemovesStaleCleanRecords(t *testing.T) {
	f := newFixture(t, errdecode.ShapeEnvelope)

	stale := models.Contact{ID: "local-1", RemoteID: "003gone", LastName: "Stale"}
	f.save(t, stale)

	report, err := f.engine.SyncDown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)

	_, err = f.store.GetContact("local-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	payload := encodeLastError(errdecode.ShapeEnvelope, errors.New("dial tcp: connection refused"))

	msg, err := errdecode.EnvelopeDecoder{}.Extract(payload)
	require.NoError(t, err)
	assert.Contains(t, msg, "connection refused")

	payload = encodeLastError(errdecode.ShapeArray, &APIError{StatusCode: http.StatusBadGateway, Body: []byte("<html>bad gateway</html>")})
	msg, err = errdecode.ArrayDecoder{}.Extract(payload)
	require.NoError(t, err)
	assert.Contains(t, msg, "502")
}

func TestNewClientAddsScheme(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", NewClient("localhost:8080/").BaseURL())
	assert.Equal(t, "https://example.com", NewClient("https://example.com").BaseURL())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsNotFound(&APIError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsNotFound(errors.New("x")))
}
