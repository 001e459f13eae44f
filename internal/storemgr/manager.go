// Package storemgr is the single entry point screens use to persist contacts.
// Every operation takes the record by value and returns the confirmed state.
package storemgr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contacts/internal/models"
	"contacts/internal/storage"
	contactsync "contacts/internal/sync"

	"go.uber.org/zap"
)

var (
	ErrTimeout      = errors.New("store operation timed out")
	ErrSyncDisabled = errors.New("sync is not configured")
)

const DefaultTimeout = 5 * time.Second

type Manager struct {
	store   *storage.Store
	engine  *contactsync.Engine
	timeout time.Duration
	log     *zap.SugaredLogger

	// lock serializes store access, sync included. It is a channel so a
	// waiting caller can give up when its context ends.
	lock chan struct{}
}

// New wires a manager over store. engine may be nil when no sync server is
// configured.
func New(store *storage.Store, engine *contactsync.Engine, timeout time.Duration, log *zap.SugaredLogger) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		store:   store,
		engine:  engine,
		timeout: timeout,
		log:     log,
		lock:    make(chan struct{}, 1),
	}
}

func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

func (m *Manager) SyncEnabled() bool {
	return m.engine != nil
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.lock <- struct{}{}:
		if ctx.Err() != nil {
			m.release()
			return ctxErr(ctx)
		}
		return nil
	case <-ctx.Done():
		return ctxErr(ctx)
	}
}

func (m *Manager) release() {
	<-m.lock
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

// run bounds fn by the manager timeout so callers always get an answer. fn
// only starts once the lock is held, so an operation that times out while
// waiting never touches the store.
func run[T any](ctx context.Context, m *Manager, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var zero T
	if err := m.acquire(ctx); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer m.release()
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctxErr(ctx)
	}
}

// SaveContact persists c. When the editable fields differ from the stored
// copy the record is also marked modified. Sync owns the remote id and the
// created flag, so a copy taken before a sync cannot roll them back.
func (m *Manager) SaveContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	saved, err := run(ctx, m, func() (models.Contact, error) {
		stored, err := m.store.GetContact(c.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			if !c.SameFields(models.Contact{}) {
				c.MarkModified()
			}
		case err != nil:
			return c, fmt.Errorf("failed to load contact: %w", err)
		default:
			mergeSyncState(&c, stored)
			if !stored.SameFields(c) {
				c.MarkModified()
			}
		}

		c.UpdatedAt = time.Now()
		if err := m.store.SaveContact(c); err != nil {
			return c, fmt.Errorf("failed to save contact: %w", err)
		}
		return c, nil
	})
	if err != nil {
		m.log.Warnw("save failed", "id", c.ID, "error", err)
		return c, err
	}
	m.log.Infow("contact saved", "id", saved.ID, "flags", saved.Flags.String())
	return saved, nil
}

func mergeSyncState(c *models.Contact, stored models.Contact) {
	if c.RemoteID == "" {
		c.RemoteID = stored.RemoteID
	}
	if !stored.Is(models.FlagCreated) {
		c.Flags &^= models.FlagCreated
	}
}

// DeleteContact removes c from the local store outright. Soft deletes go
// through SaveContact with the deleted flag set.
func (m *Manager) DeleteContact(ctx context.Context, c models.Contact) error {
	_, err := run(ctx, m, func() (struct{}, error) {
		if err := m.store.DeleteContact(c.ID); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete contact: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		m.log.Warnw("delete failed", "id", c.ID, "error", err)
		return err
	}
	m.log.Infow("contact deleted", "id", c.ID)
	return nil
}

// CreateContact stores a blank, locally created record.
func (m *Manager) CreateContact(ctx context.Context) (models.Contact, error) {
	return run(ctx, m, func() (models.Contact, error) {
		c := models.NewContact()
		if err := m.store.SaveContact(c); err != nil {
			return c, fmt.Errorf("failed to create contact: %w", err)
		}
		return c, nil
	})
}

func (m *Manager) List(ctx context.Context) ([]models.Contact, error) {
	return run(ctx, m, func() ([]models.Contact, error) {
		return m.store.ListContacts()
	})
}

func (m *Manager) Get(ctx context.Context, id string) (models.Contact, error) {
	return run(ctx, m, func() (models.Contact, error) {
		return m.store.GetContact(id)
	})
}

// LastSync returns the zero time when no sync has completed yet.
func (m *Manager) LastSync(ctx context.Context) (time.Time, error) {
	return run(ctx, m, func() (time.Time, error) {
		return m.store.LastSync()
	})
}

// Sync is not bounded by the store timeout; the HTTP client has its own.
// The lock is held for the whole round trip because the engine writes pushed
// records back, and a save landing in between would be overwritten.
func (m *Manager) Sync(ctx context.Context) (contactsync.Report, error) {
	if m.engine == nil {
		return contactsync.Report{}, ErrSyncDisabled
	}
	if err := m.acquire(ctx); err != nil {
		return contactsync.Report{}, err
	}
	defer m.release()

	report, err := m.engine.Sync(ctx)
	if err != nil {
		m.log.Warnw("sync failed", "error", err)
		return report, err
	}
	return report, nil
}
