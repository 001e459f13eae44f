package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"contacts/internal/errdecode"
	"contacts/internal/models"
	"contacts/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Report struct {
	Pushed  int
	Deleted int
	Failed  int
	Pulled  int
	Removed int
}

func (r Report) String() string {
	return fmt.Sprintf("pushed %d, deleted %d, failed %d, pulled %d, removed %d",
		r.Pushed, r.Deleted, r.Failed, r.Pulled, r.Removed)
}

type Engine struct {
	client *Client
	store  *storage.Store
	shape  string
	log    *zap.SugaredLogger
	mu     sync.Mutex
}

// NewEngine builds an engine that records push failures on the contact in the
// given error shape (errdecode.ShapeArray or errdecode.ShapeEnvelope).
func NewEngine(client *Client, store *storage.Store, shape string, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		client: client,
		store:  store,
		shape:  shape,
		log:    log,
	}
}

// Sync pushes local changes, then pulls the server's records.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report, err := e.syncUp(ctx)
	if err != nil {
		return report, err
	}

	down, err := e.syncDown(ctx)
	report.Pulled = down.Pulled
	report.Removed = down.Removed
	if err != nil {
		return report, err
	}

	if err := e.store.SetLastSync(time.Now()); err != nil {
		return report, fmt.Errorf("failed to record sync time: %w", err)
	}
	e.log.Infow("sync complete", "report", report.String())
	return report, nil
}

func (e *Engine) SyncUp(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncUp(ctx)
}

func (e *Engine) SyncDown(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncDown(ctx)
}

func (e *Engine) syncUp(ctx context.Context) (Report, error) {
	var report Report

	contacts, err := e.store.ListContacts()
	if err != nil {
		return report, fmt.Errorf("failed to list contacts: %w", err)
	}

	for _, c := range contacts {
		if !c.Local() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		deleted, err := e.push(ctx, &c)
		if err != nil {
			report.Failed++
			c.LastError = encodeLastError(e.shape, err)
			e.log.Warnw("failed to push contact", "id", c.ID, "flags", c.Flags.String(), "error", err)
			if saveErr := e.store.SaveContact(c); saveErr != nil {
				return report, fmt.Errorf("failed to record push error: %w", saveErr)
			}
			continue
		}

		if deleted {
			if err := e.store.DeleteContact(c.ID); err != nil {
				return report, fmt.Errorf("failed to remove deleted contact: %w", err)
			}
			report.Deleted++
			continue
		}

		c.ClearSyncState()
		if err := e.store.SaveContact(c); err != nil {
			return report, fmt.Errorf("failed to save synced contact: %w", err)
		}
		report.Pushed++
	}

	return report, nil
}

// push sends one dirty record to the server and reports whether the record
// should now be removed locally.
func (e *Engine) push(ctx context.Context, c *models.Contact) (bool, error) {
	switch {
	case c.Is(models.FlagDeleted):
		if c.RemoteID == "" {
			return true, nil
		}
		if err := e.client.DeleteContact(ctx, c.RemoteID); err != nil && !IsNotFound(err) {
			return false, err
		}
		return true, nil

	case c.RemoteID == "":
		created, err := e.client.CreateContact(ctx, toRemote(*c))
		if err != nil {
			return false, err
		}
		c.RemoteID = created.ID
		return false, nil

	default:
		return false, e.client.UpdateContact(ctx, c.RemoteID, toRemote(*c))
	}
}

func (e *Engine) syncDown(ctx context.Context) (Report, error) {
	var report Report

	remote, err := e.client.ListContacts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch remote contacts: %w", err)
	}

	seen := make(map[string]bool, len(remote))
	for _, rc := range remote {
		seen[rc.ID] = true

		local, err := e.store.FindByRemoteID(rc.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			local = models.Contact{ID: uuid.NewString(), RemoteID: rc.ID}
		case err != nil:
			return report, err
		case local.Local():
			// local edits win until they are pushed
			continue
		}

		applyRemote(&local, rc)
		if err := e.store.SaveContact(local); err != nil {
			return report, fmt.Errorf("failed to save pulled contact: %w", err)
		}
		report.Pulled++
	}

	contacts, err := e.store.ListContacts()
	if err != nil {
		return report, fmt.Errorf("failed to list contacts: %w", err)
	}
	for _, c := range contacts {
		if c.RemoteID == "" || c.Local() || seen[c.RemoteID] {
			continue
		}
		if err := e.store.DeleteContact(c.ID); err != nil {
			return report, fmt.Errorf("failed to remove stale contact: %w", err)
		}
		report.Removed++
	}

	return report, nil
}

func toRemote(c models.Contact) RemoteContact {
	return RemoteContact{
		ID:        c.RemoteID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Title:     c.Title,
		Phone:     c.Phone,
		Email:     c.Email,
	}
}

func applyRemote(c *models.Contact, rc RemoteContact) {
	c.FirstName = rc.FirstName
	c.LastName = rc.LastName
	c.Title = rc.Title
	c.Phone = rc.Phone
	c.Email = rc.Email
	c.UpdatedAt = time.Now()
	c.ClearSyncState()
}

type restError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// encodeLastError renders err as the payload stored on the contact. Server
// errors keep their JSON body; anything else is wrapped in a one-element list
// so both decoders can read it.
func encodeLastError(shape string, err error) string {
	status := 0
	var body json.RawMessage

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		if json.Valid(apiErr.Body) {
			body = apiErr.Body
		}
	}
	if body == nil {
		body, _ = json.Marshal([]restError{{Message: err.Error(), ErrorCode: "CLIENT_ERROR"}})
	}

	if shape == errdecode.ShapeArray {
		return string(body)
	}

	data, _ := json.Marshal(struct {
		StatusCode int             `json:"statusCode"`
		Body       json.RawMessage `json:"body"`
	}{status, body})
	return string(data)
}
