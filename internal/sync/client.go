package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// RemoteContact is the server's view of a contact.
type RemoteContact struct {
	ID        string `json:"Id,omitempty"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Title     string `json:"Title"`
	Phone     string `json:"Phone"`
	Email     string `json:"Email"`
}

// APIError keeps the raw response body; it becomes the contact's last error
// payload when a push fails.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sync api returned %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) ListContacts(ctx context.Context) ([]RemoteContact, error) {
	var result []RemoteContact
	if err := c.do(ctx, http.MethodGet, "/v1/contacts", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateContact(ctx context.Context, rc RemoteContact) (RemoteContact, error) {
	var result RemoteContact
	if err := c.do(ctx, http.MethodPost, "/v1/contacts", rc, &result); err != nil {
		return RemoteContact{}, err
	}
	if result.ID == "" {
		return RemoteContact{}, fmt.Errorf("server did not assign an id")
	}
	return result, nil
}

func (c *Client) UpdateContact(ctx context.Context, id string, rc RemoteContact) error {
	return c.do(ctx, http.MethodPatch, "/v1/contacts/"+url.PathEscape(id), rc, nil)
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/contacts/"+url.PathEscape(id), nil, nil)
}
