// Package imageload fetches the contact screen image and reports when the
// fetch started and finished.
package imageload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const maxImageBytes = 16 << 20

// ID ties a start and end pair to the screen that asked for the load.
type ImageLoadStartMsg struct {
	ID  string
	URL string
	At  time.Time
}

type ImageLoadedMsg struct {
	ID    string
	URL   string
	At    time.Time
	Bytes int
	Err   error
}

// Elapsed is the load time in whole milliseconds.
func Elapsed(start ImageLoadStartMsg, done ImageLoadedMsg) int64 {
	return done.At.Sub(start.At).Milliseconds()
}

type Loader struct {
	client *http.Client
	log    *zap.SugaredLogger
	now    func() time.Time
}

func New(client *http.Client, log *zap.SugaredLogger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loader{client: client, log: log, now: time.Now}
}

// Start emits the start event for url. The screen answers it with Fetch.
func (l *Loader) Start(id, url string) tea.Cmd {
	return func() tea.Msg {
		return ImageLoadStartMsg{ID: id, URL: url, At: l.now()}
	}
}

func (l *Loader) Fetch(id, url string) tea.Cmd {
	return func() tea.Msg {
		n, err := l.fetch(context.Background(), url)
		if err != nil {
			l.log.Warnw("image load failed", "url", url, "error", err)
		}
		return ImageLoadedMsg{ID: id, URL: url, At: l.now(), Bytes: n, Err: err}
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return int(n), fmt.Errorf("failed to read image: %w", err)
	}
	return int(n), nil
}
