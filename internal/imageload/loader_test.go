package imageload

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStartThenFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer ts.Close()

	l := New(ts.Client(), zaptest.NewLogger(t).Sugar())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234 * time.Millisecond)}
	l.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	start, ok := l.Start("s-1", ts.URL)().(ImageLoadStartMsg)
	require.True(t, ok)
	assert.Equal(t, ts.URL, start.URL)
	assert.Equal(t, "s-1", start.ID)

	done, ok := l.Fetch(start.ID, ts.URL)().(ImageLoadedMsg)
	require.True(t, ok)
	assert.Equal(t, "s-1", done.ID)
	require.NoError(t, done.Err)
	assert.Equal(t, 2048, done.Bytes)
	assert.Equal(t, int64(1234), Elapsed(start, done))
}

func TestFetchReportsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	l := New(ts.Client(), zaptest.NewLogger(t).Sugar())
	done := l.Fetch("s-1", ts.URL)().(ImageLoadedMsg)
	assert.ErrorContains(t, done.Err, "404")
	assert.False(t, done.At.IsZero())
}

func TestFetchBadURL(t *testing.T) {
	done := New(nil, nil).Fetch("s-1", "://bad")().(ImageLoadedMsg)
	assert.Error(t, done.Err)
}
