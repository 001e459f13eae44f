package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
)

func TestEntryToURL(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
	}{
		{name: "nil", entry: nil, want: ""},
		{
			name:  "ipv4",
			entry: &mdns.ServiceEntry{AddrV4: net.ParseIP("192.168.1.20"), Port: 8765, InfoFields: []string{"api=v1"}},
			want:  "http://192.168.1.20:8765",
		},
		{
			name:  "ipv6 only",
			entry: &mdns.ServiceEntry{AddrV6: net.ParseIP("fe80::1"), Port: 8765, InfoFields: []string{"api=v1"}},
			want:  "http://[fe80::1]:8765",
		},
		{
			name:  "other api version",
			entry: &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.2"), Port: 8765, InfoFields: []string{"api=v2"}},
			want:  "",
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Port: 8765, InfoFields: []string{"api=v1"}},
			want:  "",
		},
		{
			name:  "no port",
			entry: &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.2"), InfoFields: []string{"api=v1"}},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryToURL(tt.entry))
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	a := NewAnnouncer("test", 8765, nil)
	assert.NotPanics(t, a.Stop)
}

func TestLookupCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Lookup(ctx, time.Minute, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
