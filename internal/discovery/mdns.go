// Package discovery announces a contacts server over mDNS and finds one from
// the client side.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"
)

func init() {
	// hashicorp/mdns reports every closed client through the std logger.
	log.SetOutput(io.Discard)
}

const (
	ServiceType = "_contacts._tcp"
	Domain      = "local."

	apiVersion = "v1"
)

var ErrNoServer = errors.New("no contacts server found")

// Announcer publishes a running contacts server on the local network.
type Announcer struct {
	server *mdns.Server
	name   string
	port   int
	log    *zap.SugaredLogger
}

func NewAnnouncer(name string, port int, log *zap.SugaredLogger) *Announcer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Announcer{name: name, port: port, log: log}
}

func (a *Announcer) Start() error {
	host, err := getOutboundIP()
	if err != nil {
		host = "127.0.0.1"
	}

	service, err := mdns.NewMDNSService(
		a.name,
		ServiceType,
		Domain,
		"",
		a.port,
		[]net.IP{net.ParseIP(host)},
		[]string{"api=" + apiVersion},
	)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mDNS server: %w", err)
	}

	a.server = server
	a.log.Infow("announcing contacts server", "name", a.name, "host", host, "port", a.port)
	return nil
}

func (a *Announcer) Stop() {
	if a.server != nil {
		a.server.Shutdown()
	}
}

// Lookup queries the network once and returns the base URL of the first
// contacts server that answers within timeout.
func Lookup(ctx context.Context, timeout time.Duration, log *zap.SugaredLogger) (string, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entriesCh := make(chan *mdns.ServiceEntry, 10)
	found := make(chan string, 1)

	go func() {
		for entry := range entriesCh {
			if url := entryToURL(entry); url != "" {
				select {
				case found <- url:
				default:
				}
			}
		}
	}()

	// IPv6 is unreliable on Windows with this library.
	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      Domain,
		Timeout:     timeout,
		Entries:     entriesCh,
		DisableIPv6: true,
	}

	// Query runs for params.Timeout; ctx only cuts the wait short.
	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entriesCh)
	}()

	select {
	case url := <-found:
		log.Infow("discovered contacts server", "url", url)
		return url, nil
	case err := <-queryErr:
		select {
		case url := <-found:
			return url, nil
		default:
		}
		if err != nil && !strings.Contains(err.Error(), "not supported") {
			return "", fmt.Errorf("mDNS query failed: %w", err)
		}
		return "", ErrNoServer
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func entryToURL(entry *mdns.ServiceEntry) string {
	if entry == nil || entry.Port == 0 {
		return ""
	}

	supported := false
	for _, txt := range entry.InfoFields {
		if txt == "api="+apiVersion {
			supported = true
			break
		}
	}
	if !supported {
		return ""
	}

	var host string
	if entry.AddrV4 != nil {
		host = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		host = entry.AddrV6.String()
	}
	if host == "" {
		return ""
	}

	return "http://" + net.JoinHostPort(host, strconv.Itoa(entry.Port))
}

func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
