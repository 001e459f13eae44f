// Command contacts-server runs the in-memory contacts REST service that the
// contacts app syncs against.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contacts/internal/config"
	"contacts/internal/discovery"
	"contacts/internal/logging"
	"contacts/internal/server"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("contacts-server", pflag.ExitOnError)
	config.Flags(fs)
	fs.Bool("seed", false, "Start with a few sample contacts")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs, os.Stderr)
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.Verbose, cfg.Debug)
	defer log.Sync()

	srv := server.New(cfg.ServerPort, log)
	if seed, _ := fs.GetBool("seed"); seed {
		for _, c := range sampleContacts {
			srv.Seed(c)
		}
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	fmt.Fprintf(os.Stderr, "contacts-server: listening on :%d\n", srv.Port())

	if cfg.Announce {
		host, _ := os.Hostname()
		if host == "" {
			host = "contacts"
		}
		a := discovery.NewAnnouncer(host, srv.Port(), log)
		if err := a.Start(); err != nil {
			log.Warnw("mDNS announce failed", "error", err)
		} else {
			defer a.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Infow("shutting down")
	return nil
}

var sampleContacts = []server.Contact{
	{FirstName: "Ada", LastName: "Lovelace", Title: "Analyst", Email: "ada@example.com"},
	{FirstName: "Grace", LastName: "Hopper", Title: "Rear Admiral", Phone: "555-0100"},
	{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
}
