package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"contacts/internal/config"
	"contacts/internal/discovery"
	"contacts/internal/errdecode"
	"contacts/internal/imageload"
	"contacts/internal/logging"
	"contacts/internal/storage"
	"contacts/internal/storemgr"
	contactsync "contacts/internal/sync"
	"contacts/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const discoveryTimeout = 3 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("contacts", pflag.ExitOnError)
	config.Flags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs, os.Stderr)
	if err != nil {
		return err
	}

	logFile, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logging.New(logFile, cfg.Verbose, cfg.Debug)
	defer log.Sync()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	log.Infow("store opened", "path", store.Path())

	mgr := storemgr.New(store, newEngine(cfg, store, log), cfg.SaveTimeout, log)

	decoder, err := errdecode.ForShape(cfg.ErrorShape)
	if err != nil {
		return err
	}

	opts := tui.ContactOptions{
		Decoder:    decoder,
		Images:     imageload.New(nil, log),
		ImageURL:   cfg.ImageURL,
		PopOnError: cfg.PopOnError,
		Log:        log,
	}

	app := tui.NewApp(tui.NewListScreen(mgr, opts), log)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// newEngine returns nil when no sync server is configured or found.
func newEngine(cfg *config.Config, store *storage.Store, log *zap.SugaredLogger) *contactsync.Engine {
	serverURL := cfg.ServerURL
	if serverURL == "" && cfg.Discover {
		ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout+time.Second)
		defer cancel()

		url, err := discovery.Lookup(ctx, discoveryTimeout, log)
		switch {
		case errors.Is(err, discovery.ErrNoServer):
			log.Infow("no contacts server on the local network")
		case err != nil:
			log.Warnw("server discovery failed", "error", err)
		default:
			serverURL = url
		}
	}
	if serverURL == "" {
		return nil
	}

	log.Infow("sync enabled", "server", serverURL, "error_shape", cfg.ErrorShape)
	return contactsync.NewEngine(contactsync.NewClient(serverURL), store, cfg.ErrorShape, log)
}
