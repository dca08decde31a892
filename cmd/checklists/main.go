package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuskit/checklists/internal/cache"
	"github.com/campuskit/checklists/internal/credential"
	"github.com/campuskit/checklists/internal/model"
	"github.com/campuskit/checklists/internal/remote"
	"github.com/campuskit/checklists/internal/session"
	"github.com/campuskit/checklists/internal/store"
	syncmgr "github.com/campuskit/checklists/internal/sync"
	"github.com/campuskit/checklists/internal/ui"
	"github.com/campuskit/checklists/internal/ui/setup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	reconfigure := flag.Bool("setup", false, "rerun the connection setup form")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	token, tokenErr := credential.Get(credential.TokenKey)
	if *reconfigure || cfg.Service.BaseURL == "" || cfg.Service.UserID == "" || tokenErr != nil {
		if cfg, err = setup.Run(*configPath, cfg); err != nil {
			return err
		}
		if token, err = credential.Get(credential.TokenKey); err != nil {
			return fmt.Errorf("reading stored token: %w", err)
		}
	}

	svc := remote.NewClient(
		cfg.Service.BaseURL,
		token,
		time.Duration(cfg.Service.RequestTimeoutSec)*time.Second,
	)

	var snap syncmgr.Snapshots
	if !cfg.Cache.Disabled {
		c, err := cache.New(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer c.Close()
		snap = c
	}

	st := store.New()
	mgr := syncmgr.NewManager(st, svc, snap)

	notifier := session.NewNotifier()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Watch(ctx, notifier)

	notifier.SignIn(session.Session{UserID: cfg.Service.UserID, Token: token})

	program := tea.NewProgram(ui.New(st, mgr), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}

	notifier.SignOut()
	return nil
}
