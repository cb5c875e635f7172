package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"evcal/src-server/model"
	"evcal/src-server/store"

	"github.com/uptrace/bun"
)

type AppState struct {
	Config      *Config
	RawDb       *sql.DB
	BunDB       *bun.DB
	Store       *store.Store
	MetricChans *Metric

	// closed by GracefulShutdown, one per long-lived goroutine
	gracefulShutdownChans map[*chan struct{}]struct{}
	gracefulShutdownMu    sync.Mutex
	gracefulShutdownDone  bool

	AppCloseSignalChan chan os.Signal
}

// NewAppState reads the environment and opens the database, exiting on failure.
func NewAppState() *AppState {
	as, err := NewAppStateFromConfig(context.Background(), NewConfig())
	if err != nil {
		slog.Error("can't init app state", "error", err)
		os.Exit(1)
	}
	return as
}

// NewAppStateFromConfig opens the database named by cfg, creates the schema
// and applies the seed file when one is configured.
func NewAppStateFromConfig(ctx context.Context, cfg *Config) (*AppState, error) {
	as := &AppState{
		Config:             cfg,
		MetricChans:        NewMetric(),
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	var err error
	as.BunDB, err = store.Open(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("NewAppStateFromConfig: %w", err)
	}
	as.RawDb = as.BunDB.DB

	if err := model.CreateSchema(ctx, as.BunDB); err != nil {
		as.BunDB.Close()
		return nil, fmt.Errorf("NewAppStateFromConfig: %w", err)
	}
	if seedFile := cfg.GetSeedFile(); seedFile != "" {
		seed, err := model.LoadSeed(seedFile)
		if err != nil {
			as.BunDB.Close()
			return nil, fmt.Errorf("NewAppStateFromConfig: %w", err)
		}
		if err := seed.Apply(ctx, as.BunDB); err != nil {
			as.BunDB.Close()
			return nil, fmt.Errorf("NewAppStateFromConfig: %w", err)
		}
		slog.Info("seed applied", "venues", len(seed.Venues), "events", len(seed.Events))
	}

	as.Store = store.New(as.BunDB, cfg.GetVenueCollation())
	as.Store.OnRead = func(d time.Duration) {
		as.MetricChans.ObserveDatabaseRead(float64(d.Microseconds()))
	}
	as.Store.OnWrite = func(d time.Duration) {
		as.MetricChans.ObserveDatabaseWrite(float64(d.Microseconds()))
	}
	return as, nil
}

// CreateGracefulShutdownChan registers a channel that is closed on shutdown.
// Goroutines that end before shutdown hand it back with
// ReleaseGracefulShutdownChan.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	ch := make(chan struct{})
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	if as.gracefulShutdownDone {
		close(ch)
		return &ch
	}
	if as.gracefulShutdownChans == nil {
		as.gracefulShutdownChans = make(map[*chan struct{}]struct{})
	}
	as.gracefulShutdownChans[&ch] = struct{}{}
	return &ch
}

// ReleaseGracefulShutdownChan unregisters ch without closing it.
func (as *AppState) ReleaseGracefulShutdownChan(ch *chan struct{}) {
	as.gracefulShutdownMu.Lock()
	defer as.gracefulShutdownMu.Unlock()
	delete(as.gracefulShutdownChans, ch)
}

// GracefulShutdown stops every registered goroutine and closes the database.
// Calling it more than once is a no-op.
func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMu.Lock()
	if as.gracefulShutdownDone {
		as.gracefulShutdownMu.Unlock()
		return
	}
	as.gracefulShutdownDone = true
	for ch := range as.gracefulShutdownChans {
		close(*ch)
	}
	as.gracefulShutdownChans = nil
	as.gracefulShutdownMu.Unlock()

	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
	}
}
