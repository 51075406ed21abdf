package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/authsession/internal/adapter/driven/authapi"
	"github.com/ericfisherdev/authsession/internal/adapter/driven/filestore"
	"github.com/ericfisherdev/authsession/internal/adapter/driven/jwtclaims"
	sqliteadapter "github.com/ericfisherdev/authsession/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/authsession/internal/adapter/driven/upstream"
	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/config"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// claimsCacheSize bounds the decoded-claims LRU; a session only ever sees a
// handful of distinct tokens between restarts.
const claimsCacheSize = 32

// app is the composition root shared by every subcommand.
type app struct {
	cfg      *config.Config
	session  *application.SessionState
	store    *application.TokenStore
	endpoint *authapi.Client
	client   *application.AuthenticatedClient

	stopBridge func()
	closeSlots func() error
}

// newApp wires adapters and services and restores any persisted session.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	slots, closeSlots, err := openSlotStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	decoder, err := jwtclaims.NewCachingDecoder(jwtclaims.NewDecoder(), claimsCacheSize)
	if err != nil {
		_ = closeSlots()
		return nil, err
	}

	session := application.NewSessionState(slots, decoder, logger)
	store := application.NewTokenStore()
	stopBridge := application.NewBridge(session, store, logger).Start()

	if session.Restore(ctx) {
		logger.Info("persisted session restored")
	}

	// Cached upstream responses belong to one credential; drop them whenever
	// the token pair changes.
	httpClient, responseCache := upstream.NewHTTPClient(cfg.RequestTimeout)
	stopCacheReset := store.OnChange(responseCache.Reset)

	endpoint := authapi.NewClient(cfg.RefreshURL, cfg.LogoutURL, cfg.RefreshTimeout)
	client := application.NewAuthenticatedClient(
		store,
		endpoint,
		httpClient,
		cfg.RefreshTimeout,
		logger,
	)

	return &app{
		cfg:        cfg,
		session:    session,
		store:      store,
		endpoint:   endpoint,
		client:     client,
		stopBridge: func() {
			stopCacheReset()
			stopBridge()
		},
		closeSlots: closeSlots,
	}, nil
}

// Close stops the bridge and cache listener and releases the slot store.
func (a *app) Close() {
	a.stopBridge()
	if err := a.closeSlots(); err != nil {
		slog.Error("error closing session store", "error", err)
	}
}

// openSlotStore selects the configured slot store. The sqlite store requires
// AUTHSESSION_SECRET_KEY; without it the session is kept in memory only.
func openSlotStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driven.SlotStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreFile:
		path := cfg.StoreFile
		if path == "" {
			p, err := filestore.DefaultPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		store, err := filestore.New(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session store opened", "kind", cfg.Store, "path", path)
		return store, noop, nil

	case config.StoreSQLite:
		if !cfg.HasSecretKey() {
			logger.Warn("AUTHSESSION_SECRET_KEY not set, session will not be persisted")
			return nil, noop, nil
		}

		key, err := sqliteadapter.DeriveKey(cfg.SecretKey)
		if err != nil {
			return nil, nil, err
		}

		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		version, err := sqliteadapter.Migrate(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("session store opened", "kind", cfg.Store, "path", db.Path(), "schema_version", version)
		return sqliteadapter.NewSlotRepo(db, key), db.Close, nil
	}

	return nil, nil, errors.New("unknown session store: " + string(cfg.Store))
}
