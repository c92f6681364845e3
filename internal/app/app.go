// Package app is the composition root: it loads configuration, opens the
// persistence layer, builds the API client and the state stores, resolves
// the initial session, and runs the TUI until the context ends.
package app

import (
	"context"
	"fmt"

	"github.com/davrell/shopfront/internal/api"
	"github.com/davrell/shopfront/internal/cart"
	"github.com/davrell/shopfront/internal/catalog"
	"github.com/davrell/shopfront/internal/checkout"
	"github.com/davrell/shopfront/internal/config"
	"github.com/davrell/shopfront/internal/logging"
	"github.com/davrell/shopfront/internal/prefs"
	"github.com/davrell/shopfront/internal/session"
	"github.com/davrell/shopfront/internal/storage"
	"github.com/davrell/shopfront/internal/ui"
)

// Options configure the Shopfront application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/shopfront/prefs.toml
}

// Run boots the Shopfront TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs := prefs.Load(opts.PrefsPath)

	logger, logCloser, err := logging.New(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	store, err := storage.Open(ctx, cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open slot store: %w", err)
	}
	defer func() { _ = store.Close() }()

	jar, err := api.NewJar(cfg.CookiePath())
	if err != nil {
		return fmt.Errorf("open cookie jar: %w", err)
	}

	client, err := api.NewClient(cfg.APIBase, jar, cfg.Timeout())
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	products := catalog.New(ctx, client, store, logger)
	engine := cart.New(ctx, client, store, jar, products, logger)
	sess := session.New(ctx, client, store, engine, logger)
	orders := checkout.New(client, engine, logger)

	// Resolve the persisted session before the UI starts. Verification
	// failure just means the visitor browses as a guest.
	if err := sess.Verify(ctx); err != nil {
		logger.Warn("session verify", "error", err)
	}
	if !sess.Snapshot().Authenticated() {
		engine.RefreshGuest(ctx)
	}

	// Populate the catalog. The guest derivation above runs first on
	// purpose: a failed load empties the list and persists the emptied
	// baseline, so it must not precede the cart's product lookups.
	if err := products.LoadAll(ctx); err != nil {
		logger.Warn("initial catalog load", "error", err)
	}

	uiOpts := ui.Options{
		Context:   ctx,
		Catalog:   products,
		Cart:      engine,
		Session:   sess,
		Checkout:  orders,
		Config:    &cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
	}
	return ui.Run(uiOpts)
}
