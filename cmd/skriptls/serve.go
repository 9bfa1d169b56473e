package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/catalog"
	"github.com/akhenakh/skriptls/internal/config"
	"github.com/akhenakh/skriptls/internal/langserver"
	"github.com/akhenakh/skriptls/internal/remote"
	"github.com/akhenakh/skriptls/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("no-watch", false, "do not reload the configuration file on change")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newRemoteClient(cfg, logger)
	live := config.NewLive(cfg.Parse.URL)
	store := catalog.NewStore()
	var loader *catalog.Loader
	if !cfg.Catalog.Disabled {
		loader = newCatalogLoader(cfg, client, store, logger)
	}

	ls, err := langserver.New(langserver.Config{
		Parser:   client,
		Live:     live,
		Catalog:  store,
		Loader:   loader,
		Debounce: cfg.Parse.Debounce.Duration,
		Logger:   logger,
		Version:  version,
	})
	if err != nil {
		return err
	}

	noWatch, _ := cmd.Flags().GetBool("no-watch")
	if cfgPath != "" && !noWatch {
		reloader := newReloader(cmd, live, cfg)
		go func() {
			err := config.Watch(ctx, cfgPath, logger.Named("config"), func(c config.Config) {
				if _, err := reloader.Apply(c); err != nil {
					logger.Warn("ignoring reloaded parse url", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("starting skriptls",
		zap.String("version", version),
		zap.String("parseURL", cfg.Parse.URL),
		zap.String("catalogURL", cfg.Catalog.URL),
		zap.String("config", cfgPath))

	err = ls.Run(ctx)
	switch {
	case errors.Is(err, server.ErrExit):
		return nil
	case errors.Is(err, server.ErrExitWithoutShutdown):
		return exitError(1)
	}
	return err
}

// newReloader keeps command line flags ahead of reloaded files.
func newReloader(cmd *cobra.Command, live *config.Live, cfg config.Config) *config.Reloader {
	return config.NewReloader(live, cfg, func(c *config.Config) { applyFlags(cmd, c) })
}

func newRemoteClient(cfg config.Config, logger *zap.Logger) *remote.Client {
	return remote.NewClient(
		remote.WithCatalogURL(cfg.Catalog.URL),
		remote.WithTimeout(cfg.Parse.Timeout.Duration),
		remote.WithUserAgent("skriptls/"+version),
		remote.WithLogger(logger.Named("remote")),
	)
}

// newCatalogLoader wires the disk cache when one can be opened.
func newCatalogLoader(cfg config.Config, client *remote.Client, store *catalog.Store, logger *zap.Logger) *catalog.Loader {
	dir := cfg.Catalog.CacheDir
	if dir == "" {
		d, err := catalog.DefaultCacheDir("skriptls")
		if err != nil {
			logger.Warn("no catalog cache directory", zap.Error(err))
		}
		dir = d
	}
	var cache *catalog.Cache
	if dir != "" {
		c, err := catalog.OpenCache(dir)
		if err != nil {
			logger.Warn("catalog cache disabled", zap.Error(err))
		} else {
			cache = c
		}
	}
	return catalog.NewLoader(client, store, cache, client.CatalogURL(), logger.Named("catalog"))
}
