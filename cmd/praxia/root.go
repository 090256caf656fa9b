package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chab-algo/praxia"
	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/engine"
	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/internal/media"
	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

// deps holds everything built from the configuration
type deps struct {
	cfg    *config.Config
	store  *store.RedisStore
	media  *media.Resolver
	alerts *event.Hub[api.BudgetAlert]
	engine *engine.Engine
}

var (
	ErrCreateProvider = errors.New("failed to create provider client")
	ErrCreateResolver = errors.New("failed to create media resolver")
	ErrStoreConnect   = errors.New("failed to connect to store")
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           praxia.Name,
		Short:         "Cost-governed LLM workflow engine",
		Version:       praxia.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRunCmd(), newBudgetCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	level := log.ParseLevel(cfg.LogLevel)
	logger := log.NewWithWriter(
		w, praxia.Name, os.Getenv("ENV"), praxia.Version, level,
	)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}

// newDeps connects the store and, when withProvider is set, builds the
// provider client and the engine on top of it
func newDeps(
	ctx context.Context, cfg *config.Config, withProvider bool,
) (*deps, error) {
	st := store.NewRedisStore(cfg.Store)
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%w: %w", ErrStoreConnect, err)
	}

	d := &deps{
		cfg:    cfg,
		store:  st,
		alerts: event.NewHub[api.BudgetAlert](),
	}
	if !withProvider {
		return d, nil
	}

	cli, err := provider.NewOpenAIClient(
		cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.ProviderTimeout(),
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %w", ErrCreateProvider, err)
	}

	d.media, err = media.NewResolver(ctx, cfg.MediaBucketURL)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %w", ErrCreateResolver, err)
	}

	d.engine = engine.New(st, cli, d.alerts, d.media, cfg)
	return d, nil
}

// Close releases the store, the media bucket and the alert hub
func (d *deps) Close() {
	d.alerts.Close()
	if d.media != nil {
		if err := d.media.Close(); err != nil {
			slog.Warn("Media bucket close failed", log.Error(err))
		}
	}
	if err := d.store.Close(); err != nil {
		slog.Warn("Store close failed", log.Error(err))
	}
}
