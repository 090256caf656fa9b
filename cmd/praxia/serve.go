package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/server"
	"github.com/Chab-algo/praxia/pkg/log"
)

type serveCmd struct {
	deps       *deps
	apiServer  *server.Server
	httpServer *http.Server
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(os.Stdout, cfg)
			s := &serveCmd{}
			return s.run(cmd.Context(), cfg)
		},
	}
}

func (s *serveCmd) run(ctx context.Context, cfg *config.Config) error {
	slog.Info("Praxia engine starting",
		slog.String("log_level", cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", cfg.Store.Addr),
		slog.Int("redis_db", cfg.Store.DB),
		slog.String("redis_prefix", cfg.Store.Prefix),
		slog.Float64("budget_limit_usd", cfg.BudgetLimit),
		slog.String("api_host", cfg.APIHost),
		slog.Int("api_port", cfg.APIPort))

	d, err := newDeps(ctx, cfg, true)
	if err != nil {
		return err
	}
	s.deps = d
	s.startServer()

	<-ctx.Done()
	s.shutdown()
	return nil
}

func (s *serveCmd) startServer() {
	cfg := s.deps.cfg
	s.apiServer = server.NewServer(s.deps.engine, s.deps.alerts)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler: s.apiServer.SetupRoutes(),
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *serveCmd) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.deps.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.deps.Close()

	slog.Info("Server exited")
}
