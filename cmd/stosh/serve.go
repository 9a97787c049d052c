package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stosh/internal/config"
	"stosh/internal/httpapi"
	"stosh/internal/manager"
	"stosh/internal/runstore"
	"stosh/pkg/stosh"
)

// logPublisher writes manager events to the structured log.
type logPublisher struct{ log zerolog.Logger }

func (p logPublisher) Publish(e manager.Event) {
	p.log.Info().Str("session", e.SessionID).Fields(e.Fields).Msg(e.Name)
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		modelsDir   string
		allowPaths  bool
		corsOrigins string
		httpLog     string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("addr") || cfg.Addr == config.DefaultAddr {
				cfg.Addr = addr
			}
			if modelsDir != "" {
				cfg.ModelsDir = modelsDir
			}
			if origins := splitCSV(corsOrigins); len(origins) > 0 {
				cfg.CORSEnabled = true
				cfg.CORSOrigins = origins
			}
			return serve(a, cfg, allowPaths, httpLog)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", envOr("STOSH_ADDR", config.DefaultAddr), "HTTP listen address, e.g. :8080 (defaults STOSH_ADDR)")
	f.StringVar(&modelsDir, "models-dir", "", "Directory to scan for *.stan sources")
	f.BoolVar(&allowPaths, "allow-paths", false, "Allow compiling .stan paths outside the models dir")
	f.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")
	f.StringVar(&httpLog, "http-log", "", "Per-request log level: off|error|info|debug")
	return cmd
}

func serve(a *app, cfg config.Config, allowPaths bool, httpLog string) error {
	log := a.log
	var runs manager.RunRecorder
	if cfg.RunsDB != "" {
		store, err := runstore.Open(cfg.RunsDB)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer store.Close()
		runs = store
	}

	opts := a.modelOptions()
	mgr := manager.New(manager.Config{
		ModelsDir:   cfg.ModelsDir,
		AllowPaths:  allowPaths,
		Options:     opts,
		Resolver:    stosh.NewResolver(opts...),
		DefaultSeed: cfg.DefaultSeed,
		Runs:        runs,
		Publisher:   logPublisher{log: log.With().Str("component", "manager").Logger()},
		Logger:      &log,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	if httpLog != "" {
		httpapi.SetDefaultLogLevel(httpLog)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("stosh listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-stop:
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(); err != nil {
		log.Warn().Err(err).Msg("closing sessions")
	}
	return nil
}
