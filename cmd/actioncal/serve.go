package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/action-calendar/api"
	"github.com/warp/action-calendar/config"
	"github.com/warp/action-calendar/export"
	"github.com/warp/action-calendar/factory"
	"github.com/warp/action-calendar/logx"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and scheduled compaction",
		Long: `Start the HTTP API with the configured storage driver. Scheduled
compaction runs on compaction.schedule when it is set.

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, stops the compactor and closes storage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return serve(cfg, log)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override the listen address (host:port)")
	return cmd
}

// newApp wires the system, compactor and router described by cfg.
func newApp(cfg *config.Config, log zerolog.Logger, reg *prometheus.Registry) (*factory.System, *api.Compactor, http.Handler, error) {
	if err := api.ValidateSchedule(cfg.Compaction.Schedule); err != nil {
		return nil, nil, nil, err
	}

	sys, err := factory.Build(cfg, factory.Options{Logger: log, Registerer: reg})
	if err != nil {
		return nil, nil, nil, err
	}

	compactor := api.NewCompactor(sys.Engine, cfg.Compaction.Schedule, sys.Engine.Location)
	compactor.Log = logx.Component(log, "compactor")

	handler := api.NewHandler(sys.Engine, compactor)
	handler.Log = logx.Component(log, "http")
	handler.Export = export.ICSOptions{
		Location: sys.Engine.Location,
		Name:     cfg.Export.Name,
		Duration: time.Duration(cfg.Export.EventMinutes) * time.Minute,
	}
	if sys.SQLite != nil {
		compactor.History = sys.SQLite
		handler.History = sys.SQLite
	}

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Gatherer:       reg,
	})
	return sys, compactor, router, nil
}

func serve(cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sys, compactor, router, err := newApp(cfg, log, reg)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := compactor.Start(); err != nil {
		return err
	}
	defer compactor.Stop()

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
