package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/timingbelt/internal/config"
	"github.com/me/timingbelt/internal/metrics"
	"github.com/me/timingbelt/internal/server"
	"github.com/me/timingbelt/internal/store"
	"github.com/me/timingbelt/pkg/model"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		dbPath       string
		scenarioPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the belt behind the inspection API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.Server.DBPath = dbPath
			}
			return serve(cmd.Context(), scenarioPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultServerConfig().Addr, "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite trace database (overrides server.db_path)")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML to load before serving")
	return cmd
}

func serve(parent context.Context, scenarioPath string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st        *store.SQLiteStore
		rec       *store.Recorder
		observers []func(model.CycleTrace)
		srvOpts   []server.Option
	)
	if path := cfg.Server.DBPath; path != "" {
		var err error
		st, err = openStore(ctx, path)
		if err != nil {
			return err
		}
		defer st.Close()
		rec = store.NewRecorder(st, store.RecorderConfig{Retention: cfg.Server.TraceRetention}, logger)
		observers = append(observers, rec.Observe)
		srvOpts = append(srvOpts, server.WithStore(st), server.WithRecorder(rec))
	}

	rt, err := newRuntime(cfg.Belt, logger, observers...)
	if err != nil {
		return err
	}
	if scenarioPath != "" {
		sc, err := loadScenario(scenarioPath)
		if err != nil {
			return err
		}
		if err := sc.Apply(rt.harness); err != nil {
			return err
		}
		logger.Info("scenario loaded", "scenario", sc.Name)
	}
	srvOpts = append(srvOpts, server.WithStats(rt.stats))

	srv := server.New(cfg.Server, rt.loop, rt.harness, logger, srvOpts...)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := rt.loop.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("timer loop stopped", "error", err)
		}
	}()
	if rec != nil {
		go rec.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "session_id", rt.session)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	logger.Info("shutting down")

	// Handlers call into the loop, so the HTTP server goes first.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	stop()
	rt.loop.Stop()
	if rec != nil {
		rec.Stop()
		logger.Info("recorder stopped", "recorded", rec.Recorded(), "dropped", rec.Dropped(), "failed", rec.Failed())
	}

	logger.Info("server stopped", "stats", metrics.Describe(rt.stats.Snapshot()))
	if serveErr != nil {
		return fmt.Errorf("listen: %w", serveErr)
	}
	return nil
}

// openStore opens and migrates the trace database at path.
func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate trace database: %w", err)
	}
	size := "new"
	if fi, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	logger.Info("trace database ready", "path", path, "size", size)
	return st, nil
}
