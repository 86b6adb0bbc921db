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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskflow/internal/activity"
	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/logging"
	"taskflow/internal/metrics"
	"taskflow/internal/server"
	"taskflow/internal/storage/sqlstore"
	"taskflow/internal/workflow"
)

func newServeCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and frontend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "HTTP listen address")
	flags.String("db", "", "database DSN (file path for sqlite3)")
	flags.String("driver", "", "database driver: sqlite3 or pgx")
	flags.String("static", "", "directory with the built frontend")
	v := app.loader.Viper()
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("database.dsn", flags.Lookup("db"))
	_ = v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = v.BindPFlag("server.static_dir", flags.Lookup("static"))
	return cmd
}

// application is a fully wired server and the resources it owns.
type application struct {
	server *server.Server
	store  *sqlstore.Store
	logger *zap.Logger
}

func (a *application) Close() error {
	_ = a.logger.Sync()
	return a.store.Close()
}

// build wires storage, the workflow engine and the HTTP layer from cfg.
func build(cfg config.Config) (*application, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	table, err := workflow.DefaultTable()
	if err != nil {
		return nil, fmt.Errorf("load workflow table: %w", err)
	}

	store, err := sqlstore.Open(sqlstore.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	recorder := activity.NewRecorder(store, logger.Named("activity"))
	m := metrics.New()
	engine, err := workflow.NewEngine(store, table, workflow.MultiSink{recorder, m}, logger.Named("workflow"), workflow.Options{
		CutoffStep:   cfg.Workflow.CutoffStep,
		CutoffHour:   cfg.Workflow.CutoffHour,
		EnforceRoles: cfg.Workflow.EnforceRoles,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure workflow: %w", err)
	}

	srv := server.New(server.Deps{
		Store:     store,
		Workflow:  engine,
		Activity:  recorder,
		Tokens:    tokens,
		Metrics:   m,
		Logger:    logger.Named("http"),
		StaticDir: cfg.Server.StaticDir,
	})
	return &application{server: srv, store: store, logger: logger}, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	app, err := build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", httpServer.Addr),
			zap.String("driver", cfg.Database.Driver),
			zap.Int("cutoff_step", cfg.Workflow.CutoffStep),
			zap.Int("cutoff_hour", cfg.Workflow.CutoffHour),
			zap.Bool("enforce_roles", cfg.Workflow.EnforceRoles))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server stopped unexpectedly", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
