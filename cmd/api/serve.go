package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/config"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	appHTTP "github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/service/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

type repositories struct {
	tx           application.Transactor
	applications application.ApplicationRepository
	history      application.HistoryRepository
	reports      report.ReportRepository
	close        func()
}

func serveCmd() *cobra.Command {
	var migrateOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(os.Stdout, cfg.App.LogLevel, cfg.App.Env)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log, migrateOnStart)
		},
	}
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving (postgres store)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, migrateOnStart bool) error {
	catalog, err := config.LoadCatalog(cfg.Pipeline.StageCatalogPath)
	if err != nil {
		return fmt.Errorf("load stage catalog: %w", err)
	}

	repos, err := openRepositories(ctx, cfg, migrateOnStart)
	if err != nil {
		return err
	}
	defer repos.close()

	var publisher events.Publisher = events.Noop{}
	if cfg.Redis.Addr != "" {
		client, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		publisher = events.NewRedisPublisher(client, cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipelineService := pipeline.NewPipelineService(
		repos.tx,
		repos.applications,
		repos.history,
		repos.reports,
		catalog,
		pipeline.Options{
			Metrics:   metrics.NewCollector(registry),
			Publisher: publisher,
			Logger:    log,
		},
	)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("configure jwt: %w", err)
	}

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.NewPipelineHandler(pipelineService, catalog),
		appHTTP.RouterOptions{
			Logger:         log,
			AllowedOrigins: cfg.App.AllowedOrigins,
			Metrics:        metrics.Handler(registry),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			slog.String("addr", server.Addr),
			slog.String("store", cfg.App.Store),
			slog.String("catalog_version", catalog.Version()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config, migrateOnStart bool) (repositories, error) {
	if cfg.App.Store == config.StoreMemory {
		store := memory.NewStore()
		return repositories{
			tx:           memory.NewTransactor(store),
			applications: memory.NewApplicationRepository(store),
			history:      memory.NewHistoryRepository(store),
			reports:      memory.NewReportRepository(store),
			close:        func() {},
		}, nil
	}

	dsn := cfg.DatabaseURL()
	if migrateOnStart {
		if err := runMigration(dsn, "up"); err != nil {
			return repositories{}, err
		}
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return repositories{}, fmt.Errorf("connect database: %w", err)
	}

	return repositories{
		tx:           postgresql.NewTransactor(db),
		applications: postgresql.NewApplicationRepository(db),
		history:      postgresql.NewHistoryRepository(db),
		reports:      postgresql.NewReportRepository(db),
		close:        db.Close,
	}, nil
}
