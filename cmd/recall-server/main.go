package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wahealthh/recall-product-backend/internal/config"
	"github.com/wahealthh/recall-product-backend/internal/domain/admin"
	"github.com/wahealthh/recall-product-backend/internal/domain/calls"
	"github.com/wahealthh/recall-product-backend/internal/domain/recall"
	"github.com/wahealthh/recall-product-backend/internal/platform/auth"
	"github.com/wahealthh/recall-product-backend/internal/platform/db"
	"github.com/wahealthh/recall-product-backend/internal/platform/metrics"
	"github.com/wahealthh/recall-product-backend/internal/platform/middleware"
	"github.com/wahealthh/recall-product-backend/internal/platform/notification"
	"github.com/wahealthh/recall-product-backend/internal/platform/telemetry"
	"github.com/wahealthh/recall-product-backend/internal/platform/vapi"
	"github.com/wahealthh/recall-product-backend/migrations"
)

const serviceName = "recall-server"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Recall product API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the recall API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// migrationFiles reads from dir when given, else from the embedded set.
func migrationFiles(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closePool, err := newMigrator(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer closePool()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closePool, err := newMigrator(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newMigrator(ctx context.Context, dir string) (*db.Migrator, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, newLogger(cfg.Env))
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrationFiles(dir)), pool.Close, nil
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.VapiAPIKey == "" || cfg.AssistantID == "" || cfg.PhoneNumberID == "" {
		logger.Warn().Msg("calling provider is not fully configured; outbound calls will fail")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Tracing
	tracing, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	logger.Info().Bool("exporting", tracing.Exporting()).Msg("tracing initialised")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Rate limit store
	var limitStore middleware.Store = middleware.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		limitStore = middleware.NewRedisStore(rdb, "recall:ratelimit:")
		logger.Info().Msg("rate limits shared through redis")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	ipExtractor, err := middleware.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("configure client address extraction: %w", err)
	}
	e.IPExtractor = ipExtractor

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(tracing.Middleware())
	e.Use(middleware.BodyLimit("2M"))

	e.GET("/health", db.HealthHandler(pool, serviceName))
	e.GET("/metrics", metrics.Handler())

	// Upstream clients
	upstream := &http.Client{Timeout: cfg.UpstreamTimeout}
	authClient := auth.NewClient(cfg.AuthServiceURL,
		auth.WithHTTPClient(upstream),
		auth.WithLogger(logger),
	)
	vapiClient := vapi.NewClient(cfg.VapiAPIKey,
		vapi.WithBaseURL(cfg.VapiBaseURL),
		vapi.WithHTTPClient(upstream),
		vapi.WithLogger(logger),
	)

	root := e.Group("")

	// Admin and practice
	adminSvc := admin.NewService(
		admin.NewAdminRepo(pool),
		admin.NewPracticeRepo(pool),
		authClient,
		pool,
		logger,
	)
	admin.NewHandler(adminSvc, cfg.IsProduction()).RegisterRoutes(root, authClient)

	// Recall groups and patients
	recallSvc := recall.NewService(
		recall.NewGroupRepo(pool),
		recall.NewPatientRepo(pool),
		adminSvc,
		pool,
		logger,
	)
	recall.NewHandler(recallSvc).RegisterRoutes(root, authClient)

	// Calls
	callsHandler := calls.NewHandler(
		recallSvc,
		calls.NewRegistry(cfg.RegistryBaseURL, cfg.RegistryAPIKey, nil, logger),
		calls.NewDispatcher(vapiClient, cfg.AssistantID, cfg.PhoneNumberID, logger),
		calls.NewNormalizer(vapiClient, cfg.AppointmentToolName, cfg.ProviderCostType, logger),
		vapiClient,
	)
	callsHandler.RegisterRoutes(root, authClient, calls.Limits{
		DueCalls: middleware.RateLimit(middleware.RateLimitConfig{
			Name: "call_due_patients", Limit: 1, Window: time.Hour, Store: limitStore, Logger: logger,
		}),
		Demo: middleware.RateLimit(middleware.RateLimitConfig{
			Name: "demo_call", Limit: 3, Window: time.Hour, Store: limitStore, Logger: logger,
		}),
	})

	// Confirmation mail
	templates, err := notification.NewTemplateEngine()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load email templates")
	}
	var sender notification.EmailSender
	if cfg.SendGridAPIKey != "" {
		sender = notification.NewSendGridSender(cfg.SendGridAPIKey, cfg.SenderEmail, cfg.ProjectName)
	} else {
		logger.Warn().Msg("SENDGRID_API_KEY not set; confirmation emails are kept in memory, not sent")
		sender = &notification.MockEmailSender{}
	}
	mailer := notification.NewMailer(sender, templates, cfg.ProjectName, logger)
	notification.NewHandler(mailer).RegisterRoutes(e.Group("/mail"))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
