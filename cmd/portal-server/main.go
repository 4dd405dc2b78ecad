package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vitacare/portal/internal/config"
	"github.com/vitacare/portal/internal/domain/admin"
	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/domain/appointment"
	"github.com/vitacare/portal/internal/domain/checkup"
	"github.com/vitacare/portal/internal/domain/dashboard"
	"github.com/vitacare/portal/internal/domain/diagnosis"
	"github.com/vitacare/portal/internal/domain/directory"
	"github.com/vitacare/portal/internal/domain/emergency"
	"github.com/vitacare/portal/internal/domain/healthplan"
	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/domain/report"
	"github.com/vitacare/portal/internal/domain/summary"
	"github.com/vitacare/portal/internal/domain/wellness"
	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/blobstore"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/jobs"
	"github.com/vitacare/portal/internal/platform/kv"
	"github.com/vitacare/portal/internal/platform/llm"
	"github.com/vitacare/portal/internal/platform/middleware"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/internal/platform/pubsub"
	"github.com/vitacare/portal/internal/platform/reporting"
	"github.com/vitacare/portal/internal/platform/websocket"
	"github.com/vitacare/portal/pkg/wizard"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "VitaCare patient portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, dir, schema).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to schema %s.\n", count, schema)
				return nil
			})
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, dir, schema).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), schema, statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the doctor and hospital directory and default health tips",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
				dir := directory.NewService(directory.NewDoctorRepoPG(pool), directory.NewHospitalRepoPG(pool))
				hospitals, doctors, err := dir.Seed(ctx)
				if err != nil {
					return err
				}
				tips, err := wellness.NewService(wellness.NewTipRepoPG(pool), zerolog.Nop()).SeedTips(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d hospitals, %d doctors, %d health tips.\n", hospitals, doctors, tips)
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			key, _ := cmd.Flags().GetString("key")
			if key == "" {
				key = os.Getenv("AUTH_SIGNING_KEY")
			}
			tok, err := auth.IssueToken([]byte(key), os.Getenv("AUTH_ISSUER"), email, name, parseRoles(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email (required)")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("role", auth.RolePatient, "Comma separated roles")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().String("key", "", "HS256 key, defaults to AUTH_SIGNING_KEY")
	return cmd
}

func parseRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func withPool(fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// newLLMClient caches the OpenAI client in kv. Without a key, every call
// fails, so advisory features answer with their fallbacks.
func newLLMClient(cfg *config.Config, store *kv.Store, logger zerolog.Logger) (llm.Client, *llm.CachedClient) {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set, AI features will use their fallbacks")
		return &llm.StaticClient{Err: errors.New("no LLM provider configured")}, nil
	}
	cached := llm.NewCachedClient(
		llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, logger),
		store, cfg.OpenAIModel, cfg.LLMCacheTTL, logger)
	return cached, cached
}

// draftOwner keys wizard drafts by the account email.
func draftOwner(c echo.Context) (string, error) {
	email := auth.UserIDFromContext(c.Request().Context())
	if email == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return email, nil
}

func blobOwner(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

func authMiddleware(cfg *config.Config) []echo.MiddlewareFunc {
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	configured := cfg.AuthSigningKey != "" || cfg.AuthIssuer != "" || cfg.AuthJWKSURL != ""
	switch {
	case cfg.IsDev() && configured:
		return []echo.MiddlewareFunc{auth.JWTMiddleware(jwtCfg), auth.DevAuthMiddleware()}
	case cfg.IsDev():
		return []echo.MiddlewareFunc{auth.DevAuthMiddleware()}
	default:
		return []echo.MiddlewareFunc{auth.JWTMiddleware(jwtCfg)}
	}
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, err := kv.Open(cfg.KVPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.KVPath).Msg("failed to open kv store")
	}
	defer store.Close()

	// Push channel
	hub := websocket.NewHub(logger)
	bus := pubsub.NewBus(pool, hub, cfg.DispatchNotifyChannel, logger)
	go func() {
		if err := bus.Listen(ctx, cfg.DatabaseURL); err != nil {
			logger.Error().Err(err).Msg("event relay stopped")
		}
	}()
	notifier := notification.NewNotifier(notification.NewTemplateEngine(), bus, logger)

	// Services
	tx := db.Transactor(pool)
	blobs := blobstore.NewPGStore(pool)
	llmClient, llmCache := newLLMClient(cfg, store, logger)
	adapter := advisory.NewAdapter(llmClient, cfg.Hotline, logger)

	dirSvc := directory.NewService(directory.NewDoctorRepoPG(pool), directory.NewHospitalRepoPG(pool))
	reportSvc := report.NewService(report.NewRepoPG(pool), blobs, notifier, logger)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), reportSvc, tx)
	apptSvc := appointment.NewService(appointment.NewRepoPG(pool), dirSvc, patientSvc, notifier, logger)

	emergencyRepo := emergency.NewRepoPG(pool)
	engine := emergency.NewEngine(emergencyRepo, tx, bus, notifier,
		emergency.EngineConfig{Tick: cfg.DispatchTick, Step: cfg.DispatchStep, Lease: cfg.DispatchLease}, logger)
	emergencySvc := emergency.NewService(emergencyRepo, tx, engine,
		emergency.Coordinate{Latitude: cfg.DefaultLatitude, Longitude: cfg.DefaultLongitude}, logger)
	if n, err := engine.Resume(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to resume dispatches")
	} else if n > 0 {
		logger.Info().Int("requests", n).Msg("resumed dispatches")
	}

	diagnosisSvc := diagnosis.NewService(diagnosis.NewRepoPG(pool), blobs, adapter, logger)
	checkupSvc := checkup.NewService(checkup.NewRepoPG(pool), adapter, logger)
	planSvc := healthplan.NewService(healthplan.NewRepoPG(pool), patientSvc, adapter, tx, logger)
	summarySvc := summary.NewService(patientSvc, reportSvc, diagnosisSvc, adapter, logger)
	wellnessSvc := wellness.NewService(wellness.NewTipRepoPG(pool), logger)
	dashboardSvc := dashboard.NewService(patientSvc, apptSvc, reportSvc, diagnosisSvc, checkupSvc, planSvc)

	// Wizards
	wizards := wizard.NewHandler(draftOwner,
		patient.NewOnboardingFlow(patientSvc, store, logger),
		appointment.NewBookingFlow(apptSvc, store, logger),
		emergency.NewRequestFlow(emergencySvc, patientSvc, store, logger),
	)

	// Background jobs
	scheduler := jobs.NewScheduler(logger)
	mustAdd := func(j jobs.Job) {
		if err := scheduler.Add(j); err != nil {
			logger.Fatal().Err(err).Str("job", j.Name).Msg("failed to register job")
		}
	}
	mustAdd(apptSvc.ReminderJob())
	mustAdd(jobs.Job{
		Name:  "dispatch-resume",
		Every: cfg.DispatchLease,
		Run: func(ctx context.Context) error {
			_, err := engine.Resume(ctx)
			return err
		},
	})
	mustAdd(jobs.Job{
		Name:  "wizard-draft-expiry",
		Every: time.Hour,
		Run: func(context.Context) error {
			n, err := store.PurgeExpired(wizard.KeyPrefix)
			if n > 0 {
				logger.Info().Int("drafts", n).Msg("expired wizard drafts purged")
			}
			return err
		},
	})
	if llmCache != nil {
		mustAdd(jobs.Job{
			Name:  "llm-cache-expiry",
			Every: time.Hour,
			Run: func(context.Context) error {
				_, err := llmCache.PurgeExpired()
				return err
			},
		})
	}
	scheduler.Start()
	defer scheduler.Stop()

	adminSvc := admin.NewService(scheduler, engine, hub, wellnessSvc, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		Skipper: func(c echo.Context) bool { return middleware.IsStreamingPath(c.Request().URL.Path) },
	}))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(authMiddleware(cfg)...)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	// Public
	apiV1.GET("/session", auth.SessionHandler(patientSvc))
	directory.NewHandler(dirSvc).RegisterRoutes(apiV1)
	wellness.NewHandler(wellnessSvc).RegisterRoutes(apiV1)

	// Signed in, profile not required
	patientHandler := patient.NewHandler(patientSvc, blobs, wizards)
	identified := apiV1.Group("", auth.RequireIdentity(cfg.LoginURL))
	patientHandler.RegisterOnboardingRoutes(identified)
	wizards.RegisterRoutes(identified, patient.OnboardingFlow)
	admin.NewHandler(adminSvc).RegisterRoutes(identified)

	// Onboarded patients
	patientAPI := apiV1.Group("", auth.RequireSession(patientSvc, cfg.LoginURL))
	wizards.RegisterRoutes(patientAPI, appointment.BookingFlow, emergency.RequestFlow)
	patientHandler.RegisterRoutes(patientAPI)
	appointment.NewHandler(apptSvc, wizards).RegisterRoutes(patientAPI)
	emergencyHandler := emergency.NewHandler(emergencySvc, hub, wizards)
	emergencyHandler.RegisterRoutes(patientAPI)
	emergencyHandler.RegisterStreamRoutes(patientAPI)
	report.NewHandler(reportSvc).RegisterRoutes(patientAPI)
	diagnosis.NewHandler(diagnosisSvc).RegisterRoutes(patientAPI)
	checkup.NewHandler(checkupSvc).RegisterRoutes(patientAPI)
	healthplan.NewHandler(planSvc).RegisterRoutes(patientAPI)
	advisory.NewHandler(advisory.NewChat(adapter)).RegisterRoutes(patientAPI)
	summary.NewHandler(summarySvc, reporting.NewRenderer(cfg.PDFFontPath)).RegisterRoutes(patientAPI)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(patientAPI)
	notification.NewHandler(notifier).RegisterRoutes(patientAPI)
	blobstore.NewHandler(blobs, blobOwner).RegisterRoutes(patientAPI)
	websocket.NewWebSocketHandler(hub, emergencySvc.Authorize, cfg.CORSOrigins, logger).RegisterRoutes(patientAPI)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("dispatch engine shutdown failed")
	}
	stop()
	logger.Info().Msg("server stopped")
	return nil
}
