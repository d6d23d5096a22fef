package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/internal/domain/facility"
	"github.com/clinicdesk/clinicdesk/internal/domain/patient"
	"github.com/clinicdesk/clinicdesk/internal/domain/treatment"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/session"
	"github.com/clinicdesk/clinicdesk/internal/platform/validate"
	"github.com/clinicdesk/clinicdesk/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicdesk-server",
		Short: "Clinic and medical center identity and access server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// connect loads config and opens a pool pinned to the configured schema.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
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
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := schemaFlag(cmd, cfg)
			migrator := db.NewMigrator(pool, migrations.FS)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := schemaFlag(cmd, cfg)
			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			printStatus(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func schemaFlag(cmd *cobra.Command, cfg *config.Config) string {
	if s, _ := cmd.Flags().GetString("schema"); s != "" {
		return s
	}
	return cfg.DBSchema
}

func printStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage database schemas",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schema for a separate deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !db.ValidSchemaName(name) {
				return fmt.Errorf("invalid schema name %q", name)
			}

			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Creating schema: %s\n", name)
			if err := db.CreateSchema(ctx, pool, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema created. Apply migrations with: clinicdesk-server migrate up --schema %s\n", name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Schema name (lowercase letters, digits, underscore)")

	cmd.AddCommand(createCmd)
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Suspend facilities whose subscription has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := facility.NewService(facility.NewStore(pool), newLogger(cfg.Env, os.Stdout))
			res, err := svc.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage platform staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a SUPER_ADMIN or SUPPORT_AGENT user",
		RunE: func(cmd *cobra.Command, args []string) error {
			phoneNumber, _ := cmd.Flags().GetString("phone")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			if phoneNumber == "" || password == "" || name == "" {
				return fmt.Errorf("--phone, --password and --name are required")
			}

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg.Env, os.Stdout)
			svc := account.NewService(account.NewRepo(pool, logger), cfg.BcryptCost)
			u, err := svc.CreateSystemUser(ctx, name, phoneNumber, password, account.SystemRole(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", u.SystemRole, u.ID, u.PhoneNumber)
			return nil
		},
	}
	createCmd.Flags().String("phone", "", "Phone number used to log in")
	createCmd.Flags().String("password", "", "Initial password (at least 8 characters)")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("role", string(account.SystemRoleSuperAdmin), "SUPER_ADMIN or SUPPORT_AGENT")

	cmd.AddCommand(createCmd)
	return cmd
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// bootstrap loads and validates config, then builds the logger for the
// environment the config names.
func bootstrap(out io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg.Env, out), nil
}

// app holds the wired server and the services main needs after routing.
type app struct {
	echo     *echo.Echo
	facility *facility.Service
}

// newApp wires every handler and the middleware chain onto a fresh echo
// instance. It does not start anything.
func newApp(cfg *config.Config, pool db.Pool, logger zerolog.Logger) (*app, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	v := validate.New()
	if err := v.Register("specialization", account.ValidSpecialization); err != nil {
		return nil, fmt.Errorf("register specialization rule: %w", err)
	}
	e.Validator = v

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/cron/"))

	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	carrier := session.NewCarrier(cfg.SessionCookieName, cfg.SessionMaxAge, cfg.IsProduction())
	accountSvc := account.NewService(account.NewRepo(pool, logger), cfg.BcryptCost)
	e.Use(auth.Identity(auth.IdentityConfig{
		Resolver: accountSvc,
		Session:  carrier,
		Logger:   logger,
		Skipper:  auth.AuthSkipper,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	gate := auth.NewGate(cfg.GatePolicy)
	public := e.Group("")
	dashboard := e.Group(auth.DashboardPath, auth.RequireUser(), auth.SubscriptionGate(gate))
	admin := e.Group("/admin", auth.RedirectUnlessStaff(auth.DashboardPath))

	// Login is limited twice: per client IP and per target phone number.
	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimitRPS,
		BurstSize:         cfg.LoginRateLimitBurst,
	})
	accountHandler := account.NewHandler(accountSvc, carrier, logger)
	accountHandler.SetPendingCheck(gate.Cleared)
	accountHandler.SetLoginThrottle(middleware.NewLimiter(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst, 0))
	accountHandler.RegisterRoutes(public, dashboard, loginLimit)

	patientHandler := patient.NewHandler(patient.NewService(patient.NewRepo(pool)), logger)
	patientHandler.RegisterRoutes(dashboard)

	treatmentHandler := treatment.NewHandler(treatment.NewService(treatment.NewRepo(pool)), logger)
	treatmentHandler.RegisterDashboardRoutes(dashboard)
	treatmentHandler.RegisterAdminRoutes(admin)

	facilitySvc := facility.NewService(facility.NewStore(pool), logger)
	facilityHandler := facility.NewHandler(facilitySvc, logger)
	facilityHandler.RegisterCronRoutes(e, cfg.CronSecret)
	facilityHandler.RegisterAdminRoutes(admin)

	return &app{echo: e, facility: facilitySvc}, nil
}

func runServer() error {
	cfg, logger, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	a, err := newApp(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	e := a.echo

	// DB health check endpoint
	e.GET("/health/db", db.HealthHandler(pool))

	if cfg.SweepInterval > 0 {
		sweepCtx, sweepCancel := context.WithCancel(ctx)
		defer sweepCancel()
		go a.facility.StartSweeper(sweepCtx, cfg.SweepInterval)
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("gate_policy", cfg.GatePolicy).Msg("starting server")
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
