package main

import (
	"context"
	"fmt"
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

	"github.com/bloodbank/bloodbank/internal/config"
	"github.com/bloodbank/bloodbank/internal/domain/appointment"
	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/domain/request"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/cache"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/internal/platform/middleware"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bloodbank-server",
		Short: "Blood Bank Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
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
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
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
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// userCmd provisions accounts for roles that cannot self-register, such as
// the first admin.
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with any role",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := identity.RegisterRequest{}
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.Role, _ = cmd.Flags().GetString("role")
			req.FirstName, _ = cmd.Flags().GetString("first-name")
			req.LastName, _ = cmd.Flags().GetString("last-name")
			if req.Email == "" || req.Password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			return withPool(cmd, func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
				svc := identity.NewService(identity.NewRepo(pool), issuer)
				u, err := svc.CreateUser(ctx, req)
				if err != nil {
					return err
				}
				fmt.Printf("Created %s user %s (%s)\n", u.Role, u.Email, u.ID)
				return nil
			})
		},
	}
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().String("password", "", "Password (at least 6 characters)")
	createCmd.Flags().String("role", string(auth.RoleAdmin), "Role to assign")
	createCmd.Flags().String("first-name", "", "First name")
	createCmd.Flags().String("last-name", "", "Last name")
	cmd.AddCommand(createCmd)

	return cmd
}

func withPool(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openCache uses Redis when a URL is configured and an in-process cache
// otherwise. The returned close func is never nil.
func openCache(ctx context.Context, url string, logger zerolog.Logger) (cache.Cache, func(), error) {
	if url == "" {
		logger.Info().Msg("REDIS_URL not set; using in-memory cache")
		return cache.NewMemory(), func() {}, nil
	}
	r, err := cache.DialRedis(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to redis")
	return r, func() { _ = r.Close() }, nil
}

// handlers groups everything the router mounts.
type handlers struct {
	identity    *identity.Handler
	banks       *bloodbank.Handler
	inventory   *inventory.Handler
	requests    *request.Handler
	appointment *appointment.Handler
	health      echo.HandlerFunc
}

func newRouter(cfg *config.Config, logger zerolog.Logger, verifier auth.Verifier, h handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, auth.TokenHeader, echo.HeaderXRequestID},
		ExposeHeaders: []string{pagination.TotalCountHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Blood Bank Backend API is running!")
	})
	if h.health != nil {
		e.GET("/health", h.health)
	}

	api := e.Group("/api", middleware.Audit(logger))
	authn := auth.Authenticate(verifier)

	var limit echo.MiddlewareFunc
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		limit = middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		})
	}

	h.identity.RegisterRoutes(api, authn, limit)
	h.banks.RegisterRoutes(api, authn)
	h.inventory.RegisterRoutes(api, authn)
	h.requests.RegisterRoutes(api, authn)
	h.appointment.RegisterRoutes(api, authn)
	return e
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		n, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	c, closeCache, err := openCache(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer closeCache()

	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)

	identitySvc := identity.NewService(identity.NewRepo(pool), issuer)
	bankSvc := bloodbank.NewService(bloodbank.NewRepo(pool))
	inventorySvc := inventory.NewService(inventory.NewRepo(pool), bankSvc, identitySvc, c, cfg.SummaryCacheTTL)
	requestSvc := request.NewService(request.NewRepo(pool), inventorySvc.Repo(), identitySvc, db.NewTransactor(pool), inventorySvc)
	appointmentSvc := appointment.NewService(appointment.NewRepo(pool), bankSvc, identitySvc)

	e := newRouter(cfg, logger, issuer, handlers{
		identity:    identity.NewHandler(identitySvc),
		banks:       bloodbank.NewHandler(bankSvc),
		inventory:   inventory.NewHandler(inventorySvc),
		requests:    request.NewHandler(requestSvc),
		appointment: appointment.NewHandler(appointmentSvc),
		health:      db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }),
	})

	go inventory.NewSweeper(inventorySvc, cfg.ExpirySweepInterval, logger).Run(ctx)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
