package routes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/payout_vault/internal/asset"
	"github.com/congo-pay/payout_vault/internal/clock"
	"github.com/congo-pay/payout_vault/internal/config"
	"github.com/congo-pay/payout_vault/internal/events"
	"github.com/congo-pay/payout_vault/internal/middleware"
	"github.com/congo-pay/payout_vault/internal/vault"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	SQL    *sql.DB
	Cache  *redis.Client
	NATS   *events.NATSPublisher
	Clock  clock.Clock
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app)

	var (
		ledger  asset.Ledger
		backend vault.Backend
	)
	if d.DB != nil {
		ledger = asset.NewPostgresLedger(d.DB)
		backend = vault.NewPostgresStore(d.DB)
	} else {
		ledger = asset.NewInMemory()
		backend = vault.NewMemoryStore()
	}

	publishers := events.Fanout{events.NewLogPublisher(d.Logger)}
	if d.NATS != nil {
		publishers = append(publishers, d.NATS)
	}
	var journal *events.Journal
	if d.SQL != nil {
		journal = events.NewJournal(d.SQL)
		publishers = append(publishers, journal)
	}

	v, err := vault.New(vault.Options{
		Backend:        backend,
		Gateway:        custodyResolver(ledger),
		Clock:          d.Clock,
		Publisher:      publishers,
		Logger:         d.Logger,
		Interval:       d.Cfg.PayoutInterval,
		DefaultVersion: d.Cfg.LogicVersion,
	})
	if err != nil {
		return fmt.Errorf("build vault: %w", err)
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	callerAuth := middleware.CallerAuth(d.Cfg.JWTSecret)
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	payoutLimiter := middleware.RateLimit(d.Cache, "payout", d.Cfg.PayoutRateLimit, middleware.ByParam("account"))
	RegisterVaultRoutes(api, vault.NewHandler(v), callerAuth, idempotent, payoutLimiter)
	if journal != nil {
		RegisterEventRoutes(api, journal)
	}
	if d.Cfg.IsDev() {
		RegisterDevRoutes(api, v, ledger)
	}
	return nil
}

// custodyResolver opens the custody account of the initialized asset on
// ledger.
func custodyResolver(ledger asset.Ledger) vault.GatewayResolver {
	return func(ctx context.Context, a vault.Address) (vault.Gateway, error) {
		custody, err := asset.NewCustody(ctx, ledger, a)
		if err != nil {
			return nil, err
		}
		return custody, nil
	}
}
