// Package server initializes and runs the settlement server: database,
// migrations, capability bootstrap, domain services, and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/accesscontrol"
	"github.com/openlend/lendcore/internal/server/assets"
	"github.com/openlend/lendcore/internal/server/config"
	"github.com/openlend/lendcore/internal/server/crosschain"
	"github.com/openlend/lendcore/internal/server/custody"
	"github.com/openlend/lendcore/internal/server/httpapi"
	"github.com/openlend/lendcore/internal/server/loans"
	"github.com/openlend/lendcore/internal/server/migrations"
	"github.com/openlend/lendcore/internal/server/offers"
	"github.com/openlend/lendcore/internal/server/privacy"
	"github.com/openlend/lendcore/internal/server/reputation"
)

// verifierTimeout bounds one pairing check round-trip.
const verifierTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	acl := accesscontrol.NewService(accesscontrol.NewPostgresRepository(db), logger)
	if err := acl.Bootstrap(ctx, cfg.AdminAccount, cfg.EngineAccount, cfg.Relayers); err != nil {
		return nil, fmt.Errorf("capability bootstrap error: %w", err)
	}

	assetService := assets.NewService(assets.NewPostgresRepository(db), acl, logger)
	reputationService := reputation.NewService(db, acl, logger)
	privacyService := privacy.NewService(db, privacy.NewHTTPChecker(verifierTimeout), acl, logger)
	crosschainService := crosschain.NewService(db, acl, logger, cfg.RelayerQuorum)

	loanService := loans.NewService(db, assetService, reputationService, privacyService, crosschainService,
		loans.Config{
			EngineAccount:  cfg.EngineAccount,
			EscrowAccount:  cfg.EscrowAccount,
			FeeSinkAccount: cfg.FeeSinkAccount,
			ProtocolFeeBps: cfg.ProtocolFeeBps,
		}, logger)

	offerService := offers.NewService(offers.NewPostgresRepository(db), assetService, reputationService,
		loanService, cfg.MaxActiveOffers, logger)

	api := httpapi.NewServer(httpapi.Deps{
		Loans:      loanService,
		Offers:     offerService,
		Privacy:    privacyService,
		CrossChain: crosschainService,
		Reputation: reputationService,
		Assets:     assetService,
		Access:     acl,
		Minter:     custody.NewPostgresLedger(db),
		ACL:        acl,
	}, []byte(cfg.SecretKey), cfg.TokenValidityDuration, logger)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// Run serves until the context is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	defer app.db.Close()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)
	return app.api.Run(ctx, app.config.EndpointAddr)
}
