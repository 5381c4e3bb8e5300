// Package stridebet wires the escrow-backed wagering service together:
// database, oracle, vault, ledger, settlement and the HTTP surface.
package stridebet

import (
	"context"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/access"
	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/escrow"
	"github.com/stridebet/stridebet/stridebet/leaderboard"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/oracle"
	"github.com/stridebet/stridebet/stridebet/server"
	"github.com/stridebet/stridebet/stridebet/services"
	"github.com/stridebet/stridebet/stridebet/settlement"
	"github.com/stridebet/stridebet/stridebet/wager"
)

type App struct {
	Cfg     Config
	Version string
	Commit  string

	DB *database.DB

	ParticipantRepository repositories.ParticipantRepository
	ChallengeRepository   repositories.ChallengeRepository
	StakeRepository       repositories.StakeRepository
	CompetitorRepository  repositories.CompetitorRepository
	PayoutRepository      repositories.PayoutRepository
	SettingRepository     repositories.SettingRepository
	VaultRepository       repositories.VaultRepository

	AccessRegistry    *access.Registry
	OracleAdapter     *oracle.Adapter
	Vault             *escrow.Vault
	Ledger            *wager.Ledger
	ChallengeRegistry *wager.Registry
	Leaderboard       *leaderboard.Extension
	Engine            *settlement.Engine
	SearchService     *services.SearchService
	ReportService     *services.ReportService

	Server *server.Server
}

func New(cfg Config, version, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Setup builds every component on top of an open database handle.
func (a *App) Setup() error {
	bunDB := a.DB.BunDB()

	a.ParticipantRepository = repositories.NewParticipantRepository(bunDB)
	a.ChallengeRepository = repositories.NewChallengeRepository(bunDB)
	a.StakeRepository = repositories.NewStakeRepository(bunDB)
	a.CompetitorRepository = repositories.NewCompetitorRepository(bunDB)
	a.PayoutRepository = repositories.NewPayoutRepository(bunDB)
	a.SettingRepository = repositories.NewSettingRepository(bunDB)
	a.VaultRepository = repositories.NewVaultRepository(bunDB)

	a.AccessRegistry = access.NewRegistry(a.ParticipantRepository)

	feedTimeout := time.Duration(a.Cfg.Oracle.TimeoutSecs) * time.Second
	if feedTimeout <= 0 {
		feedTimeout = config.NetworkDialTimeout
	}
	feed := oracle.NewFeedClient(a.Cfg.Oracle.FeedURL, feedTimeout)
	adapter, err := oracle.NewAdapter(feed, a.Cfg.Oracle.Pair)
	if err != nil {
		return fmt.Errorf("failed to build oracle adapter: %w", err)
	}
	a.OracleAdapter = adapter

	a.Vault = escrow.NewVault(a.ParticipantRepository, a.VaultRepository)
	if err := a.Vault.Bind(wager.EscrowCaller); err != nil {
		return fmt.Errorf("failed to bind escrow caller: %w", err)
	}

	limits := wager.NewLimits(a.SettingRepository)
	a.Ledger = wager.NewLedger(a.ChallengeRepository, a.StakeRepository, a.AccessRegistry, a.OracleAdapter, a.Vault, limits)
	a.ChallengeRegistry = wager.NewRegistry(a.ChallengeRepository, a.CompetitorRepository, a.AccessRegistry, limits)
	a.Leaderboard = leaderboard.NewExtension(a.ChallengeRepository, a.CompetitorRepository, a.AccessRegistry, limits)

	a.Engine = settlement.NewEngine(
		a.ChallengeRepository,
		a.StakeRepository,
		a.PayoutRepository,
		a.Vault,
		limits,
		a.Cfg.Wager.AdminIDs(),
	)

	a.SearchService = services.NewSearchService(a.ChallengeRepository)

	if a.Cfg.Spaces.Enabled {
		reports, err := services.NewReportService(
			a.Cfg.Spaces.Key,
			a.Cfg.Spaces.Secret,
			a.Cfg.Spaces.Region,
			a.Cfg.Spaces.Bucket,
			a.Cfg.Spaces.ReportRoot,
		)
		if err != nil {
			return fmt.Errorf("failed to build report service: %w", err)
		}
		a.ReportService = reports
		a.Engine.SetArchiver(reports)
	}

	a.Server = server.New(
		server.Config{Addr: a.Cfg.Server.Addr, AdminToken: a.Cfg.Server.AdminToken},
		a.AccessRegistry,
		a.ChallengeRegistry,
		a.Ledger,
		a.Leaderboard,
		a.Engine,
		a.SettingRepository,
		a.SearchService,
	)
	return nil
}

// SettingDefaults merges compiled defaults with config overrides for the
// first-boot settings seed.
func (a *App) SettingDefaults() map[string]int64 {
	defaults := map[string]int64{
		models.SettingMinStakeUsd:     config.DefaultMinStakeUsd,
		models.SettingMaxBettors:      config.DefaultMaxBettors,
		models.SettingMaxDurationSecs: int64(config.DefaultMaxDuration / time.Second),
		models.SettingMaxMetrics:      config.DefaultMaxMetrics,
		models.SettingMaxCompetitors:  config.DefaultMaxCompetitors,
		models.SettingPayoutBatchSize: config.DefaultPayoutBatchSize,
	}

	w := a.Cfg.Wager
	if w.MinStakeUsd > 0 {
		defaults[models.SettingMinStakeUsd] = w.MinStakeUsd
	}
	if w.MaxBettors > 0 {
		defaults[models.SettingMaxBettors] = w.MaxBettors
	}
	if w.MaxDurationHrs > 0 {
		defaults[models.SettingMaxDurationSecs] = w.MaxDurationHrs * 3600
	}
	if w.MaxMetrics > 0 {
		defaults[models.SettingMaxMetrics] = w.MaxMetrics
	}
	if w.MaxCompetitors > 0 {
		defaults[models.SettingMaxCompetitors] = w.MaxCompetitors
	}
	if w.PayoutBatchSize > 0 {
		defaults[models.SettingPayoutBatchSize] = w.PayoutBatchSize
	}
	return defaults
}

// Shutdown stops the HTTP server under the caller's deadline and closes the
// database.
func (a *App) Shutdown(ctx context.Context) {
	if a.Server != nil {
		if err := a.Server.ShutdownWithContext(ctx); err != nil {
			logger.LogError("http server shutdown failed", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
