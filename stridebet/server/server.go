// Package server exposes the ledger over HTTP: participant-facing wagering
// routes plus a token-guarded administrative surface.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/stridebet/stridebet/stridebet/access"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/leaderboard"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/services"
	"github.com/stridebet/stridebet/stridebet/settlement"
	"github.com/stridebet/stridebet/stridebet/wager"
)

const fiberShutdownTimeout = 10 * time.Second

type Config struct {
	Addr       string
	AdminToken string
}

type Server struct {
	app       *fiber.App
	cfg       Config
	access    *access.Registry
	registry  *wager.Registry
	ledger    *wager.Ledger
	extension *leaderboard.Extension
	engine    *settlement.Engine
	settings  repositories.SettingRepository
	search    *services.SearchService
}

func New(
	cfg Config,
	accessReg *access.Registry,
	registry *wager.Registry,
	ledger *wager.Ledger,
	extension *leaderboard.Extension,
	engine *settlement.Engine,
	settings repositories.SettingRepository,
	search *services.SearchService,
) *Server {
	s := &Server{
		cfg:       cfg,
		access:    accessReg,
		registry:  registry,
		ledger:    ledger,
		extension: extension,
		engine:    engine,
		settings:  settings,
		search:    search,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "stridebet",
		ErrorHandler: errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(compress.New())
	s.app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Actor-ID",
	}))
	s.app.Use(RequestLogger())

	s.registerRoutes()
	return s
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(APIResponse{
		Success: false,
		Error:   &APIError{Code: "HTTP_ERROR", Message: message},
	})
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api/v1")

	// Participant-facing surface.
	api.Get("/challenges", s.handleListChallenges)
	api.Get("/challenges/search", s.handleSearchChallenges)
	api.Get("/challenges/:id", s.handleGetChallenge)
	api.Post("/challenges", s.handleCreateChallenge)
	api.Post("/challenges/:id/start", s.handleStartChallenge)
	api.Post("/challenges/:id/measurements", s.handleSubmitMeasurements)
	api.Post("/challenges/:id/stakes", s.handlePlaceStake)
	api.Get("/challenges/:id/stakes", s.handleGetStake)
	api.Get("/challenges/:id/payouts", s.handlePayoutHistory)

	api.Post("/leaderboards", s.handleCreateMultiplayer)
	api.Post("/leaderboards/:id/join", s.handleJoin)
	api.Post("/leaderboards/:id/leave", s.handleLeave)
	api.Post("/leaderboards/:id/scores", s.handleSubmitScore)
	api.Get("/leaderboards/:id/standings", s.handleStandings)

	// Administrative surface.
	admin := api.Group("/admin", AdminRequired(s.cfg.AdminToken))
	admin.Post("/access/bettors/:id", s.handleGrantBettor)
	admin.Delete("/access/bettors/:id", s.handleRevokeBettor)
	admin.Post("/access/challengers/:id", s.handleGrantChallenger)
	admin.Delete("/access/challengers/:id", s.handleRevokeChallenger)
	admin.Get("/access/:id", s.handleGetRoles)
	admin.Post("/challenges/:id/distribute", s.handleDistribute)
	admin.Post("/challenges/:id/reconcile", s.handleReconcile)
	admin.Get("/settings", s.handleGetSettings)
	admin.Put("/settings/:key", s.handlePutSetting)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	logger.LogSystem("http server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(fiberShutdownTimeout)
}

// ShutdownWithContext stops the server, honoring the caller's deadline.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// sendDomainError maps domain sentinels onto HTTP statuses so clients get
// the exact rejection reason.
func sendDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, wager.ErrNotChallenger),
		errors.Is(err, wager.ErrNotBettor),
		errors.Is(err, wager.ErrNotOwner),
		errors.Is(err, wager.ErrOwnerAgainstSelf),
		errors.Is(err, settlement.ErrNotAdmin):
		return SendForbidden(c, err.Error())

	case errors.Is(err, access.ErrAlreadyWhitelisted),
		errors.Is(err, wager.ErrStakeExists),
		errors.Is(err, wager.ErrBettorCapReached),
		errors.Is(err, leaderboard.ErrAlreadyJoined),
		errors.Is(err, leaderboard.ErrRosterFull),
		errors.Is(err, settlement.ErrAlreadyPaid):
		return SendConflict(c, err.Error())

	case errors.Is(err, access.ErrNotWhitelisted),
		errors.Is(err, wager.ErrNoMetrics),
		errors.Is(err, wager.ErrTooManyMetrics),
		errors.Is(err, wager.ErrBlankMetric),
		errors.Is(err, wager.ErrBlankTitle),
		errors.Is(err, wager.ErrBadDuration),
		errors.Is(err, wager.ErrNotInactive),
		errors.Is(err, wager.ErrNotActive),
		errors.Is(err, wager.ErrChallengeExpired),
		errors.Is(err, wager.ErrSideEmpty),
		errors.Is(err, wager.ErrFewCompetitors),
		errors.Is(err, wager.ErrInvalidSide),
		errors.Is(err, wager.ErrNonPositiveStake),
		errors.Is(err, wager.ErrStakeBelowUsdMin),
		errors.Is(err, wager.ErrUnknownMetric),
		errors.Is(err, wager.ErrLeaderboardMode),
		errors.Is(err, leaderboard.ErrNotLeaderboard),
		errors.Is(err, leaderboard.ErrBadCap),
		errors.Is(err, leaderboard.ErrNotJoined),
		errors.Is(err, leaderboard.ErrNegativeScore),
		errors.Is(err, settlement.ErrNotStarted),
		errors.Is(err, settlement.ErrNotExpired):
		return SendBadRequest(c, err.Error())
	}

	var notFound *repositories.NotFoundError
	if errors.As(err, &notFound) {
		return SendNotFound(c, err.Error())
	}

	logger.LogError("unhandled API error", err, "path", c.Path())
	return SendInternalServerError(c, "unexpected error")
}
