package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stridebet/stridebet/stridebet/database/models"
)

func challengeID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// --- access ---

func (s *Server) handleGrantBettor(c *fiber.Ctx) error {
	if err := s.access.GrantBettor(c.UserContext(), c.Params("id")); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "bettor access granted")
}

func (s *Server) handleRevokeBettor(c *fiber.Ctx) error {
	if err := s.access.RevokeBettor(c.UserContext(), c.Params("id")); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "bettor access revoked")
}

func (s *Server) handleGrantChallenger(c *fiber.Ctx) error {
	if err := s.access.GrantChallenger(c.UserContext(), c.Params("id")); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "challenger access granted")
}

func (s *Server) handleRevokeChallenger(c *fiber.Ctx) error {
	if err := s.access.RevokeChallenger(c.UserContext(), c.Params("id")); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "challenger access revoked")
}

func (s *Server) handleGetRoles(c *fiber.Ctx) error {
	id := c.Params("id")
	isBettor, err := s.access.IsBettor(c.UserContext(), id)
	if err != nil {
		return sendDomainError(c, err)
	}
	isChallenger, err := s.access.IsChallenger(c.UserContext(), id)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, fiber.Map{
		"participant": id,
		"bettor":      isBettor,
		"challenger":  isChallenger,
	}, "")
}

// --- challenges ---

type createChallengeRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Targets      map[string]int64 `json:"targets"`
	DurationSecs int64            `json:"duration_secs"`
}

func (s *Server) handleCreateChallenge(c *fiber.Ctx) error {
	actor := actorID(c)
	if actor == "" {
		return SendBadRequest(c, "X-Actor-ID header required")
	}

	var req createChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}

	challenge, err := s.registry.Create(c.UserContext(), actor, req.Title, req.Description,
		req.Targets, time.Duration(req.DurationSecs)*time.Second)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendCreated(c, challenge, "challenge created")
}

func (s *Server) handleStartChallenge(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	if err := s.registry.Start(c.UserContext(), id, actorID(c)); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "challenge started")
}

type measurementsRequest struct {
	Finals map[string]int64 `json:"finals"`
}

func (s *Server) handleSubmitMeasurements(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}

	var req measurementsRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}

	if err := s.registry.SubmitMeasurements(c.UserContext(), id, actorID(c), req.Finals); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "measurements recorded")
}

func (s *Server) handleGetChallenge(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	challenge, err := s.registry.Get(c.UserContext(), id)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, challenge, "")
}

func (s *Server) handleListChallenges(c *fiber.Ctx) error {
	if c.QueryBool("active") {
		challenges, err := s.registry.ListActive(c.UserContext())
		if err != nil {
			return sendDomainError(c, err)
		}
		return SendSuccess(c, challenges, "")
	}

	challenges, err := s.registry.List(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, challenges, "")
}

func (s *Server) handleSearchChallenges(c *fiber.Ctx) error {
	results, err := s.search.SearchChallenges(c.UserContext(), c.Query("q"), c.QueryInt("limit", 25))
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, results, "")
}

// --- stakes ---

type placeStakeRequest struct {
	Side   models.StakeSide `json:"side"`
	Amount int64            `json:"amount"`
}

func (s *Server) handlePlaceStake(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	actor := actorID(c)
	if actor == "" {
		return SendBadRequest(c, "X-Actor-ID header required")
	}

	var req placeStakeRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}

	if err := s.ledger.PlaceStake(c.UserContext(), id, actor, req.Side, req.Amount); err != nil {
		return sendDomainError(c, err)
	}
	return SendCreated(c, nil, "stake placed")
}

func (s *Server) handleGetStake(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	participant := c.Query("participant")
	if participant == "" {
		stakes, err := s.ledger.StakesFor(c.UserContext(), id)
		if err != nil {
			return sendDomainError(c, err)
		}
		return SendSuccess(c, stakes, "")
	}

	side := models.StakeSide(c.Query("side"))
	if !side.Valid() {
		return SendBadRequest(c, "side query parameter required")
	}

	amount, err := s.ledger.GetStake(c.UserContext(), id, participant, side)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, fiber.Map{
		"challenge":   id,
		"participant": participant,
		"side":        side,
		"amount":      amount,
	}, "")
}

// --- leaderboards ---

type createMultiplayerRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	DurationSecs  int64  `json:"duration_secs"`
	CompetitorCap int    `json:"competitor_cap"`
}

func (s *Server) handleCreateMultiplayer(c *fiber.Ctx) error {
	actor := actorID(c)
	if actor == "" {
		return SendBadRequest(c, "X-Actor-ID header required")
	}

	var req createMultiplayerRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}

	challenge, err := s.extension.CreateMultiplayer(c.UserContext(), actor, req.Title, req.Description,
		time.Duration(req.DurationSecs)*time.Second, req.CompetitorCap)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendCreated(c, challenge, "leaderboard challenge created")
}

func (s *Server) handleJoin(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	if err := s.extension.Join(c.UserContext(), id, actorID(c)); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "joined")
}

func (s *Server) handleLeave(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	if err := s.extension.Leave(c.UserContext(), id, actorID(c)); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "left")
}

type submitScoreRequest struct {
	Score int64 `json:"score"`
}

func (s *Server) handleSubmitScore(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}

	var req submitScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}

	if err := s.extension.SubmitScore(c.UserContext(), id, actorID(c), req.Score); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "score recorded")
}

func (s *Server) handleStandings(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	standings, err := s.extension.Standings(c.UserContext(), id)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, standings, "")
}

// --- settlement ---

func (s *Server) handleDistribute(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}

	processed, remaining, err := s.engine.Distribute(c.UserContext(), id, actorID(c))
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, fiber.Map{
		"processed": processed,
		"remaining": remaining,
		"done":      remaining == 0,
	}, "settlement batch complete")
}

func (s *Server) handleReconcile(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}

	recovered, stillFailed, err := s.engine.ReconcileFailedPayouts(c.UserContext(), id, actorID(c))
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, fiber.Map{
		"recovered":    recovered,
		"still_failed": stillFailed,
	}, "reconciliation complete")
}

func (s *Server) handlePayoutHistory(c *fiber.Ctx) error {
	id, err := challengeID(c)
	if err != nil {
		return SendBadRequest(c, "invalid challenge id")
	}
	attempts, err := s.engine.PayoutHistory(c.UserContext(), id)
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, attempts, "")
}

// --- settings ---

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.settings.GetAll(c.UserContext())
	if err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, settings, "")
}

type putSettingRequest struct {
	Value int64 `json:"value"`
}

func (s *Server) handlePutSetting(c *fiber.Ctx) error {
	var req putSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return SendBadRequest(c, "invalid request body")
	}
	if req.Value < 0 {
		return SendBadRequest(c, "setting value must not be negative")
	}

	if err := s.settings.Set(c.UserContext(), c.Params("key"), req.Value, actorID(c)); err != nil {
		return sendDomainError(c, err)
	}
	return SendSuccess(c, nil, "setting updated")
}
