package wager

import (
	"errors"
	"math/big"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

var (
	ErrNotChallenger    = errors.New("caller lacks challenger role")
	ErrNotBettor        = errors.New("caller lacks bettor role")
	ErrNotOwner         = errors.New("caller does not own this challenge")
	ErrNoMetrics        = errors.New("challenge needs at least one metric")
	ErrTooManyMetrics   = errors.New("metric count exceeds maximum")
	ErrBlankMetric      = errors.New("metric type must not be blank")
	ErrBadDuration      = errors.New("duration must be positive and within maximum")
	ErrBlankTitle       = errors.New("challenge title must not be blank")
	ErrNotInactive      = errors.New("challenge is not inactive")
	ErrNotActive        = errors.New("challenge is not active")
	ErrChallengeExpired = errors.New("challenge has expired")
	ErrSideEmpty        = errors.New("nobody staked on one side")
	ErrFewCompetitors   = errors.New("leaderboard needs at least two joined competitors")
	ErrInvalidSide      = errors.New("stake side must be for or against")
	ErrNonPositiveStake = errors.New("stake amount must be positive")
	ErrStakeExists      = errors.New("participant already staked on this challenge")
	ErrBettorCapReached = errors.New("challenge bettor cap reached")
	ErrStakeBelowUsdMin = errors.New("stake below minimum USD-equivalent value")
	ErrOwnerAgainstSelf = errors.New("challenger cannot stake against own challenge")
	ErrUnknownMetric    = errors.New("measurement for a metric the challenge does not track")
)

// rateScale is 10^18, the fixed precision both the oracle and the USD
// comparison use.
var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// meetsMinimumUsd reports whether amount (in 1e18 base units) at the given
// 1e18-scaled rate is worth at least minUsd whole dollars. The comparison
// floors, so a stake a fraction of a cent short is rejected.
func meetsMinimumUsd(amount int64, rate *big.Int, minUsd int64) bool {
	usdValue := new(big.Int).Mul(big.NewInt(amount), rate)
	usdValue.Quo(usdValue, rateScale)

	threshold := new(big.Int).Mul(big.NewInt(minUsd), rateScale)
	return usdValue.Cmp(threshold) >= 0
}

// validateCreate checks the structural rules for a new challenge.
func validateCreate(title string, targets map[string]int64, duration time.Duration, maxMetrics int, maxDuration time.Duration) error {
	if title == "" {
		return ErrBlankTitle
	}
	if len(targets) == 0 {
		return ErrNoMetrics
	}
	if len(targets) > maxMetrics {
		return ErrTooManyMetrics
	}
	for metric := range targets {
		if metric == "" {
			return ErrBlankMetric
		}
	}
	if duration <= 0 || duration > maxDuration {
		return ErrBadDuration
	}
	return nil
}

// validateStake checks every stake precondition that can be answered from a
// loaded snapshot. Zero-target metrics are legal, so only the lifecycle and
// cap rules live here.
func validateStake(c *models.Challenge, participantID string, side models.StakeSide, amount int64, hasStake bool, maxBettors int) error {
	if !side.Valid() {
		return ErrInvalidSide
	}
	// Leaderboard challenges have no against side; every stake backs its
	// placer.
	if c.Mode == models.ChallengeModeLeaderboard && side != models.StakeSideFor {
		return ErrInvalidSide
	}
	if amount <= 0 {
		return ErrNonPositiveStake
	}
	if c.Status != models.ChallengeStatusInactive {
		return ErrNotInactive
	}
	if participantID == c.OwnerID && side == models.StakeSideAgainst {
		return ErrOwnerAgainstSelf
	}
	if hasStake {
		return ErrStakeExists
	}
	if c.BettorsFor+c.BettorsAgainst >= maxBettors {
		return ErrBettorCapReached
	}
	return nil
}

// validateStart checks the start preconditions for either mode.
func validateStart(c *models.Challenge, joinedCompetitors int) error {
	if c.Status != models.ChallengeStatusInactive {
		return ErrNotInactive
	}
	switch c.Mode {
	case models.ChallengeModeLeaderboard:
		if joinedCompetitors < 2 {
			return ErrFewCompetitors
		}
	default:
		if c.TotalStakedFor == 0 || c.TotalStakedAgainst == 0 {
			return ErrSideEmpty
		}
	}
	return nil
}

// validateMeasurements checks that every submitted metric belongs to the
// challenge's target set.
func validateMeasurements(c *models.Challenge, finals map[string]int64) error {
	if len(finals) == 0 {
		return ErrNoMetrics
	}
	for metric := range finals {
		if _, ok := c.Targets[metric]; !ok {
			return ErrUnknownMetric
		}
	}
	return nil
}
