package migration

import (
	"math"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

// toBaseUnits converts a legacy fractional-token amount to 1e18 base units,
// clamping anything that would overflow int64.
func toBaseUnits(amount float64) int64 {
	if amount <= 0 {
		return 0
	}
	scaled := amount * tokenScale
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(scaled)
}

func unixOrZero(secs int64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func convertParticipant(doc MongoParticipant) *models.Participant {
	return &models.Participant{
		ID:         doc.AccountID,
		Challenger: doc.CanChallenge,
		Bettor:     doc.CanBet || doc.CanChallenge,
		Balance:    toBaseUnits(doc.Balance),
		CreatedAt:  unixOrZero(doc.CreatedAt),
		UpdatedAt:  time.Now(),
	}
}

func convertChallengeStatus(state string) models.ChallengeStatus {
	switch state {
	case "active", "running":
		return models.ChallengeStatusActive
	case "expired":
		return models.ChallengeStatusExpired
	case "won":
		return models.ChallengeStatusWon
	case "lost":
		return models.ChallengeStatusLost
	default:
		return models.ChallengeStatusInactive
	}
}

func convertChallenge(doc MongoChallenge) *models.Challenge {
	targets := doc.Targets
	if targets == nil {
		targets = map[string]int64{}
	}
	finals := doc.Finals
	if finals == nil {
		finals = map[string]int64{}
	}

	return &models.Challenge{
		ID:           doc.ChallengeID,
		OwnerID:      doc.Owner,
		Title:        doc.Name,
		Description:  doc.Details,
		Mode:         models.ChallengeModeBinary,
		Status:       convertChallengeStatus(doc.State),
		DurationSecs: doc.Duration,
		StartTime:    unixOrZero(doc.StartedAt),
		Targets:      targets,
		Finals:       finals,
		WinningsPaid: toBaseUnits(doc.PaidOut),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// convertStake rejects rows the new schema cannot represent: unknown sides
// and non-positive amounts. Aggregate totals on the challenge row are
// recomputed by the caller after import, not trusted from the dump.
func convertStake(doc MongoStake) (*models.Stake, bool) {
	side := models.StakeSide(doc.Side)
	if !side.Valid() || doc.ChallengeID == 0 || doc.Account == "" {
		return nil, false
	}
	amount := toBaseUnits(doc.Amount)
	if amount <= 0 {
		return nil, false
	}
	return &models.Stake{
		ChallengeID:   doc.ChallengeID,
		ParticipantID: doc.Account,
		Side:          side,
		Amount:        amount,
		CreatedAt:     unixOrZero(doc.PlacedAt),
	}, true
}
