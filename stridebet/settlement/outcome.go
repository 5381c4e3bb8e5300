package settlement

import (
	"math/big"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

// challengeWon reports whether every target metric was met. A metric with
// no final measurement fails, and failing any single metric fails the
// challenge.
func challengeWon(targets, finals map[string]int64) bool {
	for metric, target := range targets {
		final, ok := finals[metric]
		if !ok || final < target {
			return false
		}
	}
	return len(targets) > 0
}

// payoutShare computes principal plus pro-rata winnings:
// stake + stake*losingPool/correctPool, floored. Intermediates go through
// big.Int so stake*losingPool cannot overflow.
func payoutShare(stake, losingPool, correctPool int64) int64 {
	if correctPool <= 0 {
		return stake
	}
	winnings := new(big.Int).Mul(big.NewInt(stake), big.NewInt(losingPool))
	winnings.Quo(winnings, big.NewInt(correctPool))
	return stake + winnings.Int64()
}

// pools splits a challenge's staked totals into the correct-side and
// losing-side pools.
type pools struct {
	correct int64
	losing  int64
	// winner decides whether a given stake is on the correct side.
	winner func(*models.Stake) bool
	// refund is set when the correct side is empty: every stake gets its
	// principal back instead of stranding the pool in escrow.
	refund bool
}

// payoutPlan decides what one stake receives. ok is false for losing-side
// stakes, which get no transfer and no payout record.
func payoutPlan(p pools, stake *models.Stake) (attempt *models.PayoutAttempt, ok bool) {
	switch {
	case p.refund:
		return &models.PayoutAttempt{
			ChallengeID:   stake.ChallengeID,
			ParticipantID: stake.ParticipantID,
			Amount:        stake.Amount,
			Status:        models.PayoutStatusRefunded,
		}, true
	case p.winner(stake):
		return &models.PayoutAttempt{
			ChallengeID:   stake.ChallengeID,
			ParticipantID: stake.ParticipantID,
			Amount:        payoutShare(stake.Amount, p.losing, p.correct),
			Status:        models.PayoutStatusPaid,
		}, true
	default:
		return nil, false
	}
}

// binaryPools derives the pools for a for/against challenge from its
// outcome.
func binaryPools(c *models.Challenge, won bool) pools {
	p := pools{}
	if won {
		p.correct = c.TotalStakedFor
		p.losing = c.TotalStakedAgainst
		p.winner = func(s *models.Stake) bool { return s.Side == models.StakeSideFor }
	} else {
		p.correct = c.TotalStakedAgainst
		p.losing = c.TotalStakedFor
		p.winner = func(s *models.Stake) bool { return s.Side == models.StakeSideAgainst }
	}
	if p.correct == 0 {
		p.refund = true
	}
	return p
}

// leaderboardPools treats the leader's stake as the correct side and every
// other competitor's stake as the losing side.
func leaderboardPools(c *models.Challenge, leaderStake int64) pools {
	total := c.TotalStakedFor + c.TotalStakedAgainst
	p := pools{
		correct: leaderStake,
		losing:  total - leaderStake,
		winner:  func(s *models.Stake) bool { return s.ParticipantID == c.LeaderID },
	}
	if c.LeaderID == "" || p.correct == 0 {
		p.refund = true
	}
	return p
}
