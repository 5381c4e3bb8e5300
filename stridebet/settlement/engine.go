// Package settlement computes challenge outcomes and distributes escrowed
// funds in bounded batches. The administrator calls Distribute repeatedly
// until it reports zero remaining; each call is one indivisible batch.
package settlement

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/wager"
	"github.com/uptrace/bun"
)

var (
	ErrNotAdmin    = errors.New("caller is not an administrator")
	ErrAlreadyPaid = errors.New("challenge already settled")
	ErrNotStarted  = errors.New("challenge never started")
	ErrNotExpired  = errors.New("challenge window still open")
)

// Report summarizes a completed settlement for archival.
type Report struct {
	ChallengeID int64                  `json:"challenge_id"`
	Mode        models.ChallengeMode   `json:"mode"`
	Status      models.ChallengeStatus `json:"status"`
	Refunded    bool                   `json:"refunded"`
	CorrectPool int64                  `json:"correct_pool"`
	LosingPool  int64                  `json:"losing_pool"`
	Payouts     []*models.PayoutAttempt `json:"payouts"`
	SettledAt   time.Time              `json:"settled_at"`
}

// Archiver persists settlement reports out of band. Archival failure never
// fails a settlement.
type Archiver interface {
	ArchiveSettlement(ctx context.Context, report *Report) error
}

type Engine struct {
	challenges repositories.ChallengeRepository
	stakes     repositories.StakeRepository
	payouts    repositories.PayoutRepository
	vault      wager.Custodian
	limits     *wager.Limits
	admins     map[string]struct{}
	archiver   Archiver
	now        func() time.Time
}

func NewEngine(
	challenges repositories.ChallengeRepository,
	stakes repositories.StakeRepository,
	payouts repositories.PayoutRepository,
	vault wager.Custodian,
	limits *wager.Limits,
	adminIDs []string,
) *Engine {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Engine{
		challenges: challenges,
		stakes:     stakes,
		payouts:    payouts,
		vault:      vault,
		limits:     limits,
		admins:     admins,
		now:        time.Now,
	}
}

// SetArchiver attaches the optional report archiver.
func (e *Engine) SetArchiver(a Archiver) {
	e.archiver = a
}

func (e *Engine) isAdmin(id string) bool {
	_, ok := e.admins[id]
	return ok
}

// settleGate decides whether a challenge can enter settlement, flipping a
// still-active expired challenge to expired. Once winnings were paid or the
// challenge is terminal it can never settle again.
func settleGate(c *models.Challenge, now time.Time) error {
	if c.WinningsPaid > 0 || c.Status.Terminal() {
		return ErrAlreadyPaid
	}
	if c.StartTime.IsZero() {
		return ErrNotStarted
	}
	if !c.ExpiredAt(now) {
		return ErrNotExpired
	}
	if c.Status == models.ChallengeStatusActive {
		c.Status = models.ChallengeStatusExpired
	}
	return nil
}

// Distribute processes one payout batch for an expired challenge and
// returns how many stakes it handled and how many remain. When remaining
// hits zero the challenge is pinned terminal and cannot settle again.
func (e *Engine) Distribute(ctx context.Context, challengeID int64, callerID string) (processed, remaining int, err error) {
	if !e.isAdmin(callerID) {
		return 0, 0, ErrNotAdmin
	}

	batchSize := e.limits.PayoutBatchSize(ctx)

	ctx, cancel := context.WithTimeout(ctx, config.SettlementTimeout)
	defer cancel()

	var finished bool
	var report *Report

	err = e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := e.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if err := settleGate(challenge, e.now()); err != nil {
			return err
		}

		won, p, err := e.resolvePools(ctx, challenge)
		if err != nil {
			return err
		}

		batch, err := e.stakes.GetBatch(ctx, tx, challengeID, challenge.PayoutCursor, batchSize)
		if err != nil {
			return err
		}
		total, err := e.stakes.CountByChallenge(ctx, tx, challengeID)
		if err != nil {
			return err
		}

		for _, stake := range batch {
			e.payStake(ctx, tx, challenge, p, stake)
		}

		challenge.PayoutCursor += len(batch)
		processed = len(batch)
		remaining = total - challenge.PayoutCursor
		if remaining < 0 {
			remaining = 0
		}

		if remaining == 0 {
			challenge.WinningsPaid = p.losing
			if p.refund {
				// Refund runs leave the full pool marked as handled.
				challenge.WinningsPaid = p.correct + p.losing
			}
			if won {
				challenge.Status = models.ChallengeStatusWon
			} else {
				challenge.Status = models.ChallengeStatusLost
			}
			finished = true
			report = &Report{
				ChallengeID: challengeID,
				Mode:        challenge.Mode,
				Status:      challenge.Status,
				Refunded:    p.refund,
				CorrectPool: p.correct,
				LosingPool:  p.losing,
				SettledAt:   e.now(),
			}
		}
		return e.challenges.UpdateWithTx(ctx, tx, challenge)
	})
	if err != nil {
		return 0, 0, err
	}

	logger.LogSystem("settlement batch complete",
		"challenge", challengeID,
		"processed", processed,
		"remaining", remaining,
	)

	if finished {
		e.archive(ctx, report)
	}
	return processed, remaining, nil
}

// resolvePools decides the outcome and pool split for either mode.
func (e *Engine) resolvePools(ctx context.Context, challenge *models.Challenge) (bool, pools, error) {
	if challenge.Mode == models.ChallengeModeLeaderboard {
		leaderStake := int64(0)
		if challenge.LeaderID != "" {
			var err error
			// Stakes are immutable once the challenge leaves Inactive, so
			// reading outside the row lock is safe.
			leaderStake, err = e.stakes.GetAmount(ctx, challenge.ID, challenge.LeaderID, models.StakeSideFor)
			if err != nil {
				return false, pools{}, err
			}
		}
		p := leaderboardPools(challenge, leaderStake)
		return !p.refund, p, nil
	}

	won := challengeWon(challenge.Targets, challenge.Finals)
	return won, binaryPools(challenge, won), nil
}

// txRunner is the slice of bun.Tx that payStake needs: nested RunInTx opens
// a savepoint, so each transfer rolls back alone.
type txRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// payStake attempts one transfer. Each attempt runs under its own savepoint:
// a failed transfer rolls back exactly its own writes, is recorded, and the
// rest of the batch stands.
func (e *Engine) payStake(ctx context.Context, tx txRunner, challenge *models.Challenge, p pools, stake *models.Stake) {
	attempt, ok := payoutPlan(p, stake)
	if !ok {
		return // losing side gets nothing
	}

	err := tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
		return e.vault.Withdraw(ctx, sp, wager.EscrowCaller, challenge.ID, stake.ParticipantID, attempt.Amount)
	})
	if err != nil {
		attempt.Status = models.PayoutStatusFailed
		attempt.LastError = err.Error()
		logger.LogError("payout transfer failed", err,
			"challenge", challenge.ID,
			"participant", stake.ParticipantID,
			"amount", attempt.Amount,
		)
	}

	// The record insert gets its own savepoint too, so a bad row cannot
	// poison the batch transaction.
	recErr := tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
		return e.payouts.RecordWithTx(ctx, sp, attempt)
	})
	if recErr != nil {
		logger.LogError("failed to record payout attempt", recErr,
			"challenge", challenge.ID,
			"participant", stake.ParticipantID,
		)
	}
}

func (e *Engine) archive(ctx context.Context, report *Report) {
	if e.archiver == nil || report == nil {
		return
	}
	attempts, err := e.payouts.ListByChallenge(ctx, report.ChallengeID)
	if err == nil {
		report.Payouts = attempts
	}
	if err := e.archiver.ArchiveSettlement(ctx, report); err != nil {
		logger.LogError("failed to archive settlement report", err,
			"challenge", report.ChallengeID,
		)
	}
}

// PayoutHistory lists every payout attempt for a challenge.
func (e *Engine) PayoutHistory(ctx context.Context, challengeID int64) ([]*models.PayoutAttempt, error) {
	return e.payouts.ListByChallenge(ctx, challengeID)
}
