package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/stridebet/stridebet/stridebet/wager"
	"github.com/uptrace/bun"
)

// ReconcileFailedPayouts retries every failed payout attempt for a
// challenge. Each retry is its own transaction, so one stubborn transfer
// cannot block the others. Returns how many retries succeeded and how many
// are still failed.
func (e *Engine) ReconcileFailedPayouts(ctx context.Context, challengeID int64, callerID string) (recovered, stillFailed int, err error) {
	if !e.isAdmin(callerID) {
		return 0, 0, ErrNotAdmin
	}

	attempts, err := e.payouts.ListFailed(ctx, challengeID)
	if err != nil {
		return 0, 0, err
	}

	for _, attempt := range attempts {
		if err := e.retryPayout(ctx, attempt); err != nil {
			stillFailed++
			if markErr := e.payouts.MarkRetryFailed(ctx, attempt.ID, err.Error()); markErr != nil {
				logger.LogError("failed to update retry record", markErr,
					"attempt", attempt.ID,
				)
			}
			continue
		}
		recovered++
	}

	logger.LogSystem("payout reconciliation complete",
		"challenge", challengeID,
		"recovered", recovered,
		"still_failed", stillFailed,
	)
	return recovered, stillFailed, nil
}

func (e *Engine) retryPayout(ctx context.Context, attempt *models.PayoutAttempt) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	return e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		if err := e.vault.Withdraw(ctx, tx, wager.EscrowCaller, attempt.ChallengeID, attempt.ParticipantID, attempt.Amount); err != nil {
			return fmt.Errorf("retry transfer: %w", err)
		}
		return e.payouts.MarkResolvedWithTx(ctx, tx, attempt.ID, models.PayoutStatusPaid)
	})
}
