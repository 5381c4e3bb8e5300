// Package wager is the bookkeeping core: the betting ledger that records
// stakes and the challenge registry that owns the lifecycle state machine.
package wager

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/uptrace/bun"
)

// EscrowCaller is the identity the escrow vault is bound to. The ledger and
// the settlement engine share it; nothing else may move custodied funds.
const EscrowCaller = "wager-ledger"

// AccessChecker answers role queries.
type AccessChecker interface {
	IsBettor(ctx context.Context, id string) (bool, error)
	IsChallenger(ctx context.Context, id string) (bool, error)
}

// RateSource supplies the validated token/USD rate at 1e18 precision.
type RateSource interface {
	TokenRate(ctx context.Context) (*big.Int, error)
}

// Custodian moves funds between participant balances and pooled escrow.
type Custodian interface {
	Deposit(ctx context.Context, tx bun.Tx, caller string, challengeID int64, participantID string, amount int64) error
	Withdraw(ctx context.Context, tx bun.Tx, caller string, challengeID int64, participantID string, amount int64) error
}

type Ledger struct {
	challenges repositories.ChallengeRepository
	stakes     repositories.StakeRepository
	access     AccessChecker
	rates      RateSource
	vault      Custodian
	limits     *Limits
}

func NewLedger(
	challenges repositories.ChallengeRepository,
	stakes repositories.StakeRepository,
	access AccessChecker,
	rates RateSource,
	vault Custodian,
	limits *Limits,
) *Ledger {
	return &Ledger{
		challenges: challenges,
		stakes:     stakes,
		access:     access,
		rates:      rates,
		vault:      vault,
		limits:     limits,
	}
}

// PlaceStake escrows amount on one side of an inactive challenge. The stake
// row, the challenge totals and the custody transfer commit atomically.
func (l *Ledger) PlaceStake(ctx context.Context, challengeID int64, participantID string, side models.StakeSide, amount int64) error {
	isBettor, err := l.access.IsBettor(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check bettor role: %w", err)
	}
	if !isBettor {
		return ErrNotBettor
	}

	rate, err := l.rates.TokenRate(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token rate: %w", err)
	}

	minUsd := l.limits.MinStakeUsd(ctx)
	maxBettors := l.limits.MaxBettors(ctx)

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	err = l.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := l.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}

		hasStake, err := l.stakes.HasAnyStake(ctx, tx, challengeID, participantID)
		if err != nil {
			return err
		}

		if err := validateStake(challenge, participantID, side, amount, hasStake, maxBettors); err != nil {
			return err
		}
		if !meetsMinimumUsd(amount, rate, minUsd) {
			return ErrStakeBelowUsdMin
		}

		if err := l.vault.Deposit(ctx, tx, EscrowCaller, challengeID, participantID, amount); err != nil {
			return err
		}

		if err := l.stakes.CreateWithTx(ctx, tx, &models.Stake{
			ChallengeID:   challengeID,
			ParticipantID: participantID,
			Side:          side,
			Amount:        amount,
		}); err != nil {
			return err
		}

		if side == models.StakeSideFor {
			challenge.TotalStakedFor += amount
			challenge.BettorsFor++
		} else {
			challenge.TotalStakedAgainst += amount
			challenge.BettorsAgainst++
		}
		return l.challenges.UpdateWithTx(ctx, tx, challenge)
	})
	if err != nil {
		return err
	}

	logger.LogSystem("stake placed",
		"challenge", challengeID,
		"participant", participantID,
		"side", string(side),
		"amount", amount,
	)
	return nil
}

// GetStake returns the amount a participant staked on a side, zero if none.
func (l *Ledger) GetStake(ctx context.Context, challengeID int64, participantID string, side models.StakeSide) (int64, error) {
	return l.stakes.GetAmount(ctx, challengeID, participantID, side)
}

// StakesFor lists a challenge's stakes in settlement order.
func (l *Ledger) StakesFor(ctx context.Context, challengeID int64) ([]*models.Stake, error) {
	return l.stakes.GetByChallengeOrdered(ctx, challengeID)
}
