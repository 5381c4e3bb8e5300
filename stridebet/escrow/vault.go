// Package escrow holds staked funds in a single pooled custody account.
// Only one caller, bound once at startup, may move money through it.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/uptrace/bun"
)

var (
	ErrCallerAlreadyBound = errors.New("escrow caller already bound")
	ErrCallerNotBound     = errors.New("escrow caller not bound")
	ErrUnauthorizedCaller = errors.New("caller not authorized for escrow")
	ErrNonPositiveAmount  = errors.New("escrow amount must be positive")
)

type Vault struct {
	participants repositories.ParticipantRepository
	vaults       repositories.VaultRepository

	mu     sync.Mutex
	caller string
}

func NewVault(participants repositories.ParticipantRepository, vaults repositories.VaultRepository) *Vault {
	return &Vault{
		participants: participants,
		vaults:       vaults,
	}
}

// Bind fixes the single authorized caller. It can be done exactly once.
func (v *Vault) Bind(caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.caller != "" {
		return ErrCallerAlreadyBound
	}
	if caller == "" {
		return ErrCallerNotBound
	}
	v.caller = caller
	logger.LogSystem("escrow caller bound", "caller", caller)
	return nil
}

func (v *Vault) authorize(caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.caller == "" {
		return ErrCallerNotBound
	}
	if caller != v.caller {
		return ErrUnauthorizedCaller
	}
	return nil
}

// Deposit moves funds from a participant into the pooled account inside the
// caller's transaction, so the stake bookkeeping and the custody transfer
// commit or roll back together.
func (v *Vault) Deposit(ctx context.Context, tx bun.Tx, caller string, challengeID int64, participantID string, amount int64) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}

	if err := v.participants.DebitBalance(ctx, tx, participantID, amount); err != nil {
		return fmt.Errorf("escrow deposit: %w", err)
	}
	if err := v.vaults.CreditWithTx(ctx, tx, amount); err != nil {
		return fmt.Errorf("escrow deposit: %w", err)
	}

	return v.vaults.RecordTransferWithTx(ctx, tx, &models.VaultTransfer{
		ChallengeID:   challengeID,
		ParticipantID: participantID,
		Direction:     models.VaultDirectionDeposit,
		Amount:        amount,
		Caller:        caller,
	})
}

// Withdraw releases pooled funds back to a participant.
func (v *Vault) Withdraw(ctx context.Context, tx bun.Tx, caller string, challengeID int64, participantID string, amount int64) error {
	if err := v.authorize(caller); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}

	if err := v.vaults.DebitWithTx(ctx, tx, amount); err != nil {
		return fmt.Errorf("escrow withdrawal: %w", err)
	}
	if err := v.participants.CreditBalance(ctx, tx, participantID, amount); err != nil {
		return fmt.Errorf("escrow withdrawal: %w", err)
	}

	return v.vaults.RecordTransferWithTx(ctx, tx, &models.VaultTransfer{
		ChallengeID:   challengeID,
		ParticipantID: participantID,
		Direction:     models.VaultDirectionWithdraw,
		Amount:        amount,
		Caller:        caller,
	})
}

// Balance reports the pooled custody balance.
func (v *Vault) Balance(ctx context.Context) (int64, error) {
	return v.vaults.Balance(ctx)
}
