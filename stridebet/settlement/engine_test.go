package settlement

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

// fakeSavepointTx runs each nested closure directly, standing in for the
// savepoint a live transaction would open.
type fakeSavepointTx struct{}

func (fakeSavepointTx) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

type fakeCustodian struct {
	withdrawals []string
	failFor     map[string]error
}

func (f *fakeCustodian) Deposit(_ context.Context, _ bun.Tx, _ string, _ int64, _ string, _ int64) error {
	return nil
}

func (f *fakeCustodian) Withdraw(_ context.Context, _ bun.Tx, _ string, _ int64, participantID string, _ int64) error {
	f.withdrawals = append(f.withdrawals, participantID)
	if err, ok := f.failFor[participantID]; ok {
		return err
	}
	return nil
}

type fakePayoutRepo struct {
	recorded  []*models.PayoutAttempt
	recordErr error
}

func (f *fakePayoutRepo) DB() *bun.DB { return nil }

func (f *fakePayoutRepo) RecordWithTx(_ context.Context, _ bun.Tx, attempt *models.PayoutAttempt) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, attempt)
	return nil
}

func (f *fakePayoutRepo) ListFailed(_ context.Context, _ int64) ([]*models.PayoutAttempt, error) {
	var failed []*models.PayoutAttempt
	for _, a := range f.recorded {
		if a.Status == models.PayoutStatusFailed {
			failed = append(failed, a)
		}
	}
	return failed, nil
}

func (f *fakePayoutRepo) ListByChallenge(_ context.Context, _ int64) ([]*models.PayoutAttempt, error) {
	return f.recorded, nil
}

func (f *fakePayoutRepo) MarkResolvedWithTx(_ context.Context, _ bun.Tx, _ int64, _ models.PayoutStatus) error {
	return nil
}

func (f *fakePayoutRepo) MarkRetryFailed(_ context.Context, _ int64, _ string) error {
	return nil
}

func Test_Settlement_FailedTransferIsolated(t *testing.T) {
	vault := &fakeCustodian{
		failFor: map[string]error{"bettor-b": errors.New("insufficient vault balance")},
	}
	payouts := &fakePayoutRepo{}
	engine := NewEngine(nil, nil, payouts, vault, nil, nil)

	challenge := &models.Challenge{ID: 1, TotalStakedFor: 3e18}
	p := pools{
		correct: 3e18,
		losing:  0,
		winner:  func(s *models.Stake) bool { return s.Side == models.StakeSideFor },
	}
	batch := []*models.Stake{
		{ChallengeID: 1, ParticipantID: "bettor-a", Side: models.StakeSideFor, Amount: 1e18},
		{ChallengeID: 1, ParticipantID: "bettor-b", Side: models.StakeSideFor, Amount: 1e18},
		{ChallengeID: 1, ParticipantID: "bettor-c", Side: models.StakeSideFor, Amount: 1e18},
	}

	for _, stake := range batch {
		engine.payStake(context.Background(), fakeSavepointTx{}, challenge, p, stake)
	}

	if got := len(vault.withdrawals); got != 3 {
		t.Fatalf("withdrawals attempted = %d, want 3: a failure must not abort the batch", got)
	}
	if got := len(payouts.recorded); got != 3 {
		t.Fatalf("payout attempts recorded = %d, want 3", got)
	}

	wantStatus := []models.PayoutStatus{
		models.PayoutStatusPaid,
		models.PayoutStatusFailed,
		models.PayoutStatusPaid,
	}
	for i, attempt := range payouts.recorded {
		if attempt.Status != wantStatus[i] {
			t.Errorf("attempt %d status = %q, want %q", i, attempt.Status, wantStatus[i])
		}
	}
	if payouts.recorded[1].LastError == "" {
		t.Error("failed attempt must carry its transfer error for reconciliation")
	}
}

func Test_Settlement_LosingSideGetsNoRecord(t *testing.T) {
	vault := &fakeCustodian{}
	payouts := &fakePayoutRepo{}
	engine := NewEngine(nil, nil, payouts, vault, nil, nil)

	challenge := &models.Challenge{ID: 1}
	p := pools{
		correct: 1e18,
		losing:  1e18,
		winner:  func(s *models.Stake) bool { return s.Side == models.StakeSideFor },
	}

	engine.payStake(context.Background(), fakeSavepointTx{}, challenge, p,
		&models.Stake{ChallengeID: 1, ParticipantID: "loser", Side: models.StakeSideAgainst, Amount: 1e18})

	if len(vault.withdrawals) != 0 {
		t.Error("losing stake must not trigger a transfer")
	}
	if len(payouts.recorded) != 0 {
		t.Error("losing stake must not be recorded as a payout")
	}
}

func Test_Settlement_SettleGate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		challenge  *models.Challenge
		wantErr    error
		wantStatus models.ChallengeStatus
	}{
		{
			name: "winnings already paid",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusExpired,
				StartTime:    now.Add(-2 * time.Hour),
				DurationSecs: 3600,
				WinningsPaid: 5e18,
			},
			wantErr: ErrAlreadyPaid,
		},
		{
			name: "terminal status blocks a second run even with zero pool",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusWon,
				StartTime:    now.Add(-2 * time.Hour),
				DurationSecs: 3600,
			},
			wantErr: ErrAlreadyPaid,
		},
		{
			name: "never started",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusInactive,
				DurationSecs: 3600,
			},
			wantErr: ErrNotStarted,
		},
		{
			name: "window still open",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusActive,
				StartTime:    now.Add(-30 * time.Minute),
				DurationSecs: 3600,
			},
			wantErr: ErrNotExpired,
		},
		{
			name: "active past window flips to expired",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusActive,
				StartTime:    now.Add(-2 * time.Hour),
				DurationSecs: 3600,
			},
			wantStatus: models.ChallengeStatusExpired,
		},
		{
			name: "already expired passes through",
			challenge: &models.Challenge{
				Status:       models.ChallengeStatusExpired,
				StartTime:    now.Add(-2 * time.Hour),
				DurationSecs: 3600,
			},
			wantStatus: models.ChallengeStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := settleGate(tt.challenge, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("settleGate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && tt.challenge.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", tt.challenge.Status, tt.wantStatus)
			}
		})
	}
}

func Test_Settlement_PayoutPlan(t *testing.T) {
	winnerFn := func(s *models.Stake) bool { return s.Side == models.StakeSideFor }

	tests := []struct {
		name       string
		p          pools
		stake      *models.Stake
		wantOK     bool
		wantAmount int64
		wantStatus models.PayoutStatus
	}{
		{
			name:       "winner gets principal plus share",
			p:          pools{correct: 2e18, losing: 1e18, winner: winnerFn},
			stake:      &models.Stake{ChallengeID: 1, ParticipantID: "a", Side: models.StakeSideFor, Amount: 1e18},
			wantOK:     true,
			wantAmount: 15e17,
			wantStatus: models.PayoutStatusPaid,
		},
		{
			name:   "loser gets nothing",
			p:      pools{correct: 2e18, losing: 1e18, winner: winnerFn},
			stake:  &models.Stake{ChallengeID: 1, ParticipantID: "b", Side: models.StakeSideAgainst, Amount: 1e18},
			wantOK: false,
		},
		{
			name:       "refund returns principal regardless of side",
			p:          pools{correct: 0, losing: 2e18, winner: winnerFn, refund: true},
			stake:      &models.Stake{ChallengeID: 1, ParticipantID: "c", Side: models.StakeSideAgainst, Amount: 2e18},
			wantOK:     true,
			wantAmount: 2e18,
			wantStatus: models.PayoutStatusRefunded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt, ok := payoutPlan(tt.p, tt.stake)
			if ok != tt.wantOK {
				t.Fatalf("payoutPlan ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if attempt.Amount != tt.wantAmount {
				t.Errorf("Amount = %d, want %d", attempt.Amount, tt.wantAmount)
			}
			if attempt.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", attempt.Status, tt.wantStatus)
			}
			if attempt.ParticipantID != tt.stake.ParticipantID {
				t.Errorf("ParticipantID = %q, want %q", attempt.ParticipantID, tt.stake.ParticipantID)
			}
		})
	}
}
