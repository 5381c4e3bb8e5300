package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type PayoutRepository interface {
	DB() *bun.DB
	RecordWithTx(ctx context.Context, tx bun.Tx, attempt *models.PayoutAttempt) error
	ListFailed(ctx context.Context, challengeID int64) ([]*models.PayoutAttempt, error)
	ListByChallenge(ctx context.Context, challengeID int64) ([]*models.PayoutAttempt, error)
	MarkResolvedWithTx(ctx context.Context, tx bun.Tx, id int64, status models.PayoutStatus) error
	MarkRetryFailed(ctx context.Context, id int64, lastError string) error
}

type payoutRepository struct {
	db *bun.DB
}

func NewPayoutRepository(db *bun.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) DB() *bun.DB {
	return r.db
}

func (r *payoutRepository) RecordWithTx(ctx context.Context, tx bun.Tx, attempt *models.PayoutAttempt) error {
	attempt.CreatedAt = time.Now()
	attempt.UpdatedAt = time.Now()
	if attempt.Attempts == 0 {
		attempt.Attempts = 1
	}

	_, err := tx.NewInsert().Model(attempt).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record payout attempt: %w", err)
	}
	return nil
}

func (r *payoutRepository) ListFailed(ctx context.Context, challengeID int64) ([]*models.PayoutAttempt, error) {
	var attempts []*models.PayoutAttempt

	err := r.db.NewSelect().
		Model(&attempts).
		Where("challenge_id = ? AND status = ?", challengeID, models.PayoutStatusFailed).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed payouts: %w", err)
	}

	return attempts, nil
}

func (r *payoutRepository) ListByChallenge(ctx context.Context, challengeID int64) ([]*models.PayoutAttempt, error) {
	var attempts []*models.PayoutAttempt

	err := r.db.NewSelect().
		Model(&attempts).
		Where("challenge_id = ?", challengeID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}

	return attempts, nil
}

func (r *payoutRepository) MarkResolvedWithTx(ctx context.Context, tx bun.Tx, id int64, status models.PayoutStatus) error {
	_, err := tx.NewUpdate().
		Model((*models.PayoutAttempt)(nil)).
		Set("status = ?", status).
		Set("last_error = ''").
		Set("attempts = attempts + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve payout attempt: %w", err)
	}
	return nil
}

func (r *payoutRepository) MarkRetryFailed(ctx context.Context, id int64, lastError string) error {
	_, err := r.db.NewUpdate().
		Model((*models.PayoutAttempt)(nil)).
		Set("last_error = ?", lastError).
		Set("attempts = attempts + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update payout attempt: %w", err)
	}
	return nil
}
