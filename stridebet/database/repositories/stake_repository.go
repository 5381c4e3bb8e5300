package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type StakeRepository interface {
	DB() *bun.DB
	CreateWithTx(ctx context.Context, tx bun.Tx, stake *models.Stake) error
	Get(ctx context.Context, challengeID int64, participantID string, side models.StakeSide) (*models.Stake, error)
	GetAmount(ctx context.Context, challengeID int64, participantID string, side models.StakeSide) (int64, error)
	HasAnyStake(ctx context.Context, tx bun.Tx, challengeID int64, participantID string) (bool, error)
	GetByChallengeOrdered(ctx context.Context, challengeID int64) ([]*models.Stake, error)
	GetBatch(ctx context.Context, tx bun.Tx, challengeID int64, offset, limit int) ([]*models.Stake, error)
	CountByChallenge(ctx context.Context, tx bun.Tx, challengeID int64) (int, error)
	SumByChallenge(ctx context.Context, challengeID int64) (int64, error)
}

type stakeRepository struct {
	db *bun.DB
}

func NewStakeRepository(db *bun.DB) StakeRepository {
	return &stakeRepository{db: db}
}

func (r *stakeRepository) DB() *bun.DB {
	return r.db
}

func (r *stakeRepository) CreateWithTx(ctx context.Context, tx bun.Tx, stake *models.Stake) error {
	_, err := tx.NewInsert().Model(stake).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record stake: %w", err)
	}
	return nil
}

func (r *stakeRepository) Get(ctx context.Context, challengeID int64, participantID string, side models.StakeSide) (*models.Stake, error) {
	stake := new(models.Stake)
	err := r.db.NewSelect().
		Model(stake).
		Where("challenge_id = ? AND participant_id = ? AND side = ?", challengeID, participantID, side).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "stake", ID: fmt.Sprintf("%d/%s/%s", challengeID, participantID, side)}
		}
		return nil, fmt.Errorf("failed to get stake: %w", err)
	}
	return stake, nil
}

// GetAmount is the zero-default lookup used by settlement and by the
// duplicate-stake check.
func (r *stakeRepository) GetAmount(ctx context.Context, challengeID int64, participantID string, side models.StakeSide) (int64, error) {
	stake, err := r.Get(ctx, challengeID, participantID, side)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return stake.Amount, nil
}

func (r *stakeRepository) HasAnyStake(ctx context.Context, tx bun.Tx, challengeID int64, participantID string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*models.Stake)(nil)).
		Where("challenge_id = ? AND participant_id = ?", challengeID, participantID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existing stake: %w", err)
	}
	return exists, nil
}

// GetByChallengeOrdered returns stakes in insertion order, which is the
// settlement order.
func (r *stakeRepository) GetByChallengeOrdered(ctx context.Context, challengeID int64) ([]*models.Stake, error) {
	var stakes []*models.Stake

	err := r.db.NewSelect().
		Model(&stakes).
		Where("challenge_id = ?", challengeID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge stakes: %w", err)
	}

	return stakes, nil
}

// GetBatch pages through the insertion-ordered stake list for bounded
// settlement batches.
func (r *stakeRepository) GetBatch(ctx context.Context, tx bun.Tx, challengeID int64, offset, limit int) ([]*models.Stake, error) {
	var stakes []*models.Stake

	err := tx.NewSelect().
		Model(&stakes).
		Where("challenge_id = ?", challengeID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stake batch: %w", err)
	}

	return stakes, nil
}

func (r *stakeRepository) CountByChallenge(ctx context.Context, tx bun.Tx, challengeID int64) (int, error) {
	count, err := tx.NewSelect().
		Model((*models.Stake)(nil)).
		Where("challenge_id = ?", challengeID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stakes: %w", err)
	}
	return count, nil
}

func (r *stakeRepository) SumByChallenge(ctx context.Context, challengeID int64) (int64, error) {
	var sum sql.NullInt64
	err := r.db.NewSelect().
		Model((*models.Stake)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("challenge_id = ?", challengeID).
		Scan(ctx, &sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum stakes: %w", err)
	}
	return sum.Int64, nil
}
