package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type ChallengeRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, challenge *models.Challenge) error
	CreateWithTx(ctx context.Context, tx bun.Tx, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int64) (*models.Challenge, error)
	GetByIDForUpdate(ctx context.Context, tx bun.Tx, id int64) (*models.Challenge, error)
	GetActive(ctx context.Context) ([]*models.Challenge, error)
	List(ctx context.Context, limit int) ([]*models.Challenge, error)
	UpdateWithTx(ctx context.Context, tx bun.Tx, challenge *models.Challenge) error
}

type challengeRepository struct {
	db *bun.DB
}

func NewChallengeRepository(db *bun.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) DB() *bun.DB {
	return r.db
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	challenge.CreatedAt = time.Now()
	challenge.UpdatedAt = time.Now()
	challenge.Status = models.ChallengeStatusInactive

	_, err := r.db.NewInsert().Model(challenge).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) CreateWithTx(ctx context.Context, tx bun.Tx, challenge *models.Challenge) error {
	challenge.CreatedAt = time.Now()
	challenge.UpdatedAt = time.Now()
	challenge.Status = models.ChallengeStatusInactive

	_, err := tx.NewInsert().Model(challenge).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id int64) (*models.Challenge, error) {
	challenge := new(models.Challenge)
	err := r.db.NewSelect().
		Model(challenge).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "challenge", ID: id}
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return challenge, nil
}

// GetByIDForUpdate locks the challenge row for the duration of the
// transaction. Every lifecycle mutation goes through this lock.
func (r *challengeRepository) GetByIDForUpdate(ctx context.Context, tx bun.Tx, id int64) (*models.Challenge, error) {
	challenge := new(models.Challenge)
	err := tx.NewSelect().
		Model(challenge).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "challenge", ID: id}
		}
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}
	return challenge, nil
}

func (r *challengeRepository) GetActive(ctx context.Context) ([]*models.Challenge, error) {
	var challenges []*models.Challenge

	err := r.db.NewSelect().
		Model(&challenges).
		Where("status = ?", models.ChallengeStatusActive).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get active challenges: %w", err)
	}

	return challenges, nil
}

func (r *challengeRepository) List(ctx context.Context, limit int) ([]*models.Challenge, error) {
	var challenges []*models.Challenge

	q := r.db.NewSelect().
		Model(&challenges).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	return challenges, nil
}

func (r *challengeRepository) UpdateWithTx(ctx context.Context, tx bun.Tx, challenge *models.Challenge) error {
	challenge.UpdatedAt = time.Now()

	_, err := tx.NewUpdate().
		Model(challenge).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return nil
}
