package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type ParticipantRepository interface {
	DB() *bun.DB
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	Upsert(ctx context.Context, participant *models.Participant) error
	SetRoles(ctx context.Context, id string, challenger, bettor bool) error
	CreditBalance(ctx context.Context, tx bun.Tx, id string, amount int64) error
	DebitBalance(ctx context.Context, tx bun.Tx, id string, amount int64) error
}

type participantRepository struct {
	db *bun.DB
}

func NewParticipantRepository(db *bun.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) DB() *bun.DB {
	return r.db
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	participant := new(models.Participant)
	err := r.db.NewSelect().
		Model(participant).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "participant", ID: id}
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return participant, nil
}

func (r *participantRepository) Upsert(ctx context.Context, participant *models.Participant) error {
	participant.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(participant).
		On("CONFLICT (id) DO UPDATE").
		Set("challenger = EXCLUDED.challenger").
		Set("bettor = EXCLUDED.bettor").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}

func (r *participantRepository) SetRoles(ctx context.Context, id string, challenger, bettor bool) error {
	_, err := r.db.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("challenger = ?", challenger).
		Set("bettor = ?", bettor).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update participant roles: %w", err)
	}
	return nil
}

// CreditBalance adds funds to a participant inside an existing transaction.
func (r *participantRepository) CreditBalance(ctx context.Context, tx bun.Tx, id string, amount int64) error {
	result, err := tx.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "participant", ID: id}
	}
	return nil
}

// DebitBalance removes funds, guarding against overdraft in the same
// statement so concurrent debits cannot race past the check.
func (r *participantRepository) DebitBalance(ctx context.Context, tx bun.Tx, id string, amount int64) error {
	result, err := tx.NewUpdate().
		Model((*models.Participant)(nil)).
		Set("balance = balance - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND balance >= ?", id, amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("insufficient balance for participant %s", id)
	}
	return nil
}
