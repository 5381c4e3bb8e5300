package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type VaultRepository interface {
	DB() *bun.DB
	Balance(ctx context.Context) (int64, error)
	CreditWithTx(ctx context.Context, tx bun.Tx, amount int64) error
	DebitWithTx(ctx context.Context, tx bun.Tx, amount int64) error
	RecordTransferWithTx(ctx context.Context, tx bun.Tx, transfer *models.VaultTransfer) error
	ListTransfers(ctx context.Context, challengeID int64) ([]*models.VaultTransfer, error)
}

type vaultRepository struct {
	db *bun.DB
}

func NewVaultRepository(db *bun.DB) VaultRepository {
	return &vaultRepository{db: db}
}

func (r *vaultRepository) DB() *bun.DB {
	return r.db
}

func (r *vaultRepository) Balance(ctx context.Context) (int64, error) {
	account := new(models.VaultAccount)
	err := r.db.NewSelect().
		Model(account).
		Where("id = ?", models.VaultAccountID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, &NotFoundError{Entity: "vault account", ID: models.VaultAccountID}
		}
		return 0, fmt.Errorf("failed to read vault balance: %w", err)
	}
	return account.Balance, nil
}

func (r *vaultRepository) CreditWithTx(ctx context.Context, tx bun.Tx, amount int64) error {
	result, err := tx.NewUpdate().
		Model((*models.VaultAccount)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", models.VaultAccountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit vault: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return &NotFoundError{Entity: "vault account", ID: models.VaultAccountID}
	}
	return nil
}

// DebitWithTx guards against draining more than the vault holds in the
// statement itself.
func (r *vaultRepository) DebitWithTx(ctx context.Context, tx bun.Tx, amount int64) error {
	result, err := tx.NewUpdate().
		Model((*models.VaultAccount)(nil)).
		Set("balance = balance - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND balance >= ?", models.VaultAccountID, amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit vault: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("vault balance below requested amount %d", amount)
	}
	return nil
}

func (r *vaultRepository) RecordTransferWithTx(ctx context.Context, tx bun.Tx, transfer *models.VaultTransfer) error {
	transfer.CreatedAt = time.Now()

	_, err := tx.NewInsert().Model(transfer).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record vault transfer: %w", err)
	}
	return nil
}

func (r *vaultRepository) ListTransfers(ctx context.Context, challengeID int64) ([]*models.VaultTransfer, error) {
	var transfers []*models.VaultTransfer

	err := r.db.NewSelect().
		Model(&transfers).
		Where("challenge_id = ?", challengeID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault transfers: %w", err)
	}

	return transfers, nil
}
