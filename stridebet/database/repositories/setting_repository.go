package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type SettingRepository interface {
	DB() *bun.DB
	Get(ctx context.Context, key string) (int64, error)
	GetAll(ctx context.Context) (map[string]int64, error)
	Set(ctx context.Context, key string, value int64, actorID string) error
}

type settingRepository struct {
	db *bun.DB
}

func NewSettingRepository(db *bun.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) DB() *bun.DB {
	return r.db
}

func (r *settingRepository) Get(ctx context.Context, key string) (int64, error) {
	setting := new(models.Setting)
	err := r.db.NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return 0, &NotFoundError{Entity: "setting", ID: key}
		}
		return 0, fmt.Errorf("failed to get setting: %w", err)
	}
	return setting.Value, nil
}

func (r *settingRepository) GetAll(ctx context.Context) (map[string]int64, error) {
	var settings []*models.Setting
	err := r.db.NewSelect().
		Model(&settings).
		Order("key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	out := make(map[string]int64, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}

// Set updates a setting and writes an audit row with the before and after
// values in the same transaction.
func (r *settingRepository) Set(ctx context.Context, key string, value int64, actorID string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		old := new(models.Setting)
		err := tx.NewSelect().
			Model(old).
			Where("key = ?", key).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return &NotFoundError{Entity: "setting", ID: key}
			}
			return fmt.Errorf("failed to load setting: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Setting)(nil)).
			Set("value = ?", value).
			Set("updated_at = ?", time.Now()).
			Where("key = ?", key).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}

		audit := &models.SettingAudit{
			Key:       key,
			OldValue:  old.Value,
			NewValue:  value,
			ActorID:   actorID,
			CreatedAt: time.Now(),
		}
		if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
			return fmt.Errorf("failed to write setting audit: %w", err)
		}
		return nil
	})
}
