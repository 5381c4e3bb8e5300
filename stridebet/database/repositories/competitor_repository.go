package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
)

type CompetitorRepository interface {
	DB() *bun.DB
	CreateWithTx(ctx context.Context, tx bun.Tx, competitor *models.Competitor) error
	Get(ctx context.Context, challengeID int64, participantID string) (*models.Competitor, error)
	GetForUpdate(ctx context.Context, tx bun.Tx, challengeID int64, participantID string) (*models.Competitor, error)
	GetRoster(ctx context.Context, tx bun.Tx, challengeID int64) ([]*models.Competitor, error)
	ListByScore(ctx context.Context, challengeID int64) ([]*models.Competitor, error)
	CountJoined(ctx context.Context, tx bun.Tx, challengeID int64) (int, error)
	UpdateWithTx(ctx context.Context, tx bun.Tx, competitor *models.Competitor) error
	DeleteWithTx(ctx context.Context, tx bun.Tx, id int64) error
}

type competitorRepository struct {
	db *bun.DB
}

func NewCompetitorRepository(db *bun.DB) CompetitorRepository {
	return &competitorRepository{db: db}
}

func (r *competitorRepository) DB() *bun.DB {
	return r.db
}

func (r *competitorRepository) CreateWithTx(ctx context.Context, tx bun.Tx, competitor *models.Competitor) error {
	competitor.CreatedAt = time.Now()
	competitor.UpdatedAt = time.Now()

	_, err := tx.NewInsert().Model(competitor).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add competitor: %w", err)
	}
	return nil
}

func (r *competitorRepository) Get(ctx context.Context, challengeID int64, participantID string) (*models.Competitor, error) {
	competitor := new(models.Competitor)
	err := r.db.NewSelect().
		Model(competitor).
		Where("challenge_id = ? AND participant_id = ?", challengeID, participantID).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "competitor", ID: fmt.Sprintf("%d/%s", challengeID, participantID)}
		}
		return nil, fmt.Errorf("failed to get competitor: %w", err)
	}
	return competitor, nil
}

func (r *competitorRepository) GetForUpdate(ctx context.Context, tx bun.Tx, challengeID int64, participantID string) (*models.Competitor, error) {
	competitor := new(models.Competitor)
	err := tx.NewSelect().
		Model(competitor).
		Where("challenge_id = ? AND participant_id = ?", challengeID, participantID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &NotFoundError{Entity: "competitor", ID: fmt.Sprintf("%d/%s", challengeID, participantID)}
		}
		return nil, fmt.Errorf("failed to lock competitor: %w", err)
	}
	return competitor, nil
}

// GetRoster returns the full roster ordered by position. Position order is
// load-bearing: slot 0 owns the challenge.
func (r *competitorRepository) GetRoster(ctx context.Context, tx bun.Tx, challengeID int64) ([]*models.Competitor, error) {
	var roster []*models.Competitor

	err := tx.NewSelect().
		Model(&roster).
		Where("challenge_id = ?", challengeID).
		Order("position ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}

	return roster, nil
}

// ListByScore is the read-side standings view, best score first with ties
// broken by earliest submission.
func (r *competitorRepository) ListByScore(ctx context.Context, challengeID int64) ([]*models.Competitor, error) {
	var standings []*models.Competitor

	err := r.db.NewSelect().
		Model(&standings).
		Where("challenge_id = ?", challengeID).
		Order("score DESC").
		Order("score_updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}

	return standings, nil
}

func (r *competitorRepository) CountJoined(ctx context.Context, tx bun.Tx, challengeID int64) (int, error) {
	count, err := tx.NewSelect().
		Model((*models.Competitor)(nil)).
		Where("challenge_id = ? AND joined = TRUE", challengeID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count competitors: %w", err)
	}
	return count, nil
}

func (r *competitorRepository) UpdateWithTx(ctx context.Context, tx bun.Tx, competitor *models.Competitor) error {
	competitor.UpdatedAt = time.Now()

	_, err := tx.NewUpdate().
		Model(competitor).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update competitor: %w", err)
	}
	return nil
}

func (r *competitorRepository) DeleteWithTx(ctx context.Context, tx bun.Tx, id int64) error {
	_, err := tx.NewDelete().
		Model((*models.Competitor)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove competitor: %w", err)
	}
	return nil
}
