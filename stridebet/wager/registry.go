package wager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
	"github.com/stridebet/stridebet/stridebet/logger"
	"github.com/uptrace/bun"
)

// ErrLeaderboardMode is returned when a binary-only operation is invoked on
// a leaderboard challenge; those go through score submission instead.
var ErrLeaderboardMode = errors.New("leaderboard challenges take score submissions")

// Registry owns challenge identity and the lifecycle state machine.
type Registry struct {
	challenges  repositories.ChallengeRepository
	competitors repositories.CompetitorRepository
	access      AccessChecker
	limits      *Limits
	now         func() time.Time
}

func NewRegistry(
	challenges repositories.ChallengeRepository,
	competitors repositories.CompetitorRepository,
	access AccessChecker,
	limits *Limits,
) *Registry {
	return &Registry{
		challenges:  challenges,
		competitors: competitors,
		access:      access,
		limits:      limits,
		now:         time.Now,
	}
}

// Create registers a binary challenge in the inactive state.
func (r *Registry) Create(ctx context.Context, ownerID, title, description string, targets map[string]int64, duration time.Duration) (*models.Challenge, error) {
	isChallenger, err := r.access.IsChallenger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check challenger role: %w", err)
	}
	if !isChallenger {
		return nil, ErrNotChallenger
	}

	if err := validateCreate(title, targets, duration, r.limits.MaxMetrics(ctx), r.limits.MaxDuration(ctx)); err != nil {
		return nil, err
	}

	challenge := &models.Challenge{
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		Mode:         models.ChallengeModeBinary,
		DurationSecs: int64(duration / time.Second),
		Targets:      copyMetrics(targets),
		Finals:       map[string]int64{},
	}
	if err := r.challenges.Create(ctx, challenge); err != nil {
		return nil, err
	}

	logger.LogSystem("challenge created",
		"challenge", challenge.ID,
		"owner", ownerID,
		"metrics", len(targets),
	)
	return challenge, nil
}

// Start activates a challenge and begins its clock. Binary challenges need
// at least one unit staked on each side; leaderboard challenges need two
// joined competitors.
func (r *Registry) Start(ctx context.Context, challengeID int64, callerID string) error {
	isChallenger, err := r.access.IsChallenger(ctx, callerID)
	if err != nil {
		return fmt.Errorf("failed to check challenger role: %w", err)
	}
	if !isChallenger {
		return ErrNotChallenger
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	err = r.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := r.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if challenge.OwnerID != callerID {
			return ErrNotOwner
		}

		joined := 0
		if challenge.Mode == models.ChallengeModeLeaderboard {
			joined, err = r.competitors.CountJoined(ctx, tx, challengeID)
			if err != nil {
				return err
			}
		}
		if err := validateStart(challenge, joined); err != nil {
			return err
		}

		challenge.Status = models.ChallengeStatusActive
		challenge.StartTime = r.now()
		return r.challenges.UpdateWithTx(ctx, tx, challenge)
	})
	if err != nil {
		return err
	}

	logger.LogSystem("challenge started", "challenge", challengeID)
	return nil
}

// SubmitMeasurements records final measurements on an active binary
// challenge. If the window has elapsed the challenge flips to expired, the
// measurements are discarded and the caller gets ErrChallengeExpired.
func (r *Registry) SubmitMeasurements(ctx context.Context, challengeID int64, callerID string, finals map[string]int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	expired := false
	err := r.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := r.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if challenge.Mode == models.ChallengeModeLeaderboard {
			return ErrLeaderboardMode
		}
		if challenge.OwnerID != callerID {
			return ErrNotOwner
		}
		if challenge.Status != models.ChallengeStatusActive {
			return ErrNotActive
		}

		expired, err = applyMeasurements(challenge, finals, r.now())
		if err != nil {
			return err
		}
		return r.challenges.UpdateWithTx(ctx, tx, challenge)
	})
	if err != nil {
		return err
	}
	if expired {
		logger.LogSystem("challenge expired on submission", "challenge", challengeID)
		return ErrChallengeExpired
	}

	logger.LogSystem("measurements recorded", "challenge", challengeID, "metrics", len(finals))
	return nil
}

// applyMeasurements merges finals into an active challenge. When the window
// has elapsed it flips the challenge to expired instead and discards the
// submission entirely; the flip must still be persisted (lazy expiry).
func applyMeasurements(c *models.Challenge, finals map[string]int64, now time.Time) (expired bool, err error) {
	if c.ExpiredAt(now) {
		c.Status = models.ChallengeStatusExpired
		return true, nil
	}

	if err := validateMeasurements(c, finals); err != nil {
		return false, err
	}

	if c.Finals == nil {
		c.Finals = map[string]int64{}
	}
	for metric, value := range finals {
		c.Finals[metric] = value
	}
	return false, nil
}

// Get returns a challenge by id.
func (r *Registry) Get(ctx context.Context, challengeID int64) (*models.Challenge, error) {
	return r.challenges.GetByID(ctx, challengeID)
}

// ListActive returns challenges currently in the active state.
func (r *Registry) ListActive(ctx context.Context) ([]*models.Challenge, error) {
	return r.challenges.GetActive(ctx)
}

// List returns recent challenges, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]*models.Challenge, error) {
	return r.challenges.List(ctx, limit)
}

func copyMetrics(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
