// Package leaderboard is the N-competitor variant: one score metric, a
// capped roster, and a monotonic leader that settlement treats as the
// winning side.
package leaderboard

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
	"github.com/stridebet/stridebet/stridebet/wager"
	"github.com/uptrace/bun"
)

// ScoreMetric is the single metric every leaderboard challenge tracks. Its
// target is a placeholder; only relative scores matter.
const ScoreMetric = "score"

var (
	ErrNotLeaderboard = errors.New("challenge is not a leaderboard challenge")
	ErrBadCap         = errors.New("competitor cap out of range")
	ErrAlreadyJoined  = errors.New("participant already joined")
	ErrNotJoined      = errors.New("participant has not joined")
	ErrRosterFull     = errors.New("competitor cap reached")
	ErrNegativeScore  = errors.New("score must not be negative")
)

type Extension struct {
	challenges  repositories.ChallengeRepository
	competitors repositories.CompetitorRepository
	access      wager.AccessChecker
	limits      *wager.Limits
	now         func() time.Time
}

func NewExtension(
	challenges repositories.ChallengeRepository,
	competitors repositories.CompetitorRepository,
	access wager.AccessChecker,
	limits *wager.Limits,
) *Extension {
	return &Extension{
		challenges:  challenges,
		competitors: competitors,
		access:      access,
		limits:      limits,
		now:         time.Now,
	}
}

// CreateMultiplayer registers a leaderboard challenge with the creator
// enrolled as competitor zero and initial leader.
func (e *Extension) CreateMultiplayer(ctx context.Context, ownerID, title, description string, duration time.Duration, cap int) (*models.Challenge, error) {
	isChallenger, err := e.access.IsChallenger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check challenger role: %w", err)
	}
	if !isChallenger {
		return nil, wager.ErrNotChallenger
	}
	if cap < 2 || cap > e.limits.MaxCompetitors(ctx) {
		return nil, ErrBadCap
	}

	if title == "" {
		return nil, wager.ErrBlankTitle
	}
	if duration <= 0 || duration > e.limits.MaxDuration(ctx) {
		return nil, wager.ErrBadDuration
	}

	challenge := &models.Challenge{
		OwnerID:       ownerID,
		Title:         title,
		Description:   description,
		Mode:          models.ChallengeModeLeaderboard,
		DurationSecs:  int64(duration / time.Second),
		Targets:       map[string]int64{ScoreMetric: 0},
		Finals:        map[string]int64{},
		CompetitorCap: cap,
		LeaderID:      ownerID,
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	err = e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		if err := e.challenges.CreateWithTx(ctx, tx, challenge); err != nil {
			return err
		}
		return e.competitors.CreateWithTx(ctx, tx, &models.Competitor{
			ChallengeID:   challenge.ID,
			ParticipantID: ownerID,
			Joined:        true,
			Position:      0,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.LogSystem("leaderboard challenge created",
		"challenge", challenge.ID,
		"owner", ownerID,
		"cap", cap,
	)
	return challenge, nil
}

// Join enrolls a whitelisted participant while the challenge is inactive.
func (e *Extension) Join(ctx context.Context, challengeID int64, participantID string) error {
	isBettor, err := e.access.IsBettor(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to check bettor role: %w", err)
	}
	if !isBettor {
		return wager.ErrNotBettor
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	err = e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := e.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if challenge.Mode != models.ChallengeModeLeaderboard {
			return ErrNotLeaderboard
		}
		if challenge.Status != models.ChallengeStatusInactive {
			return wager.ErrNotInactive
		}

		roster, err := e.competitors.GetRoster(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if rosterIndex(roster, participantID) >= 0 {
			return ErrAlreadyJoined
		}
		if len(roster) >= challenge.CompetitorCap {
			return ErrRosterFull
		}

		return e.competitors.CreateWithTx(ctx, tx, &models.Competitor{
			ChallengeID:   challengeID,
			ParticipantID: participantID,
			Joined:        true,
			Position:      len(roster),
		})
	})
	if err != nil {
		return err
	}

	logger.LogSystem("competitor joined", "challenge", challengeID, "participant", participantID)
	return nil
}

// Leave removes a competitor while the challenge is inactive. If the owner
// leaves, ownership and the leader slot pass to the next competitor in
// roster order.
func (e *Extension) Leave(ctx context.Context, challengeID int64, participantID string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var newOwner string
	var ownerChanged bool

	err := e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := e.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if challenge.Mode != models.ChallengeModeLeaderboard {
			return ErrNotLeaderboard
		}
		if challenge.Status != models.ChallengeStatusInactive {
			return wager.ErrNotInactive
		}

		roster, err := e.competitors.GetRoster(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		idx := rosterIndex(roster, participantID)
		if idx < 0 {
			return ErrNotJoined
		}

		departing := roster[idx]
		remaining := removeFromRoster(roster, idx)

		if err := e.competitors.DeleteWithTx(ctx, tx, departing.ID); err != nil {
			return err
		}
		for _, c := range remaining {
			if err := e.competitors.UpdateWithTx(ctx, tx, c); err != nil {
				return err
			}
		}

		if challenge.OwnerID == participantID || challenge.LeaderID == participantID {
			newOwner = ""
			if len(remaining) > 0 {
				newOwner = remaining[0].ParticipantID
			}
			if challenge.OwnerID == participantID {
				challenge.OwnerID = newOwner
				ownerChanged = true
			}
			if challenge.LeaderID == participantID {
				challenge.LeaderID = newOwner
			}
			if err := e.challenges.UpdateWithTx(ctx, tx, challenge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ownerChanged {
		logger.LogSystem("challenge ownership changed",
			"challenge", challengeID,
			"old_owner", participantID,
			"new_owner", newOwner,
		)
	}
	logger.LogSystem("competitor left", "challenge", challengeID, "participant", participantID)
	return nil
}

// SubmitScore records a competitor's latest score on an active challenge
// and promotes them to leader only on a strictly greater score.
func (e *Extension) SubmitScore(ctx context.Context, challengeID int64, participantID string, score int64) error {
	if score < 0 {
		return ErrNegativeScore
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	expired := false
	promoted := false
	newLeader := ""
	leaderScore := int64(0)

	err := e.challenges.DB().RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		challenge, err := e.challenges.GetByIDForUpdate(ctx, tx, challengeID)
		if err != nil {
			return err
		}
		if challenge.Mode != models.ChallengeModeLeaderboard {
			return ErrNotLeaderboard
		}
		if challenge.Status != models.ChallengeStatusActive {
			return wager.ErrNotActive
		}
		if challenge.ExpiredAt(e.now()) {
			challenge.Status = models.ChallengeStatusExpired
			expired = true
			return e.challenges.UpdateWithTx(ctx, tx, challenge)
		}

		competitor, err := e.competitors.GetForUpdate(ctx, tx, challengeID, participantID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return ErrNotJoined
			}
			return err
		}

		competitor.Score = score
		competitor.ScoreUpdatedAt = e.now()
		if err := e.competitors.UpdateWithTx(ctx, tx, competitor); err != nil {
			return err
		}

		if challenge.LeaderID == participantID {
			// A leader lowering their own score can fall behind the field;
			// the lead then passes to the best-standing competitor.
			roster, err := e.competitors.GetRoster(ctx, tx, challengeID)
			if err != nil {
				return err
			}
			top := topCompetitor(roster, participantID)
			if top != nil && shouldPromote(score, top.Score) {
				challenge.LeaderID = top.ParticipantID
				newLeader = top.ParticipantID
				leaderScore = top.Score
				promoted = true
				return e.challenges.UpdateWithTx(ctx, tx, challenge)
			}
			return nil
		}

		incumbentScore := int64(0)
		if challenge.LeaderID != "" {
			incumbent, err := e.competitors.GetForUpdate(ctx, tx, challengeID, challenge.LeaderID)
			if err != nil && !repositories.IsNotFound(err) {
				return err
			}
			if incumbent != nil {
				incumbentScore = incumbent.Score
			}
		}

		if challenge.LeaderID == "" || shouldPromote(incumbentScore, score) {
			challenge.LeaderID = participantID
			newLeader = participantID
			leaderScore = score
			promoted = true
			return e.challenges.UpdateWithTx(ctx, tx, challenge)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		logger.LogSystem("challenge expired on submission", "challenge", challengeID)
		return wager.ErrChallengeExpired
	}

	if promoted {
		logger.LogSystem("new leader",
			"challenge", challengeID,
			"leader", newLeader,
			"score", leaderScore,
		)
	}
	return nil
}

// Standings returns the competitors ranked best score first.
func (e *Extension) Standings(ctx context.Context, challengeID int64) ([]*models.Competitor, error) {
	return e.competitors.ListByScore(ctx, challengeID)
}
