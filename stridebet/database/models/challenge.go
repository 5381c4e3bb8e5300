package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ChallengeStatus string

const (
	ChallengeStatusInactive ChallengeStatus = "inactive"
	ChallengeStatusActive   ChallengeStatus = "active"
	ChallengeStatusExpired  ChallengeStatus = "expired"
	ChallengeStatusWon      ChallengeStatus = "won"
	ChallengeStatusLost     ChallengeStatus = "lost"
)

// Terminal reports whether no further lifecycle transition is possible.
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeStatusWon || s == ChallengeStatusLost
}

type ChallengeMode string

const (
	ChallengeModeBinary      ChallengeMode = "binary"
	ChallengeModeLeaderboard ChallengeMode = "leaderboard"
)

type Challenge struct {
	bun.BaseModel `bun:"table:challenges,alias:c"`

	ID          int64         `bun:"id,pk,autoincrement"`
	OwnerID     string        `bun:"owner_id,notnull"`
	Title       string        `bun:"title,notnull"`
	Description string        `bun:"description"`
	Mode        ChallengeMode `bun:"mode,notnull"`

	Status       ChallengeStatus `bun:"status,notnull"`
	DurationSecs int64           `bun:"duration_secs,notnull"`
	StartTime    time.Time       `bun:"start_time,nullzero"`

	// Targets and Finals share the same metric-type key space. A metric
	// missing from Finals at settlement counts as failed.
	Targets map[string]int64 `bun:"targets,type:jsonb"`
	Finals  map[string]int64 `bun:"finals,type:jsonb"`

	TotalStakedFor     int64 `bun:"total_staked_for,notnull,default:0"`
	TotalStakedAgainst int64 `bun:"total_staked_against,notnull,default:0"`
	BettorsFor         int   `bun:"bettors_for,notnull,default:0"`
	BettorsAgainst     int   `bun:"bettors_against,notnull,default:0"`

	// WinningsPaid stays zero until settlement completes, then is set once
	// to the distributed pool and pins the challenge against a second run.
	WinningsPaid int64 `bun:"winnings_paid,notnull,default:0"`

	// PayoutCursor is the settlement batch position: the number of stake
	// rows already processed for this challenge.
	PayoutCursor int `bun:"payout_cursor,notnull,default:0"`

	// Leaderboard variant only.
	CompetitorCap int    `bun:"competitor_cap,notnull,default:0"`
	LeaderID      string `bun:"leader_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// EndTime returns the expiry instant; zero if the challenge never started.
func (c *Challenge) EndTime() time.Time {
	if c.StartTime.IsZero() {
		return time.Time{}
	}
	return c.StartTime.Add(time.Duration(c.DurationSecs) * time.Second)
}

// ExpiredAt reports whether the challenge window has elapsed at now.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	end := c.EndTime()
	return !end.IsZero() && !now.Before(end)
}
