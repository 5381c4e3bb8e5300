package models

import (
	"time"

	"github.com/uptrace/bun"
)

type StakeSide string

const (
	StakeSideFor     StakeSide = "for"
	StakeSideAgainst StakeSide = "against"
)

func (s StakeSide) Valid() bool {
	return s == StakeSideFor || s == StakeSideAgainst
}

// Stake is one participant's wager on one side of one challenge. The
// autoincrement id doubles as insertion order, which is settlement order.
type Stake struct {
	bun.BaseModel `bun:"table:challenge_stakes,alias:cs"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ChallengeID   int64     `bun:"challenge_id,notnull,unique:stake_key"`
	ParticipantID string    `bun:"participant_id,notnull,unique:stake_key"`
	Side          StakeSide `bun:"side,notnull,unique:stake_key"`
	Amount        int64     `bun:"amount,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
