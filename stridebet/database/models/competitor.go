package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Competitor is a participant enrolled in a leaderboard challenge. Position
// is the roster slot; removal compacts positions so the slot after the
// departing owner is always well-defined for ownership hand-off.
type Competitor struct {
	bun.BaseModel `bun:"table:competitors,alias:cp"`

	ID            int64  `bun:"id,pk,autoincrement"`
	ChallengeID   int64  `bun:"challenge_id,notnull,unique:competitor_key"`
	ParticipantID string `bun:"participant_id,notnull,unique:competitor_key"`
	Joined        bool   `bun:"joined,notnull,default:false"`
	Position      int    `bun:"position,notnull"`

	Score          int64     `bun:"score,notnull,default:0"`
	ScoreUpdatedAt time.Time `bun:"score_updated_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
