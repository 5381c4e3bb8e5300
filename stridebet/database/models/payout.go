package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PayoutStatus string

const (
	PayoutStatusPaid     PayoutStatus = "paid"
	PayoutStatusFailed   PayoutStatus = "failed"
	PayoutStatusRefunded PayoutStatus = "refunded"
)

// PayoutAttempt records every individual transfer tried during settlement.
// Failed rows are the reconciliation retry list; nothing is silently lost.
type PayoutAttempt struct {
	bun.BaseModel `bun:"table:payout_attempts,alias:pa"`

	ID            int64        `bun:"id,pk,autoincrement"`
	ChallengeID   int64        `bun:"challenge_id,notnull"`
	ParticipantID string       `bun:"participant_id,notnull"`
	Amount        int64        `bun:"amount,notnull"`
	Status        PayoutStatus `bun:"status,notnull"`
	LastError     string       `bun:"last_error"`
	Attempts      int          `bun:"attempts,notnull,default:1"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
