package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Participant is any identity known to the service. Role flags are the two
// allow-lists: a challenger is always also a bettor.
type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID         string `bun:"id,pk"`
	Challenger bool   `bun:"challenger,notnull,default:false"`
	Bettor     bool   `bun:"bettor,notnull,default:false"`

	// Balance is the participant's spendable base units. Stakes move funds
	// from here into the vault; payouts move them back.
	Balance int64 `bun:"balance,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
