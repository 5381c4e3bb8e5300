package models

import (
	"time"

	"github.com/uptrace/bun"
)

type VaultDirection string

const (
	VaultDirectionDeposit  VaultDirection = "deposit"
	VaultDirectionWithdraw VaultDirection = "withdraw"
)

// VaultAccountID is the primary key of the single custody row.
const VaultAccountID int64 = 1

// VaultAccount is the single pooled custody row. Funds are not partitioned
// per challenge; the settlement engine's bookkeeping is the source of truth
// for which slice of the pool belongs to which challenge.
type VaultAccount struct {
	bun.BaseModel `bun:"table:vault_accounts,alias:v"`

	ID        int64     `bun:"id,pk"`
	Balance   int64     `bun:"balance,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// VaultTransfer is the append-only movement log for the pooled balance.
type VaultTransfer struct {
	bun.BaseModel `bun:"table:vault_transfers,alias:vt"`

	ID            int64          `bun:"id,pk,autoincrement"`
	ChallengeID   int64          `bun:"challenge_id,notnull"`
	ParticipantID string         `bun:"participant_id,notnull"`
	Direction     VaultDirection `bun:"direction,notnull"`
	Amount        int64          `bun:"amount,notnull"`
	Caller        string         `bun:"caller,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
