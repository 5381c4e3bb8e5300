package migration

import "time"

// Legacy document shapes as the old deployment stored them. Field names
// follow the source collections, not this schema.

type MongoParticipant struct {
	AccountID    string  `bson:"account_id"`
	Balance      float64 `bson:"balance"`
	CanChallenge bool    `bson:"can_challenge"`
	CanBet       bool    `bson:"can_bet"`
	CreatedAt    int64   `bson:"created_at"`
}

type MongoChallenge struct {
	ChallengeID int64            `bson:"challenge_id"`
	Owner       string           `bson:"owner"`
	Name        string           `bson:"name"`
	Details     string           `bson:"details"`
	State       string           `bson:"state"`
	Duration    int64            `bson:"duration"`
	StartedAt   int64            `bson:"started_at"`
	Targets     map[string]int64 `bson:"targets"`
	Finals      map[string]int64 `bson:"finals"`
	PaidOut     float64          `bson:"paid_out"`
}

type MongoStake struct {
	ChallengeID int64   `bson:"challenge_id"`
	Account     string  `bson:"account"`
	Side        string  `bson:"side"`
	Amount      float64 `bson:"amount"`
	PlacedAt    int64   `bson:"placed_at"`
}

// TableStats tracks per-collection progress for the final summary.
type TableStats struct {
	Read     int
	Imported int
	Skipped  int
}

type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
}
