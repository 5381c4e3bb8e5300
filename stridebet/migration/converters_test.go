package migration

import (
	"math"
	"testing"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

func Test_Migration_ToBaseUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{name: "one token", amount: 1, want: 1e18},
		{name: "fractional", amount: 0.5, want: 5e17},
		{name: "zero", amount: 0, want: 0},
		{name: "negative clamps to zero", amount: -3, want: 0},
		{name: "overflow clamps to max", amount: 1e10, want: math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toBaseUnits(tt.amount); got != tt.want {
				t.Errorf("toBaseUnits(%v) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func Test_Migration_ConvertChallengeStatus(t *testing.T) {
	tests := []struct {
		state string
		want  models.ChallengeStatus
	}{
		{state: "active", want: models.ChallengeStatusActive},
		{state: "running", want: models.ChallengeStatusActive},
		{state: "expired", want: models.ChallengeStatusExpired},
		{state: "won", want: models.ChallengeStatusWon},
		{state: "lost", want: models.ChallengeStatusLost},
		{state: "pending", want: models.ChallengeStatusInactive},
		{state: "", want: models.ChallengeStatusInactive},
	}
	for _, tt := range tests {
		if got := convertChallengeStatus(tt.state); got != tt.want {
			t.Errorf("convertChallengeStatus(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func Test_Migration_ConvertParticipant(t *testing.T) {
	p := convertParticipant(MongoParticipant{
		AccountID:    "acct-1",
		Balance:      2.5,
		CanChallenge: true,
		CanBet:       false,
		CreatedAt:    1700000000,
	})

	if p.ID != "acct-1" {
		t.Errorf("ID = %q, want acct-1", p.ID)
	}
	if !p.Challenger {
		t.Error("expected challenger role to carry over")
	}
	if !p.Bettor {
		t.Error("challenger grant should imply bettor")
	}
	if p.Balance != 25e17 {
		t.Errorf("Balance = %d, want %d", p.Balance, int64(25e17))
	}
	if p.CreatedAt.Unix() != 1700000000 {
		t.Errorf("CreatedAt = %v, want unix 1700000000", p.CreatedAt)
	}
}

func Test_Migration_ConvertStake(t *testing.T) {
	tests := []struct {
		name string
		doc  MongoStake
		ok   bool
	}{
		{
			name: "valid for stake",
			doc:  MongoStake{ChallengeID: 7, Account: "a", Side: "for", Amount: 1},
			ok:   true,
		},
		{
			name: "valid against stake",
			doc:  MongoStake{ChallengeID: 7, Account: "a", Side: "against", Amount: 1},
			ok:   true,
		},
		{
			name: "unknown side",
			doc:  MongoStake{ChallengeID: 7, Account: "a", Side: "maybe", Amount: 1},
			ok:   false,
		},
		{
			name: "missing challenge",
			doc:  MongoStake{Account: "a", Side: "for", Amount: 1},
			ok:   false,
		},
		{
			name: "missing account",
			doc:  MongoStake{ChallengeID: 7, Side: "for", Amount: 1},
			ok:   false,
		},
		{
			name: "zero amount",
			doc:  MongoStake{ChallengeID: 7, Account: "a", Side: "for", Amount: 0},
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stake, ok := convertStake(tt.doc)
			if ok != tt.ok {
				t.Fatalf("convertStake ok = %v, want %v", ok, tt.ok)
			}
			if ok && stake.Amount != 1e18 {
				t.Errorf("Amount = %d, want 1e18", stake.Amount)
			}
		})
	}
}
