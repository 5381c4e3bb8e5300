package settlement

import (
	"testing"

	"github.com/stridebet/stridebet/stridebet/database/models"
)

func Test_challengeWon(t *testing.T) {
	tests := []struct {
		name    string
		targets map[string]int64
		finals  map[string]int64
		want    bool
	}{
		{
			name:    "all metrics met",
			targets: map[string]int64{"distance_m": 100, "elevation_m": 50},
			finals:  map[string]int64{"distance_m": 120, "elevation_m": 50},
			want:    true,
		},
		{
			name:    "exactly at target",
			targets: map[string]int64{"distance_m": 100},
			finals:  map[string]int64{"distance_m": 100},
			want:    true,
		},
		{
			name:    "one metric short",
			targets: map[string]int64{"distance_m": 100, "elevation_m": 50},
			finals:  map[string]int64{"distance_m": 120, "elevation_m": 49},
			want:    false,
		},
		{
			name:    "missing final measurement fails that metric",
			targets: map[string]int64{"distance_m": 100, "elevation_m": 50},
			finals:  map[string]int64{"distance_m": 120},
			want:    false,
		},
		{
			name:    "no measurements at all",
			targets: map[string]int64{"distance_m": 100},
			finals:  map[string]int64{},
			want:    false,
		},
		{
			name:    "no targets never wins",
			targets: map[string]int64{},
			finals:  map[string]int64{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := challengeWon(tt.targets, tt.finals); got != tt.want {
				t.Errorf("challengeWon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_payoutShare(t *testing.T) {
	tests := []struct {
		name        string
		stake       int64
		losingPool  int64
		correctPool int64
		want        int64
	}{
		{
			name:        "even one-to-one odds",
			stake:       1_000_000_000_000_000_000,
			losingPool:  1_000_000_000_000_000_000,
			correctPool: 1_000_000_000_000_000_000,
			want:        2_000_000_000_000_000_000,
		},
		{
			name:        "half share",
			stake:       100,
			losingPool:  100,
			correctPool: 200,
			want:        150,
		},
		{
			name:        "truncation floors toward the pool",
			stake:       1,
			losingPool:  1,
			correctPool: 3,
			want:        1, // winnings 1*1/3 floors to 0
		},
		{
			name:        "empty losing pool returns principal",
			stake:       500,
			losingPool:  0,
			correctPool: 500,
			want:        500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := payoutShare(tt.stake, tt.losingPool, tt.correctPool); got != tt.want {
				t.Errorf("payoutShare() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Conservation: sum of payouts never exceeds the total pool.
func Test_payoutShare_Conservation(t *testing.T) {
	stakes := []int64{17, 101, 5_003, 999_999, 1}
	var correctPool int64
	for _, s := range stakes {
		correctPool += s
	}
	losingPool := int64(3_333_333)

	var paid int64
	for _, s := range stakes {
		paid += payoutShare(s, losingPool, correctPool)
	}

	if paid > correctPool+losingPool {
		t.Errorf("total payouts %d exceed pool %d", paid, correctPool+losingPool)
	}
	// Truncation loss is bounded by one unit per winner.
	if correctPool+losingPool-paid >= int64(len(stakes)) {
		t.Errorf("truncation loss %d too large", correctPool+losingPool-paid)
	}
}

func Test_binaryPools(t *testing.T) {
	challenge := &models.Challenge{
		TotalStakedFor:     300,
		TotalStakedAgainst: 700,
	}

	won := binaryPools(challenge, true)
	if won.correct != 300 || won.losing != 700 {
		t.Errorf("won pools = (%d, %d), want (300, 700)", won.correct, won.losing)
	}
	if !won.winner(&models.Stake{Side: models.StakeSideFor}) {
		t.Error("for-stake should win a won challenge")
	}
	if won.winner(&models.Stake{Side: models.StakeSideAgainst}) {
		t.Error("against-stake should lose a won challenge")
	}

	lost := binaryPools(challenge, false)
	if lost.correct != 700 || lost.losing != 300 {
		t.Errorf("lost pools = (%d, %d), want (700, 300)", lost.correct, lost.losing)
	}
	if !lost.winner(&models.Stake{Side: models.StakeSideAgainst}) {
		t.Error("against-stake should win a lost challenge")
	}
}

func Test_binaryPools_EmptyCorrectSideRefunds(t *testing.T) {
	challenge := &models.Challenge{
		TotalStakedFor:     0,
		TotalStakedAgainst: 500,
	}

	p := binaryPools(challenge, true)
	if !p.refund {
		t.Error("empty correct side should trigger a refund run")
	}
}

func Test_leaderboardPools(t *testing.T) {
	challenge := &models.Challenge{
		TotalStakedFor: 1000,
		LeaderID:       "leader",
	}

	p := leaderboardPools(challenge, 400)
	if p.correct != 400 || p.losing != 600 {
		t.Errorf("pools = (%d, %d), want (400, 600)", p.correct, p.losing)
	}
	if p.refund {
		t.Error("populated leader stake should not refund")
	}
	if !p.winner(&models.Stake{ParticipantID: "leader"}) {
		t.Error("leader's stake should be the correct side")
	}
	if p.winner(&models.Stake{ParticipantID: "rival"}) {
		t.Error("non-leader stakes should lose")
	}
}

func Test_leaderboardPools_NoLeaderRefunds(t *testing.T) {
	challenge := &models.Challenge{TotalStakedFor: 1000}

	p := leaderboardPools(challenge, 0)
	if !p.refund {
		t.Error("a challenge with no leader should refund")
	}
}

// The worked example: one for-bettor and one against-bettor at one token
// each; the challenge is won, so each for-staker doubles up.
func Test_Settlement_EvenSplitExample(t *testing.T) {
	oneToken := int64(1_000_000_000_000_000_000)
	challenge := &models.Challenge{
		TotalStakedFor:     oneToken,
		TotalStakedAgainst: oneToken,
	}

	p := binaryPools(challenge, true)
	got := payoutShare(oneToken, p.losing, p.correct)
	if got != 2*oneToken {
		t.Errorf("payout = %d, want %d", got, 2*oneToken)
	}
}
