package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"
)

type fakeFeed struct {
	round *RoundData
	err   error
	calls int
}

func (f *fakeFeed) LatestRound(_ context.Context, _ string) (*RoundData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.round
	return &cp, nil
}

func freshRound(now time.Time) *RoundData {
	return &RoundData{
		RoundID:         100,
		Answer:          big.NewInt(250_000_000), // $2.50 at 8 decimals
		Decimals:        8,
		UpdatedAt:       now.Add(-time.Minute),
		AnsweredInRound: 100,
	}
}

func newTestAdapter(t *testing.T, feed Feed, now time.Time) *Adapter {
	t.Helper()
	a, err := NewAdapter(feed, "TOKEN/USD")
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	a.now = func() time.Time { return now }
	return a
}

func Test_Adapter_TokenRate_Validation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(r *RoundData)
		wantErr error
	}{
		{
			name:   "valid round",
			mutate: func(r *RoundData) {},
		},
		{
			name:    "unset timestamp",
			mutate:  func(r *RoundData) { r.UpdatedAt = time.Time{} },
			wantErr: ErrRoundUnset,
		},
		{
			name:    "carried over from earlier round",
			mutate:  func(r *RoundData) { r.AnsweredInRound = r.RoundID - 1 },
			wantErr: ErrRoundStale,
		},
		{
			name:    "older than freshness window",
			mutate:  func(r *RoundData) { r.UpdatedAt = now.Add(-25 * time.Hour) },
			wantErr: ErrRateTooOld,
		},
		{
			name:    "zero answer",
			mutate:  func(r *RoundData) { r.Answer = big.NewInt(0) },
			wantErr: ErrRateNotPositive,
		},
		{
			name:    "negative answer",
			mutate:  func(r *RoundData) { r.Answer = big.NewInt(-5) },
			wantErr: ErrRateNotPositive,
		},
		{
			name:    "decimals above precision",
			mutate:  func(r *RoundData) { r.Decimals = 19 },
			wantErr: ErrDecimalsTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round := freshRound(now)
			tt.mutate(round)
			a := newTestAdapter(t, &fakeFeed{round: round}, now)

			rate, err := a.TokenRate(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TokenRate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && rate.Sign() <= 0 {
				t.Errorf("TokenRate() = %s, want positive", rate)
			}
		})
	}
}

func Test_Adapter_TokenRate_Normalization(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAdapter(t, &fakeFeed{round: freshRound(now)}, now)

	rate, err := a.TokenRate(context.Background())
	if err != nil {
		t.Fatalf("TokenRate() error = %v", err)
	}

	// 2.5e8 at 8 decimals rescales to 2.5e18.
	want, _ := new(big.Int).SetString("2500000000000000000", 10)
	if rate.Cmp(want) != 0 {
		t.Errorf("TokenRate() = %s, want %s", rate, want)
	}
}

func Test_Adapter_TokenRate_CachesWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := &fakeFeed{round: freshRound(now)}
	a := newTestAdapter(t, feed, now)

	if _, err := a.TokenRate(context.Background()); err != nil {
		t.Fatalf("TokenRate() error = %v", err)
	}
	if _, err := a.TokenRate(context.Background()); err != nil {
		t.Fatalf("TokenRate() error = %v", err)
	}
	if feed.calls != 1 {
		t.Errorf("feed called %d times, want 1", feed.calls)
	}
}

func Test_Adapter_TokenRate_FeedError(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAdapter(t, &fakeFeed{err: errors.New("connection refused")}, now)

	if _, err := a.TokenRate(context.Background()); err == nil {
		t.Fatal("TokenRate() should propagate feed errors")
	}
}
