package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/logger"
)

var (
	ErrRoundUnset       = errors.New("price round has no update timestamp")
	ErrRoundStale       = errors.New("price round answered in an earlier round")
	ErrRateTooOld       = errors.New("price round older than freshness window")
	ErrRateNotPositive  = errors.New("price rate is zero or negative")
	ErrDecimalsTooLarge = errors.New("feed decimals exceed supported precision")
)

type cachedRate struct {
	rate      *big.Int
	fetchedAt time.Time
}

// Adapter validates feed rounds and normalizes answers to 18 decimals.
// Validated rates are cached briefly so a burst of stake placements does
// not hammer the feed.
type Adapter struct {
	feed  Feed
	pair  string
	cache *lru.Cache
	now   func() time.Time
}

func NewAdapter(feed Feed, pair string) (*Adapter, error) {
	cache, err := lru.New(config.RateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate cache: %w", err)
	}
	return &Adapter{
		feed:  feed,
		pair:  pair,
		cache: cache,
		now:   time.Now,
	}, nil
}

// TokenRate returns the USD value of one whole token, scaled to 1e18.
func (a *Adapter) TokenRate(ctx context.Context) (*big.Int, error) {
	if entry, ok := a.cache.Get(a.pair); ok {
		cached := entry.(cachedRate)
		if a.now().Sub(cached.fetchedAt) < config.RateCacheExpiration {
			return new(big.Int).Set(cached.rate), nil
		}
		a.cache.Remove(a.pair)
	}

	round, err := a.feed.LatestRound(ctx, a.pair)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest round: %w", err)
	}

	rate, err := a.validate(round)
	if err != nil {
		logger.LogError("rejected price round", err,
			"pair", a.pair,
			"round", round.RoundID,
		)
		return nil, err
	}

	a.cache.Add(a.pair, cachedRate{rate: rate, fetchedAt: a.now()})
	return new(big.Int).Set(rate), nil
}

func (a *Adapter) validate(round *RoundData) (*big.Int, error) {
	if round.UpdatedAt.IsZero() {
		return nil, ErrRoundUnset
	}
	if round.AnsweredInRound < round.RoundID {
		return nil, ErrRoundStale
	}
	if a.now().Sub(round.UpdatedAt) > config.MaxRateAge {
		return nil, ErrRateTooOld
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, ErrRateNotPositive
	}
	return normalize(round.Answer, round.Decimals)
}

// normalize rescales a feed answer from its native decimals to 18.
func normalize(answer *big.Int, decimals uint8) (*big.Int, error) {
	if int(decimals) > config.RateScaleDecimals {
		return nil, ErrDecimalsTooLarge
	}
	shift := config.RateScaleDecimals - int(decimals)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(shift)), nil)
	return new(big.Int).Mul(answer, scale), nil
}
