// Package oracle supplies token/USD conversion rates from an external
// price feed, validated and normalized before anything downstream sees them.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"
)

// RoundData is one published price round as the feed reports it.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	Decimals        uint8
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// Feed fetches the latest round for a trading pair.
type Feed interface {
	LatestRound(ctx context.Context, pair string) (*RoundData, error)
}

// FeedClient talks to an aggregator-style HTTP price feed.
type FeedClient struct {
	baseURL string
	client  *http.Client
}

func NewFeedClient(baseURL string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type roundResponse struct {
	RoundID         uint64 `json:"roundId"`
	Answer          string `json:"answer"`
	Decimals        uint8  `json:"decimals"`
	UpdatedAt       int64  `json:"updatedAt"`
	AnsweredInRound uint64 `json:"answeredInRound"`
}

func (c *FeedClient) LatestRound(ctx context.Context, pair string) (*RoundData, error) {
	endpoint := fmt.Sprintf("%s/v1/rounds/latest?pair=%s", c.baseURL, url.QueryEscape(pair))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var body roundResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	answer, ok := new(big.Int).SetString(body.Answer, 10)
	if !ok {
		return nil, fmt.Errorf("feed answer %q is not an integer", body.Answer)
	}

	round := &RoundData{
		RoundID:         body.RoundID,
		Answer:          answer,
		Decimals:        body.Decimals,
		AnsweredInRound: body.AnsweredInRound,
	}
	if body.UpdatedAt > 0 {
		round.UpdatedAt = time.Unix(body.UpdatedAt, 0)
	}
	return round, nil
}
