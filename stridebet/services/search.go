package services

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/stridebet/stridebet/stridebet/database/repositories"
)

// ChallengeSearchItems implements fuzzy.Source over challenge titles.
type ChallengeSearchItems []ChallengeSearchItem

type ChallengeSearchItem struct {
	Challenge *models.Challenge
	Title     string
}

func (items ChallengeSearchItems) Len() int {
	return len(items)
}

func (items ChallengeSearchItems) String(i int) string {
	return items[i].Title
}

// SearchService finds challenges by approximate title match.
type SearchService struct {
	challenges repositories.ChallengeRepository
}

func NewSearchService(challenges repositories.ChallengeRepository) *SearchService {
	return &SearchService{challenges: challenges}
}

// SearchChallenges fuzzy-matches the query against recent challenge titles,
// best matches first. An empty query returns the recent list unchanged.
func (s *SearchService) SearchChallenges(ctx context.Context, query string, limit int) ([]*models.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, config.SearchTimeout)
	defer cancel()

	challenges, err := s.challenges.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	if query == "" {
		if limit > 0 && len(challenges) > limit {
			challenges = challenges[:limit]
		}
		return challenges, nil
	}

	items := make(ChallengeSearchItems, len(challenges))
	for i, c := range challenges {
		items[i] = ChallengeSearchItem{
			Challenge: c,
			Title:     strings.ToLower(c.Title),
		}
	}

	matches := fuzzy.FindFrom(strings.ToLower(strings.TrimSpace(query)), items)

	results := make([]*models.Challenge, 0, len(matches))
	for _, m := range matches {
		results = append(results, items[m.Index].Challenge)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
