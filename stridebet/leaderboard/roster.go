package leaderboard

import "github.com/stridebet/stridebet/stridebet/database/models"

// rosterIndex finds a participant's slot in a position-ordered roster,
// or -1.
func rosterIndex(roster []*models.Competitor, participantID string) int {
	for i, c := range roster {
		if c.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

// removeFromRoster drops the slot at idx: the departing entry is swapped to
// the tail, the displaced suffix is rotated forward one slot to restore
// relative order, and the tail is popped. The survivor at slot zero is
// therefore always the next competitor in the original list order.
func removeFromRoster(roster []*models.Competitor, idx int) []*models.Competitor {
	last := len(roster) - 1
	departing := roster[idx]
	roster[idx] = roster[last]
	roster[last] = departing

	// Rotate the swapped tail entry back through the gap.
	for i := idx; i < last-1; i++ {
		roster[i], roster[i+1] = roster[i+1], roster[i]
	}

	remaining := roster[:last]
	for i, c := range remaining {
		c.Position = i
	}
	return remaining
}

// shouldPromote applies the strictly-greater rule: an equal score never
// displaces the incumbent, so the earliest submitter wins ties.
func shouldPromote(incumbentScore, newScore int64) bool {
	return newScore > incumbentScore
}

// topCompetitor returns the best-standing competitor outside excludeID:
// highest score, lowest roster position on ties. Nil for an empty field.
func topCompetitor(roster []*models.Competitor, excludeID string) *models.Competitor {
	var best *models.Competitor
	for _, c := range roster {
		if c.ParticipantID == excludeID {
			continue
		}
		if best == nil || c.Score > best.Score || (c.Score == best.Score && c.Position < best.Position) {
			best = c
		}
	}
	return best
}
