// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"github.com/google/uuid"
)

// ScoreItem returns the sum of the profile's values for each of the item's
// tags. Tags absent from the profile contribute 0; an item with no tags
// scores 0 regardless of the profile. Pure function over its inputs.
func ScoreItem(tagIDs []uuid.UUID, profile Profile) int {
	score := 0
	for _, id := range tagIDs {
		score += profile[id]
	}
	return score
}

// ClassifyTier maps a score to its relevance tier:
// >= 6 high, 3-5 medium, 1-2 low, <= 0 exploration.
func ClassifyTier(score int) Tier {
	switch {
	case score >= 6:
		return TierHigh
	case score >= 3:
		return TierMedium
	case score >= 1:
		return TierLow
	default:
		return TierExploration
	}
}
