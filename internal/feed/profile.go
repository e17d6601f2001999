// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"github.com/hoodstech/hoods-be-main/internal/models"
)

// BuildProfile folds a user's tag signals into a preference profile:
// favorite +3, like +2, dislike -1 per tag occurrence, summed over the
// entire history. No time decay, no history limit. A user with no
// interactions yields an empty profile, which is a valid state, not an
// error.
func BuildProfile(signals []TagSignal) Profile {
	profile := make(Profile, len(signals))
	for _, s := range signals {
		profile[s.TagID] += interactionWeight(s.Type)
	}
	return profile
}

// interactionWeight maps an interaction type to its per-tag score delta.
func interactionWeight(t models.InteractionType) int {
	switch t {
	case models.InteractionFavorite:
		return WeightFavorite
	case models.InteractionLike:
		return WeightLike
	case models.InteractionDislike:
		return WeightDislike
	default:
		return 0
	}
}
