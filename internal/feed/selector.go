// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Selector draws a weighted, randomized sample from scored candidates.
// Safe for concurrent use; the rng is guarded by a mutex.
type Selector struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSelector creates a selector. A zero seed selects a time-based seed
// (production); tests pass a fixed seed for reproducible draws.
func NewSelector(seed int64) *Selector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Selector{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // feed shuffling is not security sensitive
	}
}

// Select returns min(n, len(scored)) unique item ids, ordered randomly.
//
// Each tier's pool is independently shuffled and its percentage target of n
// is taken from the front (high 60%, medium 25%, low 10%, exploration 5%,
// exploration absorbing integer rounding remainder). A tier's shortfall
// rolls forward to the next tier in high -> medium -> low -> exploration
// order. If the forward pass still falls short of n while earlier tiers
// have leftover candidates, those leftovers backfill in tier order, so the
// result is always exactly min(n, available). The combined selection is
// shuffled once more so tier boundaries are not observable in the final
// order.
func (s *Selector) Select(scored []ScoredItem, n int) []uuid.UUID {
	if n <= 0 || len(scored) == 0 {
		return nil
	}

	var pools [4][]uuid.UUID
	for _, item := range scored {
		tier := ClassifyTier(item.Score)
		pools[tier] = append(pools[tier], item.ItemID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for t := range pools {
		s.shuffle(pools[t])
	}

	targets := tierTargets(n)

	// Forward pass: take each tier's target, rolling shortfall into the
	// next tier.
	taken := make([]int, 4)
	selected := make([]uuid.UUID, 0, n)
	carry := 0
	for t := range pools {
		want := targets[t] + carry
		take := want
		if take > len(pools[t]) {
			take = len(pools[t])
		}
		if remaining := n - len(selected); take > remaining {
			take = remaining
		}
		selected = append(selected, pools[t][:take]...)
		taken[t] = take
		carry = want - take
	}

	// Backfill pass: richer earlier tiers absorb any remaining deficit.
	for t := 0; t < len(pools) && len(selected) < n; t++ {
		pool := pools[t][taken[t]:]
		take := n - len(selected)
		if take > len(pool) {
			take = len(pool)
		}
		selected = append(selected, pool[:take]...)
	}

	s.shuffle(selected)
	return selected
}

// shuffle applies a Fisher-Yates permutation in place.
func (s *Selector) shuffle(ids []uuid.UUID) {
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// tierTargets splits n into per-tier targets by percentage, with the
// exploration tier absorbing the integer rounding remainder so the targets
// always sum to n.
func tierTargets(n int) [4]int {
	var targets [4]int
	sum := 0
	for t := TierHigh; t < TierExploration; t++ {
		targets[t] = n * tierTargetPercent[t] / 100
		sum += targets[t]
	}
	targets[TierExploration] = n - sum
	return targets
}
