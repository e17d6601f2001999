// Hoods - Marketplace Backend
// Copyright 2026 Hoods Tech
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hoodstech/hoods-be-main

package feed

import (
	"testing"

	"github.com/google/uuid"
)

// scoredBatch builds count scored items all carrying the same score.
func scoredBatch(count, score int) []ScoredItem {
	items := make([]ScoredItem, count)
	for i := range items {
		items[i] = ScoredItem{ItemID: uuid.New(), Score: score}
	}
	return items
}

// tierCounts maps a selection back to per-tier counts via the scores the
// items were created with.
func tierCounts(selected []uuid.UUID, scored []ScoredItem) [4]int {
	tierOf := make(map[uuid.UUID]Tier, len(scored))
	for _, item := range scored {
		tierOf[item.ItemID] = ClassifyTier(item.Score)
	}
	var counts [4]int
	for _, id := range selected {
		counts[tierOf[id]]++
	}
	return counts
}

func TestTierTargets(t *testing.T) {
	cases := []struct {
		n    int
		want [4]int
	}{
		{20, [4]int{12, 5, 2, 1}},
		{10, [4]int{6, 2, 1, 1}},
		{5, [4]int{3, 1, 0, 1}},
		{1, [4]int{0, 0, 0, 1}},
		{100, [4]int{60, 25, 10, 5}},
	}
	for _, tc := range cases {
		got := tierTargets(tc.n)
		if got != tc.want {
			t.Errorf("tierTargets(%d) = %v, want %v", tc.n, got, tc.want)
		}
		sum := got[0] + got[1] + got[2] + got[3]
		if sum != tc.n {
			t.Errorf("tierTargets(%d) sums to %d", tc.n, sum)
		}
	}
}

func TestSelectHitsTierTargets(t *testing.T) {
	// Every tier has more candidates than its target.
	var scored []ScoredItem
	scored = append(scored, scoredBatch(20, 8)...) // high
	scored = append(scored, scoredBatch(20, 4)...) // medium
	scored = append(scored, scoredBatch(20, 1)...) // low
	scored = append(scored, scoredBatch(20, 0)...) // exploration

	selected := NewSelector(1).Select(scored, 20)
	if len(selected) != 20 {
		t.Fatalf("selected %d, want 20", len(selected))
	}

	counts := tierCounts(selected, scored)
	want := [4]int{12, 5, 2, 1}
	if counts != want {
		t.Errorf("tier counts = %v, want %v", counts, want)
	}
}

func TestSelectShortfallRollsForward(t *testing.T) {
	// No high-tier candidates at all; the 60% target rolls into medium.
	var scored []ScoredItem
	scored = append(scored, scoredBatch(30, 4)...) // medium
	scored = append(scored, scoredBatch(30, 1)...) // low
	scored = append(scored, scoredBatch(30, 0)...) // exploration

	selected := NewSelector(1).Select(scored, 20)
	if len(selected) != 20 {
		t.Fatalf("selected %d, want 20", len(selected))
	}

	counts := tierCounts(selected, scored)
	// Medium absorbs high's 12 on top of its own 5.
	want := [4]int{0, 17, 2, 1}
	if counts != want {
		t.Errorf("tier counts = %v, want %v", counts, want)
	}
}

func TestSelectBackfillsFromEarlierTiers(t *testing.T) {
	// Only high-tier candidates exist. The forward pass takes high's
	// target, later tiers contribute nothing, and the backfill pass tops
	// the selection up from the leftover high pool.
	scored := scoredBatch(30, 9)

	selected := NewSelector(1).Select(scored, 20)
	if len(selected) != 20 {
		t.Fatalf("selected %d, want 20", len(selected))
	}
	counts := tierCounts(selected, scored)
	if counts[TierHigh] != 20 {
		t.Errorf("high count = %d, want 20", counts[TierHigh])
	}
}

func TestSelectFewerCandidatesThanTarget(t *testing.T) {
	scored := append(scoredBatch(2, 7), scoredBatch(1, 0)...)

	selected := NewSelector(1).Select(scored, 20)
	if len(selected) != 3 {
		t.Fatalf("selected %d, want all 3 available", len(selected))
	}
}

func TestSelectNoDuplicates(t *testing.T) {
	var scored []ScoredItem
	scored = append(scored, scoredBatch(10, 8)...)
	scored = append(scored, scoredBatch(10, 0)...)

	selected := NewSelector(42).Select(scored, 15)
	seen := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			t.Fatalf("item %s selected twice", id)
		}
		seen[id] = true
	}
}

func TestSelectDeterministicWithFixedSeed(t *testing.T) {
	var scored []ScoredItem
	scored = append(scored, scoredBatch(15, 8)...)
	scored = append(scored, scoredBatch(15, 4)...)
	scored = append(scored, scoredBatch(15, 0)...)

	first := NewSelector(7).Select(scored, 10)
	second := NewSelector(7).Select(scored, 10)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("selection diverges at index %d", i)
		}
	}
}

func TestSelectEdgeCases(t *testing.T) {
	if got := NewSelector(1).Select(nil, 10); got != nil {
		t.Errorf("Select(nil) = %v, want nil", got)
	}
	if got := NewSelector(1).Select(scoredBatch(5, 1), 0); got != nil {
		t.Errorf("Select(n=0) = %v, want nil", got)
	}
}
