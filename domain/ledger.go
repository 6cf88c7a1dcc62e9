// Package domain contains core concepts of the moderation agent.
// This file defines offense ledger entries and the jar arithmetic.
package domain

import (
	"math"
	"sort"
)

// LedgerEntry is the cumulative offense count of one participant.
type LedgerEntry struct {
	Participant ParticipantID
	Count       uint64
}

// RankEntries sorts entries by count descending, then participant ID ascending,
// and keeps at most k of them. The input slice is sorted in place.
func RankEntries(entries []LedgerEntry, k int) []LedgerEntry {
	if k <= 0 {
		return []LedgerEntry{}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Participant < entries[j].Participant
	})
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// RoundHalfUp rounds value to the given number of decimals, halves going up.
func RoundHalfUp(value float64, decimals int) float64 {
	coeff := math.Pow(10, float64(decimals))
	return math.Floor(value*coeff+0.5) / coeff
}

// Owed is the monetary estimate for an offense count.
func Owed(count uint64, unitRate float64) float64 {
	return float64(count) * unitRate
}
