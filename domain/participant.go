// Package domain contains core concepts of the moderation agent.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is a roster member. Automated participants never count toward occupancy or the ledger.
type Participant struct {
	ID        ParticipantID
	Name      string
	Automated bool
}

// CountHumans returns the number of non-automated participants.
func CountHumans(participants []Participant) int {
	n := 0
	for _, p := range participants {
		if !p.Automated {
			n++
		}
	}
	return n
}
