package services

import (
	"fmt"
	"strconv"
	"strings"
	"swear-jar/domain"
)

const UnknownUser = "unknown user"

type ScoreReport struct {
	Participant domain.ParticipantID
	Count       uint64
	Owed        float64
}

type LeaderboardLine struct {
	Participant domain.ParticipantID
	Name        string
	Count       uint64
	Owed        float64
}

type LeaderboardReport struct {
	Lines []LeaderboardLine
	Total float64
}

// JarRates holds the jar arithmetic parameters.
type JarRates struct {
	UnitRate       float64
	CurrencySymbol string
	Size           int
}

func NewScoreReport(participant domain.ParticipantID, count uint64, rate float64) ScoreReport {
	return ScoreReport{
		Participant: participant,
		Count:       count,
		Owed:        domain.RoundHalfUp(domain.Owed(count, rate), 2),
	}
}

// NewLeaderboardReport keeps the ranking of entries. The total is rounded once
// over the unrounded sum, not summed from rounded lines.
func NewLeaderboardReport(entries []domain.LedgerEntry, names map[domain.ParticipantID]string, rate float64) LeaderboardReport {
	report := LeaderboardReport{Lines: make([]LeaderboardLine, 0, len(entries))}
	var total float64
	for _, e := range entries {
		owed := domain.Owed(e.Count, rate)
		total += owed
		name, ok := names[e.Participant]
		if !ok || name == "" {
			name = UnknownUser
		}
		report.Lines = append(report.Lines, LeaderboardLine{
			Participant: e.Participant,
			Name:        name,
			Count:       e.Count,
			Owed:        domain.RoundHalfUp(owed, 2),
		})
	}
	report.Total = domain.RoundHalfUp(total, 2)
	return report
}

func (r ScoreReport) Render(currency string) string {
	return fmt.Sprintf("You've sworn %d times, and therefore owe the swear jar approximately %s%s",
		r.Count, currency, formatAmount(r.Owed))
}

func (r LeaderboardReport) Render(currency string) string {
	var sb strings.Builder
	sb.WriteString("**Naughtiest Users:**\n```")
	for _, l := range r.Lines {
		fmt.Fprintf(&sb, "%s - %d - owes approx %s%s\n", l.Name, l.Count, currency, formatAmount(l.Owed))
	}
	sb.WriteString("```\n")
	fmt.Fprintf(&sb, "**The total pool therefore sits at about %s%s**", currency, formatAmount(r.Total))
	return sb.String()
}

// formatAmount prints the shortest decimal form, so 0.9 stays "0.9".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
