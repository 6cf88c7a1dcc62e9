package services

import (
	"swear-jar/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewScoreReport(t *testing.T) {
	req := require.New(t)

	report := NewScoreReport("alice", 5, 0.069)
	req.InDelta(0.35, report.Owed, 1e-9)
	req.Equal("You've sworn 5 times, and therefore owe the swear jar approximately £0.35", report.Render("£"))
}

func TestNewLeaderboardReport(t *testing.T) {
	req := require.New(t)
	entries := []domain.LedgerEntry{
		{Participant: "bob", Count: 10},
		{Participant: "alice", Count: 3},
	}

	report := NewLeaderboardReport(entries, map[domain.ParticipantID]string{"bob": "Bob"}, 0.069)

	req.Equal([]LeaderboardLine{
		{Participant: "bob", Name: "Bob", Count: 10, Owed: 0.69},
		{Participant: "alice", Name: UnknownUser, Count: 3, Owed: 0.21},
	}, report.Lines)
	req.InDelta(0.90, report.Total, 1e-9)
}

func TestLeaderboardReport_RenderEmpty(t *testing.T) {
	report := NewLeaderboardReport(nil, nil, 0.069)
	require.Equal(t, "**Naughtiest Users:**\n```"+"```\n"+"**The total pool therefore sits at about £0**", report.Render("£"))
}
