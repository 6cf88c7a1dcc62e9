package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"swear-jar/moderation"
	"swear-jar/observability"
)

const (
	JarCommand      = "--jar"
	TopCommand      = "--top"
	OffenseReaction = "🤬"
)

type IModerationService interface {
	HandleMessage(ctx context.Context, msg event.MessageSent) error
	HandleUtterance(ctx context.Context, utterance event.UtteranceRecognized) error
	ScoreReport(ctx context.Context, participant domain.ParticipantID) (ScoreReport, error)
	LeaderboardReport(ctx context.Context) (LeaderboardReport, error)
}

// ModerationService turns messages and utterances into ledger increments
// and answers the jar commands.
type ModerationService struct {
	log           *slog.Logger
	matcher       *moderation.Matcher
	ledger        *LedgerService
	messenger     contract.Messenger
	resolver      contract.ParticipantResolver
	rates         JarRates
	telemetryChan chan event.Event
}

func NewModerationService(log *slog.Logger,
	matcher *moderation.Matcher,
	ledger *LedgerService,
	messenger contract.Messenger,
	resolver contract.ParticipantResolver,
	rates JarRates,
	telemetryChan chan event.Event) *ModerationService {
	return &ModerationService{
		log:           log,
		matcher:       matcher,
		ledger:        ledger,
		messenger:     messenger,
		resolver:      resolver,
		rates:         rates,
		telemetryChan: telemetryChan,
	}
}

func (s *ModerationService) HandleMessage(ctx context.Context, msg event.MessageSent) error {
	if msg.AuthorAutomated {
		return nil
	}
	observability.MessagesProcessed.Inc()

	switch strings.TrimSpace(msg.Content) {
	case JarCommand:
		s.replyScore(ctx, msg)
	case TopCommand:
		s.replyLeaderboard(ctx, msg)
	}

	words := s.matcher.Matches(msg.Content)
	if len(words) == 0 {
		return nil
	}
	if _, err := s.charge(ctx, msg.Author, words, event.TextSource); err != nil {
		return err
	}
	if err := s.messenger.AddReaction(ctx, msg.Channel, msg.ID, OffenseReaction); err != nil {
		observability.PlatformErrors.WithLabelValues("reaction").Inc()
		s.log.Warn("Unable to react to message", "message", msg.ID, "channel", msg.Channel, "error", err)
	}
	return nil
}

func (s *ModerationService) HandleUtterance(ctx context.Context, utterance event.UtteranceRecognized) error {
	words := s.matcher.Matches(utterance.Text)
	if len(words) == 0 {
		return nil
	}
	_, err := s.charge(ctx, utterance.Speaker, words, event.VoiceSource)
	return err
}

func (s *ModerationService) ScoreReport(ctx context.Context, participant domain.ParticipantID) (ScoreReport, error) {
	count, err := s.ledger.Get(ctx, participant)
	if err != nil {
		return ScoreReport{}, err
	}
	return NewScoreReport(participant, count, s.rates.UnitRate), nil
}

func (s *ModerationService) LeaderboardReport(ctx context.Context) (LeaderboardReport, error) {
	entries, err := s.ledger.TopK(ctx, s.rates.Size)
	if err != nil {
		return LeaderboardReport{}, err
	}
	names := make(map[domain.ParticipantID]string, len(entries))
	for _, e := range entries {
		name, err := s.resolver.DisplayName(ctx, e.Participant)
		if err != nil {
			s.log.Debug("Display name not resolved", "participant", e.Participant, "error", err)
			continue
		}
		names[e.Participant] = name
	}
	return NewLeaderboardReport(entries, names, s.rates.UnitRate), nil
}

func (s *ModerationService) charge(ctx context.Context, participant domain.ParticipantID, words []string, source event.Source) (uint64, error) {
	delta := uint64(len(words))
	total, err := s.ledger.Increment(ctx, participant, delta)
	if err != nil {
		return 0, fmt.Errorf("charge %s offense: %w", source, err)
	}
	observability.OffensesRecorded.WithLabelValues(string(source)).Add(float64(delta))
	s.emit(event.New(event.LexiconHitType, event.LexiconHit{Source: source, Words: words}))
	s.emit(event.New(event.OffenseRecordedType, event.OffenseRecorded{
		Participant: participant,
		Source:      source,
		Delta:       delta,
		Total:       total,
	}))
	return total, nil
}

func (s *ModerationService) replyScore(ctx context.Context, msg event.MessageSent) {
	report, err := s.ScoreReport(ctx, msg.Author)
	if err != nil {
		s.log.Error("Unable to build score report", "participant", msg.Author, "error", err)
		return
	}
	s.send(ctx, msg.Channel, report.Render(s.rates.CurrencySymbol))
}

func (s *ModerationService) replyLeaderboard(ctx context.Context, msg event.MessageSent) {
	report, err := s.LeaderboardReport(ctx)
	if err != nil {
		s.log.Error("Unable to build leaderboard", "error", err)
		return
	}
	s.send(ctx, msg.Channel, report.Render(s.rates.CurrencySymbol))
}

func (s *ModerationService) send(ctx context.Context, channel, text string) {
	if err := s.messenger.SendMessage(ctx, channel, text); err != nil {
		observability.PlatformErrors.WithLabelValues("send").Inc()
		s.log.Warn("Unable to send reply", "channel", channel, "error", err)
	}
}

// emit never blocks the moderation path; telemetry may be lost under load.
func (s *ModerationService) emit(evt event.Event) {
	if s.telemetryChan == nil {
		return
	}
	select {
	case s.telemetryChan <- evt:
	default:
		s.log.Debug("Telemetry event lost", "type", evt.Type)
	}
}
