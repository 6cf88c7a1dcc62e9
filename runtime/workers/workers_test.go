package workers

import (
	"context"
	"log/slog"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu         sync.Mutex
	messages   []event.MessageSent
	utterances []event.UtteranceRecognized
	events     []event.Event
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg event.MessageSent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	return nil
}

func (h *recordingHandler) HandleUtterance(_ context.Context, u event.UtteranceRecognized) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.utterances = append(h.utterances, u)
	return nil
}

func (h *recordingHandler) Handle(evt event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
}

func (h *recordingHandler) sizes() (int, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages), len(h.utterances), len(h.events)
}

func runWorker(t *testing.T, run func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestMessageWorker_ForwardsMessages(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	handler := &recordingHandler{}
	messages := make(chan event.Event, 10)
	runWorker(t, NewMessageWorker(log, handler, messages).Run)

	messages <- event.New(event.MessageSentType, event.MessageSent{ID: "m1", Content: "bonjour tout le monde"})
	messages <- event.New(event.MessageSentType, "not a message")
	messages <- event.New(event.MessageSentType, event.MessageSent{ID: "m2", Content: "hello"})

	require.Eventually(t, func() bool {
		n, _, _ := handler.sizes()
		return n == 2
	}, time.Second, 5*time.Millisecond)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Equal(t, "m1", handler.messages[0].ID)
	require.Equal(t, "m2", handler.messages[1].ID)
}

func TestUtteranceWorker_ForwardsUtterances(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	handler := &recordingHandler{}
	utterances := make(chan event.Event, 10)
	runWorker(t, NewUtteranceWorker(log, handler, utterances).Run)

	utterances <- event.New(event.UtteranceRecognizedType, event.UtteranceRecognized{Speaker: "bob", Text: "damn"})

	require.Eventually(t, func() bool {
		_, n, _ := handler.sizes()
		return n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTelemetryWorker_DispatchesToEveryHandler(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	first, second := &recordingHandler{}, &recordingHandler{}
	telemetry := make(chan event.Event, 10)
	runWorker(t, NewTelemetryWorker(log, telemetry, []event.Handler{first, second}).Run)

	telemetry <- event.New(event.LexiconHitType, event.LexiconHit{Source: event.TextSource, Words: []string{"damn"}})

	require.Eventually(t, func() bool {
		_, _, a := first.sizes()
		_, _, b := second.sizes()
		return a == 1 && b == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStreamGaugeWorker_ReportsUsage(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetry := make(chan event.Event, 10)
	messages := make(chan event.Event, 4)
	messages <- event.Event{}

	w := NewStreamGaugeWorker(log, []GaugedStream{
		{Name: "messages", Stream: messages},
		{Name: "invalid", Stream: 42},
	}, telemetry, 10*time.Millisecond)
	runWorker(t, w.Run)

	var evt event.Event
	req.Eventually(func() bool {
		select {
		case evt = <-telemetry:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	req.Equal(event.StreamUsageType, evt.Type)
	req.Equal(event.StreamUsage{Stream: "messages", Length: 1, Capacity: 4}, evt.Payload)
}

func TestProcessStatsWorker_ReportsOwnProcess(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetry := make(chan event.Event, 10)
	runWorker(t, NewProcessStatsWorker(log, telemetry, 10*time.Millisecond).Run)

	var evt event.Event
	req.Eventually(func() bool {
		select {
		case evt = <-telemetry:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	req.Equal(event.ProcessSampleType, evt.Type)
	payload := evt.Payload.(event.ProcessSample)
	req.Positive(payload.RSS)
	req.Equal(domain.RUNNING, payload.Status)
}
