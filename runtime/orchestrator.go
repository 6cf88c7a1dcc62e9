package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"swear-jar/contract"
	"swear-jar/domain/event"
	"swear-jar/moderation"
	"swear-jar/runtime/workers"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Pipeline gathers the collaborators driven by the supervised workers.
type Pipeline struct {
	Coordinator interface {
		workers.MessageHandler
		workers.UtteranceHandler
	}
	Reconciler     contract.Reconciler
	Handlers       []event.Handler
	MetricInterval time.Duration
	QueueSize      int
}

// Orchestrator owns the internal event streams and the supervised workers.
// It contains no moderation rule.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	messages   chan event.Event
	presences  chan event.Event
	utterances chan event.Event
	telemetry  chan event.Event
	started    bool
}

// NewOrchestrator shares telemetry with the supervisor when given, otherwise it creates the stream.
func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, telemetry chan event.Event, bufferSize int) *Orchestrator {
	if telemetry == nil {
		telemetry = make(chan event.Event, bufferSize)
	}
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		messages:   make(chan event.Event, bufferSize),
		presences:  make(chan event.Event, bufferSize),
		utterances: make(chan event.Event, bufferSize),
		telemetry:  telemetry,
	}
}

func (o *Orchestrator) Messages() chan event.Event { return o.messages }
func (o *Orchestrator) Presences() chan event.Event { return o.presences }
func (o *Orchestrator) Utterances() chan event.Event { return o.utterances }
func (o *Orchestrator) Telemetry() chan event.Event { return o.telemetry }

// PrepareModeration loads the lexicon and builds the Aho-Corasick automaton.
func PrepareModeration(log *slog.Logger, loader *LexiconLoader, extraFiles ...string) (*moderation.Matcher, error) {
	extraFiles = lo.Filter(extraFiles, func(path string, _ int) bool { return path != "" })
	data, err := loader.LoadAll("lexicon", extraFiles...)
	if err != nil {
		return nil, err
	}

	log.Info(fmt.Sprintf("%d lexicon files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique lexicon words loaded", len(data.Words)))

	return moderation.NewMatcher(data.Words)
}

// Start registers every worker on the supervisor and blocks until ctx is done.
func (o *Orchestrator) Start(ctx context.Context, p Pipeline) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true

	o.supervisor.Add(
		workers.NewMessageWorker(o.log, p.Coordinator, o.messages),
		workers.NewUtteranceWorker(o.log, p.Coordinator, o.utterances),
		workers.NewReconcileDispatcher(o.log, p.Reconciler, o.presences, p.QueueSize),
		workers.NewTelemetryWorker(o.log, o.telemetry, p.Handlers),
		workers.NewStreamGaugeWorker(o.log, o.gaugedStreams(), o.telemetry, p.MetricInterval),
		workers.NewProcessStatsWorker(o.log, o.telemetry, p.MetricInterval),
	)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervision context, every worker returns on ctx.Done.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) gaugedStreams() []workers.GaugedStream {
	return []workers.GaugedStream{
		{Name: "messages", Stream: o.messages},
		{Name: "presences", Stream: o.presences},
		{Name: "utterances", Stream: o.utterances},
		{Name: "telemetry", Stream: o.telemetry},
	}
}
