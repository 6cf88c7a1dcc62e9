package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var OffensesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_offenses_recorded_total",
	Help: "Lexicon words charged to the ledger",
}, []string{"source"})

var LedgerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_ledger_errors_total",
	Help: "Ledger operations that returned an error",
}, []string{"operation"})

var MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "swearjar_messages_processed_total",
	Help: "Text messages inspected by the coordinator",
})

var UtterancesRecognized = promauto.NewCounter(prometheus.CounterOpts{
	Name: "swearjar_utterances_recognized_total",
	Help: "Utterances turned into text by the speech engine",
})

var RecognitionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_recognitions_dropped_total",
	Help: "Utterances discarded before reaching the coordinator",
}, []string{"reason"})

var RecognitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "swearjar_recognition_duration_seconds",
	Help:    "Latency of speech engine calls",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
})

var Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_reconciliations_total",
	Help: "Presence reconciliations by outcome",
}, []string{"outcome"})

var ActivePresences = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "swearjar_active_presences",
	Help: "Audio rooms the agent currently sits in",
})

var PlatformErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_platform_errors_total",
	Help: "Failed calls to the chat platform",
}, []string{"operation"})

var WorkerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swearjar_worker_restarts_total",
	Help: "Workers restarted by the supervisor",
}, []string{"worker"})

var ChannelLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "swearjar_channel_length",
	Help: "Buffered events waiting in an internal stream",
}, []string{"channel"})

var ProcessRSS = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "swearjar_process_rss_bytes",
	Help: "Resident memory of the agent process",
})

var ProcessCPU = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "swearjar_process_cpu_percent",
	Help: "CPU usage of the agent process",
})
