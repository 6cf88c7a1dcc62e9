package workers

import (
	"context"
	"log/slog"
	"os"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"swear-jar/observability"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStatsWorker samples the agent own process and exports RSS and CPU usage.
type ProcessStatsWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
	pid            domain.PID
}

func NewProcessStatsWorker(log *slog.Logger, telemetryChan chan event.Event, metricInterval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
		pid:            domain.PID(os.Getpid()),
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(w.pid))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
			evt, ok := w.sample(p)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case w.telemetryChan <- evt:
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) (event.Event, bool) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return event.Event{}, false
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		w.log.Error("Error while finding process memory usage", "err", err)
		return event.Event{}, false
	}
	observability.ProcessCPU.Set(cpu)
	observability.ProcessRSS.Set(float64(mem.RSS))
	return event.New(event.ProcessSampleType, event.ProcessSample{
		PID:        w.pid,
		Status:     domain.ToStatus(p.IsRunning()),
		CPUPercent: cpu,
		RSS:        mem.RSS,
	}), true
}
