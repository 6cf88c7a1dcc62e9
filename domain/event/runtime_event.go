package event

import "swear-jar/domain"

// Events produced by the agent runtime itself, not by the platform.
const (
	WorkerRestartedType Type = "WORKER_RESTARTED"
	StreamUsageType     Type = "STREAM_USAGE"
	ProcessSampleType   Type = "PROCESS_SAMPLE"
)

// WorkerRestarted is emitted by the supervisor before a failed worker runs again.
type WorkerRestarted struct {
	Worker   string
	Panicked bool
}

// StreamUsage is one fill sample of an internal stream.
type StreamUsage struct {
	Stream   string
	Length   int
	Capacity int
}

// Left is the free room in the stream; unbuffered streams report 0.
func (u StreamUsage) Left() int {
	if u.Capacity <= 0 {
		return 0
	}
	return u.Capacity - u.Length
}

type ProcessSample struct {
	PID        domain.PID
	Status     domain.PidStatus
	CPUPercent float64
	RSS        uint64
}
