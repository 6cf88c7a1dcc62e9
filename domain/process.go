// Package domain contains core concepts of the moderation agent.
// This file defines the agent process status reported by the stats worker.
package domain

type PID int32
type PidStatus string

const (
	RUNNING PidStatus = "RUNNING"
	STOP    PidStatus = "STOP"
	UNKNOWN PidStatus = "UNKNOWN"
)

func ToStatus(running bool, err error) PidStatus {
	switch {
	case err != nil:
		return UNKNOWN
	case running:
		return RUNNING
	default:
		return STOP
	}
}
