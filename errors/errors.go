package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrInvalidPayload     = fmt.Errorf("invalid event payload")
	ErrPlatform           = fmt.Errorf("platform operation failed")
	ErrJoinRoom           = fmt.Errorf("failed to join audio room")
	ErrLeaveRoom          = fmt.Errorf("failed to leave audio room")
	ErrRecognitionFailed  = fmt.Errorf("speech recognition failed")
	ErrRecognitionTimeout = fmt.Errorf("speech recognition timed out")
	ErrEmptySegment       = fmt.Errorf("audio segment has no frames")
	ErrInvalidDelta       = fmt.Errorf("ledger delta must be positive")
	ErrUnknownBackend     = fmt.Errorf("unknown ledger backend")
	ErrUnknownParticipant = fmt.Errorf("unknown participant")
	ErrSinkClosed         = fmt.Errorf("sink has been detached")
)

// Is lets callers importing this package match wrapped sentinels.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
