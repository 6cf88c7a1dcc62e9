package main

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type shutdownRecorder struct {
	calls    []string
	leaveErr error
}

func (r *shutdownRecorder) Close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return fmt.Errorf("no shutdown deadline")
	}
	r.calls = append(r.calls, "leave rooms")
	return r.leaveErr
}

func (r *shutdownRecorder) Stop() { r.calls = append(r.calls, "stop workers") }

type gatewayRecorder struct{ r *shutdownRecorder }

func (g gatewayRecorder) Close() error {
	g.r.calls = append(g.r.calls, "close gateway")
	return nil
}

func TestShutdown_LeavesRoomsBeforeClosingGateway(t *testing.T) {
	req := require.New(t)
	rec := &shutdownRecorder{}

	shutdown(logs.GetLoggerFromLevel(slog.LevelDebug), rec, rec, gatewayRecorder{r: rec})

	req.Equal([]string{"leave rooms", "stop workers", "close gateway"}, rec.calls)
}

func TestShutdown_ContinuesWhenRoomsCannotBeLeft(t *testing.T) {
	req := require.New(t)
	rec := &shutdownRecorder{leaveErr: fmt.Errorf("voice gateway unreachable")}

	shutdown(logs.GetLoggerFromLevel(slog.LevelDebug), rec, rec, gatewayRecorder{r: rec})

	req.Equal([]string{"leave rooms", "stop workers", "close gateway"}, rec.calls)
}
