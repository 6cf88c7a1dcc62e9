package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"swear-jar/domain"
	"swear-jar/services"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type LeaderboardProvider func(ctx context.Context) (services.LeaderboardReport, error)
type PresenceProvider func() []domain.PresenceInfo

type leaderboardLine struct {
	Participant string  `json:"participant"`
	Name        string  `json:"name"`
	Count       uint64  `json:"count"`
	Owed        float64 `json:"owed"`
}

type leaderboardResponse struct {
	Lines []leaderboardLine `json:"lines"`
	Total float64           `json:"total"`
}

type presenceResponse struct {
	Community    string    `json:"community"`
	Room         string    `json:"room"`
	JoinedAt     time.Time `json:"joined_at"`
	Transcribing bool      `json:"transcribing"`
}

// NewDebugServer exposes metrics and read-only views of the agent state.
func NewDebugServer(log *slog.Logger, leaderboard LeaderboardProvider, presences PresenceProvider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/leaderboard", func(c echo.Context) error {
		report, err := leaderboard(c.Request().Context())
		if err != nil {
			log.Error("Leaderboard unavailable", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "leaderboard unavailable")
		}
		resp := leaderboardResponse{Lines: make([]leaderboardLine, 0, len(report.Lines)), Total: report.Total}
		for _, l := range report.Lines {
			resp.Lines = append(resp.Lines, leaderboardLine{
				Participant: string(l.Participant),
				Name:        l.Name,
				Count:       l.Count,
				Owed:        l.Owed,
			})
		}
		return c.JSON(http.StatusOK, resp)
	})

	e.GET("/presences", func(c echo.Context) error {
		infos := presences()
		resp := make([]presenceResponse, 0, len(infos))
		for _, p := range infos {
			resp = append(resp, presenceResponse{
				Community:    string(p.Community),
				Room:         string(p.Room),
				JoinedAt:     p.JoinedAt,
				Transcribing: p.Transcribing,
			})
		}
		return c.JSON(http.StatusOK, resp)
	})

	return e
}

// StartDebugServer serves in the background until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, e *echo.Echo) {
	address := fmt.Sprintf("0.0.0.0:%d", port)
	go func() {
		log.Info("Debug server listening", "address", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Error("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()
}
