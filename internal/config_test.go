package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("badger", config.LedgerBackend)
	req.Equal(0.069, config.UnitRate)
	req.Equal("£", config.CurrencySymbol)
	req.Equal(10, config.LeaderboardSize)
	req.Equal(20*time.Second, config.RecognitionTimeout)
	req.Equal(500*time.Millisecond, config.SilenceGap)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nOPENAI_API_KEY=sk-file\nLEDGER_BACKEND=memory\n"), 0o600))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LEDGER_BACKEND", "")
	os.Unsetenv("DISCORD_TOKEN")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("LEDGER_BACKEND")

	config, err := LoadConfig(path)

	req.NoError(err)
	req.Equal("from-file", config.DiscordToken)
	req.Equal("memory", config.LedgerBackend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		description string
		env         map[string]string
	}{
		{"Unknown backend", map[string]string{"LEDGER_BACKEND": "sqlite"}},
		{"Redis without address", map[string]string{"LEDGER_BACKEND": "redis", "REDIS_ADDR": ""}},
		{"Zero leaderboard", map[string]string{"LEADERBOARD_SIZE": "0"}},
		{"Unknown log level", map[string]string{"LOG_LEVEL": "TRACE"}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			t.Setenv("DISCORD_TOKEN", "token")
			t.Setenv("OPENAI_API_KEY", "sk-test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}
