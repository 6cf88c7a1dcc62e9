package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	BufferSize      int           `env:"BUFFER_SIZE,default=256" validate:"gt=0"`
	QueueSize       int           `env:"RECONCILE_QUEUE_SIZE,default=16" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=15s" validate:"gt=0"`

	LowCapacityThreshold int `env:"LOW_CAPACITY_THRESHOLD,default=10" validate:"gte=0"`
	DebugPort            int `env:"DEBUG_PORT,default=8081" validate:"gte=0,lte=65535"`
	InspectPort          int `env:"INSPECT_PORT,default=8082" validate:"gte=0,lte=65535"`

	LedgerBackend  string `env:"LEDGER_BACKEND,default=badger" validate:"oneof=memory badger redis"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/ledger" validate:"required_if=LedgerBackend badger"`
	RedisAddr      string `env:"REDIS_ADDR" validate:"required_if=LedgerBackend redis"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisPrefix    string `env:"REDIS_PREFIX,default=swearjar"`

	DiscordToken string `env:"DISCORD_TOKEN,required=true" validate:"required"`

	OpenAIAPIKey       string        `env:"OPENAI_API_KEY,required=true" validate:"required"`
	WhisperModel       string        `env:"WHISPER_MODEL,default=whisper-1" validate:"required"`
	WhisperLanguage    string        `env:"WHISPER_LANGUAGE,default=en"`
	RecognitionTimeout time.Duration `env:"RECOGNITION_TIMEOUT,default=20s" validate:"gt=0"`
	PlatformTimeout    time.Duration `env:"PLATFORM_TIMEOUT,default=10s" validate:"gt=0"`
	SilenceGap         time.Duration `env:"SILENCE_GAP,default=500ms" validate:"gt=0"`
	MaxUtteranceFrames int           `env:"MAX_UTTERANCE_FRAMES,default=1500" validate:"gt=0"`

	UnitRate         float64 `env:"UNIT_RATE,default=0.069" validate:"gte=0"`
	CurrencySymbol   string  `env:"CURRENCY_SYMBOL,default=£"`
	LeaderboardSize  int     `env:"LEADERBOARD_SIZE,default=10" validate:"gt=0"`
	LexiconExtraPath string  `env:"LEXICON_EXTRA_PATH" validate:"omitempty,file"`
}

// LoadConfig reads an optional .env file, then the environment, then validates the result.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
