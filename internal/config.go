package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Port                 int           `env:"PORT,default=3000"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,default=3s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16"`

	GeminiAPIKey     string        `env:"GEMINI_API_KEY,required=true"`
	GeminiModel      string        `env:"GEMINI_MODEL,default=gemini-1.5-flash"`
	GeminiEndpoint   string        `env:"GEMINI_ENDPOINT,default=https://generativelanguage.googleapis.com"`
	GeneratorTimeout time.Duration `env:"GENERATOR_TIMEOUT,default=20s"`

	// AuthTokenSecret left empty disables the optional handshake token.
	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
