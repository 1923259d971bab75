package notify

import (
	"time"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/config"
)

// Config holds the configuration for the notification queue and dispatcher.
type Config struct {
	PollInterval       time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"15s"`
	SendTimeout        time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"30s"`
	DebounceWindow     time.Duration `env:"NOTIFY_DEBOUNCE_WINDOW" envDefault:"5m"`
	BackoffBase        time.Duration `env:"NOTIFY_BACKOFF_BASE" envDefault:"1m"`
	BackoffCap         time.Duration `env:"NOTIFY_BACKOFF_CAP" envDefault:"1h"`
	BatchLimit         int           `env:"NOTIFY_DISPATCH_BATCH_LIMIT" envDefault:"100"`
	MaxConcurrentSends int           `env:"NOTIFY_MAX_CONCURRENT_SENDS" envDefault:"8"`
	DefaultMaxRetries  int8          `env:"NOTIFY_DEFAULT_MAX_RETRIES" envDefault:"3"`
}

// LoadConfig reads the dispatcher configuration from the environment through
// the shared loader. Repeated callers observe the same parsed snapshot.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
