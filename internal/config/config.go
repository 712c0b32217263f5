package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type WSConfig struct {
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type RelayConfig struct {
	// NotifyUnavailable answers an offer to an offline user with
	// callUnavailable instead of dropping it silently.
	NotifyUnavailable bool `mapstructure:"notify_unavailable"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type RTCConfig struct {
	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	UploadDir  string `mapstructure:"upload_dir"`
	DBPath     string `mapstructure:"db_path"`
	Secret     string `mapstructure:"secret"`
	LogLevel   string `mapstructure:"log_level"`

	WS    WSConfig    `mapstructure:"ws"`
	Relay RelayConfig `mapstructure:"relay"`
	RTC   RTCConfig   `mapstructure:"rtc"`
}

// defaultSecret only keys session cookies outside release mode.
const defaultSecret = "change-me"

var ErrInsecureSecret = errors.New("insecure session secret")

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("db_path", "./data/chat.db")
	v.SetDefault("secret", defaultSecret)
	v.SetDefault("log_level", "info")

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("ws.send_buffer", 32)
	v.SetDefault("ws.rate_limit", 20)
	v.SetDefault("ws.rate_interval", "1s")

	v.SetDefault("relay.notify_unavailable", false)

	v.SetDefault("rtc.ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func newViper() (*viper.Viper, string) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	// CHAT_PORT, CHAT_WS_SEND_BUFFER, ...
	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v, fileName
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WS.PongWait <= cfg.WS.PingPeriod {
		return nil, fmt.Errorf("ws.pong_wait (%s) must exceed ws.ping_period (%s)", cfg.WS.PongWait, cfg.WS.PingPeriod)
	}
	if cfg.WS.SendBuffer <= 0 {
		return nil, fmt.Errorf("ws.send_buffer must be positive, got %d", cfg.WS.SendBuffer)
	}
	if cfg.Mode == "release" && (cfg.Secret == "" || cfg.Secret == defaultSecret) {
		return nil, fmt.Errorf("%w: set secret or CHAT_SECRET in release mode", ErrInsecureSecret)
	}
	return &cfg, nil
}

func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

func load() (*Config, *viper.Viper, error) {
	v, fileName := newViper()
	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config")
	return cfg, v, nil
}

// LoadAndWatch is Load plus a watch on the config file. onChange receives
// every successfully re-parsed config; the log level is applied before it
// runs.
func LoadAndWatch(onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("reload")
			return
		}
		ApplyLogLevel(next.LogLevel)
		log.Info().Str("module", "config").Str("file", e.Name).Str("op", e.Op.String()).Msg("reloaded config")
		if onChange != nil {
			onChange(next)
		}
	})
	v.WatchConfig()
	return cfg, nil
}

// ApplyLogLevel sets the global zerolog level. Unknown levels leave it as is.
func ApplyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		log.Warn().Str("module", "config").Str("level", level).Msg("unknown log level")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
