package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// TurnServer is one configured TURN endpoint. Either urls or the singular
// url form is accepted; url is folded into urls on load.
type TurnServer struct {
	Secret string   `mapstructure:"secret"`
	URLs   []string `mapstructure:"urls"`
	URL    string   `mapstructure:"url"`
	Expiry int64    `mapstructure:"expiry"`
}

type Rooms struct {
	// MaxClients caps room membership; zero means unlimited.
	MaxClients int `mapstructure:"max_clients"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	StunServers []string     `mapstructure:"stun_servers"`
	TurnServers []TurnServer `mapstructure:"turn_servers"`
	// TurnOrigins restricts TURN credential issuance to these origins;
	// empty means any origin.
	TurnOrigins []string `mapstructure:"turn_origins"`

	Rooms Rooms `mapstructure:"rooms"`

	// CodecPriority lists video codec names, highest priority first.
	CodecPriority []string `mapstructure:"codec_priority"`
	// MaxAverageBitRate caps the opus average bitrate in bits/second;
	// zero disables the override.
	MaxAverageBitRate int `mapstructure:"max_average_bitrate"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8888)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("rooms.max_clients", 0)
	v.SetDefault("stun_servers", []string{})
	v.SetDefault("turn_origins", []string{})
	v.SetDefault("codec_priority", []string{})
	v.SetDefault("max_average_bitrate", 0)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	for i := range cfg.TurnServers {
		if len(cfg.TurnServers[i].URLs) == 0 && cfg.TurnServers[i].URL != "" {
			cfg.TurnServers[i].URLs = []string{cfg.TurnServers[i].URL}
		}
	}
	return &cfg, nil
}
