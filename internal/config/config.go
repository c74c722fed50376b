package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dkeye/tabletalk/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrNoDomain   = errors.New("hosts.domain is required")
	ErrBadBosh    = errors.New("bosh must be an absolute http(s) or ws(s) url")
	ErrBadLogMode = errors.New("unknown log level")
)

type Hosts struct {
	Domain string `mapstructure:"domain"`
	MUC    string `mapstructure:"muc"`
}

type P2P struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`

	// Signaling, mirrors the hosted conference deployment.
	Hosts      Hosts  `mapstructure:"hosts"`
	Bosh       string `mapstructure:"bosh"`
	ClientNode string `mapstructure:"client_node"`
	P2P        P2P    `mapstructure:"p2p"`

	ICEServers []string      `mapstructure:"ice_servers"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	Room        string `mapstructure:"room"`
	DisplayName string `mapstructure:"display_name"`
	AutoCapture bool   `mapstructure:"auto_capture"`

	StatusAddr string `mapstructure:"status_addr"`
	RecordDir  string `mapstructure:"record_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("hosts.domain", "tabletalk.anthonybau.com")
	v.SetDefault("hosts.muc", "")
	v.SetDefault("bosh", "https://tabletalk.anthonybau.com/http-bind")
	v.SetDefault("client_node", "https://jitsi.org/jitsi-meet")
	v.SetDefault("p2p.enabled", false)
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ping_period", "54s")
	v.SetDefault("room", "")
	v.SetDefault("display_name", "")
	v.SetDefault("auto_capture", true)
	v.SetDefault("record_dir", "")
	v.SetDefault("status_addr", "127.0.0.1:8088")
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

	v.SetEnvPrefix("TABLETALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Str("domain", cfg.Hosts.Domain).
		Str("bosh", cfg.Bosh).
		Bool("p2p", cfg.P2P.Enabled).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Hosts.Domain == "" {
		return ErrNoDomain
	}
	u, err := url.Parse(c.Bosh)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: %q", ErrBadBosh, c.Bosh)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: %q", ErrBadBosh, c.Bosh)
	}
	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrBadLogMode, c.LogLevel)
	}
	return nil
}

// MUCDomain is the room namespace, defaulting to conference.<domain>.
func (c *Config) MUCDomain() string {
	if c.Hosts.MUC != "" {
		return c.Hosts.MUC
	}
	return "conference." + c.Hosts.Domain
}

// SignalURL is the websocket endpoint derived from the bridging URL.
func (c *Config) SignalURL() string {
	u, err := url.Parse(c.Bosh)
	if err != nil {
		return c.Bosh
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

// ConnectionOptions is the read-only view handed to the session.
func (c *Config) ConnectionOptions() core.ConnectionOptions {
	node := c.ClientNode
	if node == "" {
		node = "tabletalk-" + uuid.NewString()
	}
	return core.ConnectionOptions{
		Domain:     c.Hosts.Domain,
		MUC:        c.MUCDomain(),
		Endpoint:   c.SignalURL(),
		ClientNode: node,
		P2P:        c.P2P.Enabled,
	}
}
