package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Lobbyhub/internal/domain"
)

const EnvPrefix = "NOHUB"

type Config struct {
	TCP       TCP           `mapstructure:"tcp"`
	WebSocket WebSocket     `mapstructure:"websocket"`
	Metrics   Metrics       `mapstructure:"metrics"`
	Log       Log           `mapstructure:"log"`
	Lobbies   Lobbies       `mapstructure:"lobbies"`
	Sessions  Sessions      `mapstructure:"sessions"`
	WebRTC    WebRTC        `mapstructure:"-"`
	Games     []domain.Game `mapstructure:"-"`
}

type TCP struct {
	Host              string  `mapstructure:"host"`
	Port              int     `mapstructure:"port"`
	CommandBufferSize int     `mapstructure:"-"`
	SendQueue         int     `mapstructure:"send_queue"`
	SlowConsumer      string  `mapstructure:"slow_consumer"`
	AcceptRate        float64 `mapstructure:"accept_rate"`
	AcceptBurst       int     `mapstructure:"accept_burst"`
}

type WebSocket struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
	Secret  string `mapstructure:"secret"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Lobbies struct {
	IDLength       int  `mapstructure:"id_length"`
	EnableGameless bool `mapstructure:"enable_gameless"`
	MaxCount       int  `mapstructure:"max_count"`
	MaxPerSession  int  `mapstructure:"max_per_session"`
	MaxDataEntries int  `mapstructure:"max_data_entries"`
}

type Sessions struct {
	IDLength        int    `mapstructure:"id_length"`
	ArbitraryGameID bool   `mapstructure:"arbitrary_game_id"`
	DefaultGameID   string `mapstructure:"default_game_id"`
	MaxCount        int    `mapstructure:"max_count"`
	MaxPerAddress   int    `mapstructure:"max_per_address"`
}

type WebRTC struct {
	ICEServers []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tcp.host", "*")
	v.SetDefault("tcp.port", 9980)
	v.SetDefault("tcp.command_buffer_size", "8kb")
	v.SetDefault("tcp.send_queue", 256)
	v.SetDefault("tcp.slow_consumer", "drop")
	v.SetDefault("tcp.accept_rate", 0)
	v.SetDefault("tcp.accept_burst", 16)

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.host", "*")
	v.SetDefault("websocket.port", 9982)
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.secret", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "*")
	v.SetDefault("metrics.port", 9981)

	v.SetDefault("log.level", "info")
	v.SetDefault("games", "")

	v.SetDefault("lobbies.id_length", 8)
	v.SetDefault("lobbies.enable_gameless", true)
	v.SetDefault("lobbies.max_count", 32768)
	v.SetDefault("lobbies.max_per_session", 4)
	v.SetDefault("lobbies.max_data_entries", 128)

	v.SetDefault("sessions.id_length", 12)
	v.SetDefault("sessions.arbitrary_game_id", true)
	v.SetDefault("sessions.default_game_id", "")
	v.SetDefault("sessions.max_count", 262144)
	v.SetDefault("sessions.max_per_address", 64)

	v.SetDefault("webrtc.ice_servers", "stun:stun.l.google.com:19302")
}

// Load reads defaults, then the YAML file at path (or config/config.<CONFIG_ENV>.yaml
// when path is empty), then NOHUB_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// These two keep the historical variable names.
	_ = v.BindEnv("lobbies.enable_gameless", EnvPrefix+"_LOBBIES_WITHOUT_GAME")
	_ = v.BindEnv("sessions.default_game_id", EnvPrefix+"_LOBBIES_DEFAULT_GAME_ID")

	explicit := path != ""
	if !explicit {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Debug().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.TCP.CommandBufferSize = int(v.GetSizeInBytes("tcp.command_buffer_size"))

	games, err := parseGames(v)
	if err != nil {
		return nil, err
	}
	cfg.Games = games
	cfg.WebRTC.ICEServers = stringList(v, "webrtc.ice_servers")

	if cfg.WebSocket.Secret == "" {
		cfg.WebSocket.Secret = domain.NewID(domain.MaxIDLen)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TCP.CommandBufferSize <= 0 {
		return fmt.Errorf("tcp.command_buffer_size must be positive")
	}
	switch c.TCP.SlowConsumer {
	case "drop", "disconnect":
	default:
		return fmt.Errorf("tcp.slow_consumer must be drop or disconnect, got %q", c.TCP.SlowConsumer)
	}
	if _, err := c.Log.ZerologLevel(); err != nil {
		return err
	}
	return nil
}

// parseGames accepts either a YAML list of {id, name} or an "id[:name],..." string.
func parseGames(v *viper.Viper) ([]domain.Game, error) {
	if s, ok := v.Get("games").(string); ok {
		return ParseGames(s), nil
	}
	var games []domain.Game
	if err := v.UnmarshalKey("games", &games); err != nil {
		return nil, fmt.Errorf("failed to parse games: %w", err)
	}
	return games, nil
}

// ParseGames reads "id[:name],..." entries; an entry without a name is named after its id.
func ParseGames(s string) []domain.Game {
	var games []domain.Game
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, ok := strings.Cut(part, ":")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || name == "" {
			name = id
		}
		games = append(games, domain.Game{ID: id, Name: name})
	}
	return games
}

func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return v.GetStringSlice(key)
}

// ZerologLevel maps the configured level; "silent" disables logging.
func (l Log) ZerologLevel() (zerolog.Level, error) {
	if strings.EqualFold(l.Level, "silent") {
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// ListenAddr turns a configured host and port into a listen address; "*" binds all interfaces.
func ListenAddr(host string, port int) string {
	if host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// DialAddr is the address a local client uses to reach a listener bound to host.
func DialAddr(host string, port int) string {
	if host == "*" || host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
