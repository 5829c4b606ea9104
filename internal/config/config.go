// Package config loads the server configuration with Viper from a YAML file
// plus HEARTH_* environment overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name is the game name shown in the connect banner.
	Name string `mapstructure:"name"`
	// MOTD is an optional message shown after a successful login.
	MOTD string `mapstructure:"motd"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds Telnet acceptor and session settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// IdleTimeout is the duration without input after which a session is disconnected.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// WrapWidth is the terminal column width outbound text is wrapped to.
	WrapWidth int `mapstructure:"wrap_width"`
	// OutboxSize is the number of pending outbound messages a session may buffer
	// before it is considered too slow and disconnected.
	OutboxSize int `mapstructure:"outbox_size"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// StatsConfig is a strength/defense/agility triple.
type StatsConfig struct {
	Strength int `mapstructure:"strength"`
	Defense  int `mapstructure:"defense"`
	Agility  int `mapstructure:"agility"`
}

// PlayerConfig holds the starting values for newly created players.
type PlayerConfig struct {
	MaxHP         int           `mapstructure:"max_hp"`
	Stats         StatsConfig   `mapstructure:"stats"`
	ThinkInterval time.Duration `mapstructure:"think_interval"`
}

// RegenConfig controls out-of-combat player HP regeneration.
type RegenConfig struct {
	// StartDelay is how long after the last damage regeneration may begin.
	StartDelay time.Duration `mapstructure:"start_delay"`
	// ContinueDelay is the minimum time between two regeneration ticks.
	ContinueDelay time.Duration `mapstructure:"continue_delay"`
	// Percent of max HP restored per regeneration tick.
	Percent int `mapstructure:"percent"`
}

// AttackConfig controls the player auto-attack cadence.
type AttackConfig struct {
	BaseInterval time.Duration `mapstructure:"base_interval"`
	MinInterval  time.Duration `mapstructure:"min_interval"`
	MaxInterval  time.Duration `mapstructure:"max_interval"`
}

// AggroConfig controls enemy aggro accounting.
type AggroConfig struct {
	// Increment is added to an attacker's score each time it damages an enemy.
	Increment int `mapstructure:"increment"`
	// Decay is subtracted from every score on each enemy think.
	Decay int `mapstructure:"decay"`
}

// LevelConfig is one row of the level table. Row i describes reaching level i+2:
// XP is the experience threshold, the remaining fields the increments granted.
type LevelConfig struct {
	XP       int `mapstructure:"xp"`
	MaxHP    int `mapstructure:"max_hp"`
	Strength int `mapstructure:"strength"`
	Defense  int `mapstructure:"defense"`
	Agility  int `mapstructure:"agility"`
}

// GameConfig holds world content locations and gameplay tuning.
type GameConfig struct {
	// WorldDir is the directory of world YAML files (rooms, templates, placements).
	WorldDir string `mapstructure:"world_dir"`
	// ScriptDir is the directory of Lua behavior scripts; empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// StartRoom overrides the world's start room when non-empty.
	StartRoom string `mapstructure:"start_room"`
	// Admins lists player names granted admin commands at login.
	Admins []string `mapstructure:"admins"`
	// Seed seeds the game RNG; 0 uses a cryptographic source.
	Seed   int64         `mapstructure:"seed"`
	Player PlayerConfig  `mapstructure:"player"`
	Regen  RegenConfig   `mapstructure:"regen"`
	Attack AttackConfig  `mapstructure:"attack"`
	Aggro  AggroConfig   `mapstructure:"aggro"`
	Levels []LevelConfig `mapstructure:"levels"`
}

// PersistenceConfig selects and tunes the snapshot store.
type PersistenceConfig struct {
	// Backend is one of "file", "postgres" or "none".
	Backend string `mapstructure:"backend"`
	// Path is the snapshot file used by the "file" backend.
	Path string `mapstructure:"path"`
	// Interval is the time between periodic snapshot saves.
	Interval time.Duration `mapstructure:"interval"`
}

// ManagementConfig holds the management endpoint settings.
type ManagementConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// Backlog is the number of feed events kept for replay to new subscribers.
	Backlog int `mapstructure:"backlog"`
}

// HTTPAddr returns the "host:port" address of the management HTTP server.
func (m ManagementConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", m.HTTPHost, m.HTTPPort)
}

// GRPCAddr returns the "host:port" address of the management gRPC server.
func (m ManagementConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", m.GRPCHost, m.GRPCPort)
}

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Telnet      TelnetConfig      `mapstructure:"telnet"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Game        GameConfig        `mapstructure:"game"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Management  ManagementConfig  `mapstructure:"management"`
}

// problems collects every violation found by Validate.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) port(key string, v, lowest int) {
	if v < lowest || v > 65535 {
		p.addf("%s must be %d-65535, got %d", key, lowest, v)
	}
}

func (p *problems) oneOf(key, v string, allowed ...string) {
	if !slices.Contains(allowed, v) {
		p.addf("%s must be one of [%s], got %q", key, strings.Join(allowed, ", "), v)
	}
}

// Validate reports every violated invariant in one error. Database settings
// are checked only for the postgres backend and management ports only when
// management is enabled.
func (c Config) Validate() error {
	var p problems
	if c.Server.Name == "" {
		p.addf("server.name must not be empty")
	}
	if c.Persistence.Backend == "postgres" {
		c.Database.check(&p)
	}
	c.Telnet.check(&p)
	p.oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	p.oneOf("logging.format", c.Logging.Format, "json", "console")
	c.Game.check(&p)
	c.Persistence.check(&p)
	if c.Management.Enabled {
		c.Management.check(&p)
	}
	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(p, "; "))
	}
	return nil
}

func (d DatabaseConfig) check(p *problems) {
	for _, f := range [...]struct{ key, v string }{{"host", d.Host}, {"user", d.User}, {"name", d.Name}} {
		if f.v == "" {
			p.addf("database.%s must not be empty", f.key)
		}
	}
	p.port("database.port", d.Port, 1)
	p.oneOf("database.sslmode", d.SSLMode, "disable", "require", "verify-ca", "verify-full")
	switch {
	case d.MaxConns < 1:
		p.addf("database.max_conns must be >= 1, got %d", d.MaxConns)
	case d.MinConns < 0:
		p.addf("database.min_conns must be >= 0, got %d", d.MinConns)
	case d.MinConns > d.MaxConns:
		p.addf("database.min_conns (%d) must not exceed database.max_conns (%d)", d.MinConns, d.MaxConns)
	}
}

func (t TelnetConfig) check(p *problems) {
	p.port("telnet.port", t.Port, 0)
	if t.IdleTimeout <= 0 {
		p.addf("telnet.idle_timeout must be positive")
	}
	if t.WriteTimeout < 0 {
		p.addf("telnet.write_timeout must not be negative")
	}
	if t.WrapWidth < 20 {
		p.addf("telnet.wrap_width must be >= 20, got %d", t.WrapWidth)
	}
	if t.OutboxSize < 1 {
		p.addf("telnet.outbox_size must be >= 1, got %d", t.OutboxSize)
	}
}

func (g GameConfig) check(p *problems) {
	if g.WorldDir == "" {
		p.addf("game.world_dir must not be empty")
	}
	if g.Player.MaxHP < 1 {
		p.addf("game.player.max_hp must be >= 1, got %d", g.Player.MaxHP)
	}
	if g.Player.ThinkInterval <= 0 {
		p.addf("game.player.think_interval must be positive")
	}
	if g.Regen.Percent < 1 || g.Regen.Percent > 100 {
		p.addf("game.regen.percent must be 1-100, got %d", g.Regen.Percent)
	}
	if g.Regen.StartDelay < 0 || g.Regen.ContinueDelay < 0 {
		p.addf("game.regen delays must not be negative")
	}
	a := g.Attack
	if min(a.MinInterval, a.BaseInterval, a.MaxInterval) <= 0 {
		p.addf("game.attack intervals must be positive")
	} else if a.MinInterval > a.MaxInterval {
		p.addf("game.attack.min_interval must not exceed game.attack.max_interval")
	}
	if g.Aggro.Increment < 1 {
		p.addf("game.aggro.increment must be >= 1, got %d", g.Aggro.Increment)
	}
	if g.Aggro.Decay < 0 {
		p.addf("game.aggro.decay must be >= 0, got %d", g.Aggro.Decay)
	}
	prev := 0
	for i, lvl := range g.Levels {
		if lvl.XP <= prev {
			p.addf("game.levels[%d].xp must be greater than %d, got %d", i, prev, lvl.XP)
		}
		prev = lvl.XP
	}
}

func (s PersistenceConfig) check(p *problems) {
	p.oneOf("persistence.backend", s.Backend, "file", "postgres", "none")
	if s.Backend == "file" && s.Path == "" {
		p.addf("persistence.path must not be empty for the file backend")
	}
	if s.Backend != "none" && s.Interval <= 0 {
		p.addf("persistence.interval must be positive")
	}
}

func (m ManagementConfig) check(p *problems) {
	p.port("management.http_port", m.HTTPPort, 0)
	p.port("management.grpc_port", m.GRPCPort, 0)
	if m.Backlog < 0 {
		p.addf("management.backlog must not be negative")
	}
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with HEARTH_ prefix
	v.SetEnvPrefix("HEARTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "Hearth")
	v.SetDefault("server.motd", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hearth")
	v.SetDefault("database.password", "hearth")
	v.SetDefault("database.name", "hearth")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 6006)
	v.SetDefault("telnet.idle_timeout", "5m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.wrap_width", 80)
	v.SetDefault("telnet.outbox_size", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.world_dir", "content/world")
	v.SetDefault("game.script_dir", "content/scripts")
	v.SetDefault("game.player.max_hp", 20)
	v.SetDefault("game.player.stats.strength", 5)
	v.SetDefault("game.player.stats.defense", 5)
	v.SetDefault("game.player.stats.agility", 5)
	v.SetDefault("game.player.think_interval", "1s")
	v.SetDefault("game.regen.start_delay", "10s")
	v.SetDefault("game.regen.continue_delay", "3s")
	v.SetDefault("game.regen.percent", 10)
	v.SetDefault("game.attack.base_interval", "2s")
	v.SetDefault("game.attack.min_interval", "750ms")
	v.SetDefault("game.attack.max_interval", "5s")
	v.SetDefault("game.aggro.increment", 10)
	v.SetDefault("game.aggro.decay", 1)

	v.SetDefault("persistence.backend", "file")
	v.SetDefault("persistence.path", "data/world.yaml")
	v.SetDefault("persistence.interval", "5m")

	v.SetDefault("management.enabled", true)
	v.SetDefault("management.http_host", "127.0.0.1")
	v.SetDefault("management.http_port", 6080)
	v.SetDefault("management.grpc_host", "127.0.0.1")
	v.SetDefault("management.grpc_port", 6081)
	v.SetDefault("management.backlog", 200)
}
