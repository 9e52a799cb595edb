package config

import (
	"birthdaybot/logger"
	"birthdaybot/scheduler"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
	Greeting string         `yaml:"greeting"`
}

// DiscordConfig holds the bot credentials and the guild it serves.
type DiscordConfig struct {
	Token          string `yaml:"token"`
	ChannelID      string `yaml:"channel_id"`
	ClientID       string `yaml:"client_id"`
	GuildID        string `yaml:"guild_id"`
	BirthdayRoleID string `yaml:"birthday_role_id"`
}

// ScheduleConfig controls when the daily birthday scan fires.
type ScheduleConfig struct {
	Timezone      string        `yaml:"timezone"`
	Time          string        `yaml:"time"`
	RunOnStartup  bool          `yaml:"run_on_startup"`
	CheckInterval time.Duration `yaml:"check_interval"`
	SendInterval  time.Duration `yaml:"send_interval"`
}

// DatabaseConfig locates the SQLite birthday database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the health-check listener.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Timezone:      "UTC",
			Time:          "21:00",
			CheckInterval: time.Minute,
			SendInterval:  time.Second,
		},
		Database: DatabaseConfig{Path: "birthdays.db"},
		Server:   ServerConfig{Port: 3000, AllowedOrigins: []string{"*"}},
		Log:      logger.Config{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Greeting: scheduler.DefaultGreeting,
	}
}

// Load builds the configuration from defaults, then the YAML file (if
// any), then the environment. envFile is loaded into the environment
// first without overriding variables that are already set; a missing
// envFile is not an error.
func Load(configFile string, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	c := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	envOverride(&c.Discord.Token, "BOT_TOKEN")
	envOverride(&c.Discord.ChannelID, "CHANNEL_ID")
	envOverride(&c.Discord.ClientID, "CLIENT_ID")
	envOverride(&c.Discord.GuildID, "GUILD_ID")
	envOverride(&c.Discord.BirthdayRoleID, "BIRTHDAY_ROLE_ID")
	envOverride(&c.Schedule.Timezone, "TIMEZONE")
	envOverride(&c.Schedule.Time, "CHECK_TIME")
	envOverrideBool(&c.Schedule.RunOnStartup, "RUN_ON_STARTUP")
	envOverrideDuration(&c.Schedule.SendInterval, "SEND_INTERVAL")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Greeting, "GREETING")

	return c, nil
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.Discord.ChannelID == "" {
		missing = append(missing, "CHANNEL_ID")
	}
	if c.Discord.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.Discord.GuildID == "" {
		missing = append(missing, "GUILD_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, _, err := c.Schedule.Resolve(); err != nil {
		return err
	}
	return nil
}

// Resolve returns the reference timezone and the daily trigger time as
// an offset from midnight.
func (s ScheduleConfig) Resolve() (*time.Location, time.Duration, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	at, err := time.Parse("15:04", s.Time)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid check time %q, want HH:MM: %w", s.Time, err)
	}

	return loc, time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute, nil
}

// Addr is the health-check listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
