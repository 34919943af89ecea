package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Minecraft MinecraftConfig `mapstructure:"minecraft"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Staging   StagingConfig   `mapstructure:"staging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// DiscordConfig holds the gateway token and the guild surface the bot serves.
type DiscordConfig struct {
	Token                string `mapstructure:"token"`
	GuildID              string `mapstructure:"guild_id"`
	TextCommandPrefix    string `mapstructure:"text_command_prefix"`
	ModeratorRoleID      string `mapstructure:"moderator_role_id"`
	ApprovedRoleID       string `mapstructure:"approved_role_id"`
	ReviewChannelID      string `mapstructure:"review_channel_id"`
	StartupLogsChannelID string `mapstructure:"startup_logs_channel_id"`
	JoinLogsChannelID    string `mapstructure:"join_logs_channel_id"`
}

// MinecraftConfig holds the Mojang API and RCON side-channel settings.
type MinecraftConfig struct {
	MojangAPIBaseURL string     `mapstructure:"mojang_api_base_url"`
	LookupTimeout    int        `mapstructure:"lookup_timeout"` // milliseconds
	RCON             RCONConfig `mapstructure:"rcon"`
}

type RCONConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// Address returns the host:port pair for the RCON dialer.
func (r RCONConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Configured reports whether the side channel has usable credentials.
func (r RCONConfig) Configured() bool {
	return r.Host != "" && r.Password != ""
}

// StorageConfig holds the flat-file store locations.
type StorageConfig struct {
	DataDir          string `mapstructure:"data_dir"`
	RemindersFile    string `mapstructure:"reminders_file"`
	ApplicationsFile string `mapstructure:"applications_file"`
	InvitesFile      string `mapstructure:"invites_file"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// StagingConfig bounds the in-memory form staging map.
type StagingConfig struct {
	TTL int `mapstructure:"ttl"` // milliseconds
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
