package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DISCORD_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig falls back to raw environment variables for secrets
// that are commonly supplied outside the YAML layer.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Discord.Token == "" {
		if val := os.Getenv("DISCORD_TOKEN"); val != "" {
			cfg.Discord.Token = val
		}
	}
	if cfg.Discord.ModeratorRoleID == "" {
		if val := os.Getenv("MODERATOR_ROLE_ID"); val != "" {
			cfg.Discord.ModeratorRoleID = val
		}
	}
	if cfg.Discord.ApprovedRoleID == "" {
		if val := os.Getenv("APPROVED_APPLICATION_ROLE_ID"); val != "" {
			cfg.Discord.ApprovedRoleID = val
		}
	}
	if cfg.Discord.ReviewChannelID == "" {
		if val := os.Getenv("APPLICATION_REVIEW_CHANNEL_ID"); val != "" {
			cfg.Discord.ReviewChannelID = val
		}
	}
	if cfg.Discord.StartupLogsChannelID == "" {
		if val := os.Getenv("STARTUP_LOGS_CHANNEL_ID"); val != "" {
			cfg.Discord.StartupLogsChannelID = val
		}
	}
	if cfg.Minecraft.RCON.Host == "" {
		if val := os.Getenv("MINECRAFT_RCON_HOST"); val != "" {
			cfg.Minecraft.RCON.Host = val
		}
	}
	if cfg.Minecraft.RCON.Password == "" {
		if val := os.Getenv("MINECRAFT_RCON_PASSWORD"); val != "" {
			cfg.Minecraft.RCON.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "signalbox"
	}

	if cfg.Discord.TextCommandPrefix == "" {
		cfg.Discord.TextCommandPrefix = "!"
	}

	if cfg.Minecraft.MojangAPIBaseURL == "" {
		cfg.Minecraft.MojangAPIBaseURL = "https://api.mojang.com"
	}
	if cfg.Minecraft.LookupTimeout == 0 {
		cfg.Minecraft.LookupTimeout = 10000
	}
	if cfg.Minecraft.RCON.Port == 0 {
		cfg.Minecraft.RCON.Port = 25575
	}
	if cfg.Minecraft.RCON.Timeout == 0 {
		cfg.Minecraft.RCON.Timeout = 10000
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.RemindersFile == "" {
		cfg.Storage.RemindersFile = "reminders.json"
	}
	if cfg.Storage.ApplicationsFile == "" {
		cfg.Storage.ApplicationsFile = "applications.json"
	}
	if cfg.Storage.InvitesFile == "" {
		cfg.Storage.InvitesFile = "invites.json"
	}

	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 3600000
	}

	if cfg.Staging.TTL == 0 {
		cfg.Staging.TTL = 900000 // abandoned form entries expire after 15 minutes
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9102"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}

	return nil
}

// RemindersPath returns the absolute location of the reminders store file.
func (c *Config) RemindersPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.RemindersFile)
}

// ApplicationsPath returns the absolute location of the applications store file.
func (c *Config) ApplicationsPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.ApplicationsFile)
}

// InvitesPath returns the absolute location of the invites store file.
func (c *Config) InvitesPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.InvitesFile)
}
