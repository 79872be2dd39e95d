package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration: YAML file with environment
// overrides. Every value has a working default so the binary runs with no
// config file at all.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	PublicURL   string   `yaml:"public_url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	// Addr empty disables the snapshot cache.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_seconds"`
}

// DSN builds the database/sql data source string for the configured
// driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode)
	}
	return d.Path
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "./formloom.db",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			TTLSecs: 60,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FL_PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("FL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FL_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FL_DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("FL_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FL_DB_USER"); v != "" {
		cfg.Database.Username = v
	}
	if v := os.Getenv("FL_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}
