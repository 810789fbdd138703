package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	File    string `toml:"file"`
}

type Config struct {
	Neo4j   Neo4jConfig   `toml:"neo4j"`
	Server  ServerConfig  `toml:"server"`
	Metrics MetricsConfig `toml:"metrics"`
}

// Default is the configuration used when no file is present: a local store,
// metrics off.
func Default() *Config {
	return &Config{
		Neo4j:   Neo4jConfig{URI: "bolt://localhost:7687", User: "neo4j"},
		Server:  ServerConfig{Port: "8080"},
		Metrics: MetricsConfig{File: "performance_log.csv"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("METRICS_FILE"); v != "" {
		c.Metrics.File = v
	}
}
