// Package config loads and validates the proxy's own settings
// (default.toml, §6) with BurntSushi/toml, the way the teacher's config
// package loads its GhostConfig/SeedNodeConfig documents.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	AdminPort      int    `toml:"admin_port"`
	MaxConnections int    `toml:"max_connections"`
	TimeoutMS      int64  `toml:"timeout_ms"`
}

type ProtocolsConfig struct {
	LibraryPath string   `toml:"library_path"`
	AutoLoad    bool     `toml:"auto_load"`
	Enabled     []string `toml:"enabled"`
}

type SecurityConfig struct {
	TLSEnabled bool   `toml:"tls_enabled"`
	CertFile   string `toml:"cert_file"`
	KeyFile    string `toml:"key_file"`
	JWTSecret  string `toml:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Format string   `toml:"format"`
	Output []string `toml:"output"`
}

type MetricsConfig struct {
	Enabled           bool   `toml:"enabled"`
	Endpoint          string `toml:"endpoint"`
	CollectIntervalS  int    `toml:"collect_interval_s"`
}

type CircuitBreakerConfig struct {
	Enabled            bool `toml:"enabled"`
	FailureThreshold   int  `toml:"failure_threshold"`
	RecoveryTimeoutS   int  `toml:"recovery_timeout_s"`
	HalfOpenMaxCalls   int  `toml:"half_open_max_calls"`
}

// Config is the parsed default.toml document (§6).
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Protocols      ProtocolsConfig      `toml:"protocols"`
	Security       SecurityConfig       `toml:"security"`
	Logging        LoggingConfig        `toml:"logging"`
	Metrics        MetricsConfig        `toml:"metrics"`
	CircuitBreaker CircuitBreakerConfig `toml:"circuit_breaker"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and validates path, applying defaults for anything left
// unset and expanding ${ENV_VAR} references in [security].jwt_secret.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	cfg.Security.JWTSecret = expandEnv(cfg.Security.JWTSecret)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AdminPort == 0 {
		cfg.Server.AdminPort = 4001
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = 1000
	}
	if cfg.Server.TimeoutMS == 0 {
		cfg.Server.TimeoutMS = 30000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if len(cfg.Logging.Output) == 0 {
		cfg.Logging.Output = []string{"stdout"}
	}
	if cfg.Metrics.CollectIntervalS == 0 {
		cfg.Metrics.CollectIntervalS = 15
	}
	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = 50
	}
	if cfg.CircuitBreaker.RecoveryTimeoutS == 0 {
		cfg.CircuitBreaker.RecoveryTimeoutS = 60
	}
	if cfg.CircuitBreaker.HalfOpenMaxCalls == 0 {
		cfg.CircuitBreaker.HalfOpenMaxCalls = 1
	}
}

func expandEnv(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if resolved, ok := os.LookupEnv(name); ok {
			return resolved
		}
		return match
	})
}

// Validate checks the parts of Config that defaults can't paper over.
func Validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Server.AdminPort <= 0 || cfg.Server.AdminPort > 65535 {
		return fmt.Errorf("config: server.admin_port out of range: %d", cfg.Server.AdminPort)
	}
	if cfg.Security.TLSEnabled {
		if strings.TrimSpace(cfg.Security.CertFile) == "" || strings.TrimSpace(cfg.Security.KeyFile) == "" {
			return fmt.Errorf("config: security.tls_enabled requires cert_file and key_file")
		}
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("config: logging.level invalid: %s", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config: logging.format invalid: %s", cfg.Logging.Format)
	}
	return nil
}
