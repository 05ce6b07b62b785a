package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"switchboard/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Health    HealthConfig    `yaml:"health"`
	Routing   RoutingConfig   `yaml:"routing"`
	Runs      RunsConfig      `yaml:"runs"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Providers []MCPServer     `yaml:"providers,omitempty"`
	Workers   []WorkerConfig  `yaml:"workers,omitempty"`
	Pruner    PrunerConfig    `yaml:"pruner"`
	Executor  ExecutorConfig  `yaml:"executor"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// HealthConfig holds worker health thresholds.
type HealthConfig struct {
	DegradedAt uint32        `yaml:"degraded_at"`
	DeadAt     uint32        `yaml:"dead_at"`
	Staleness  time.Duration `yaml:"staleness"`
}

// Thresholds converts the config section to domain thresholds.
func (h HealthConfig) Thresholds() domain.HealthThresholds {
	return domain.HealthThresholds{
		DegradedAt: h.DegradedAt,
		DeadAt:     h.DeadAt,
		Staleness:  h.Staleness,
	}
}

// RoutingConfig holds routing engine tuning.
type RoutingConfig struct {
	MinOracleConfidence float64 `yaml:"min_oracle_confidence"`
	FallbackFloor       float64 `yaml:"fallback_floor"`
	DefaultPersona      string  `yaml:"default_persona"`
	DefaultMode         string  `yaml:"default_mode"`
}

// RunsConfig holds run store settings.
type RunsConfig struct {
	MaxCompleted int    `yaml:"max_completed"`
	ArchivePath  string `yaml:"archive_path"` // empty disables the archive
}

// BreakerConfig holds circuit breaker settings for the classification oracle.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// OracleConfig holds classification oracle settings.
type OracleConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Region            string        `yaml:"region"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// MCPServer configures a capability provider reachable over MCP.
type MCPServer struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// WorkerConfig registers a worker at startup.
type WorkerConfig struct {
	ID       string   `yaml:"id"`
	Persona  string   `yaml:"persona"`
	Kind     string   `yaml:"kind"` // "builtin", "process", "remote"
	Command  string   `yaml:"command,omitempty"`
	Args     []string `yaml:"args,omitempty"`
	Endpoint string   `yaml:"endpoint,omitempty"`
}

// PrunerConfig holds dead-worker sweep settings.
type PrunerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
}

// ExecutorConfig holds compound plan execution settings.
type ExecutorConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	TaskTimeout   time.Duration `yaml:"task_timeout"`
}

// defaultDataDir returns the persistent data directory under
// $HOME/.switchboard. Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".switchboard")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Health: HealthConfig{
			DegradedAt: domain.DefaultDegradedAt,
			DeadAt:     domain.DefaultDeadAt,
			Staleness:  domain.DefaultStaleness,
		},
		Routing: RoutingConfig{
			MinOracleConfidence: 0.5,
			FallbackFloor:       0.2,
			DefaultPersona:      "assistant",
			DefaultMode:         "chat",
		},
		Runs: RunsConfig{
			MaxCompleted: 1000,
			ArchivePath:  filepath.Join(defaultDataDir(), "runs.db"),
		},
		Oracle: OracleConfig{
			Enabled:           false,
			Region:            "us-east-1",
			MaxTokens:         1024,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     60 * time.Second,
				Interval:    120 * time.Second,
			},
		},
		Pruner: PrunerConfig{
			Enabled:  false,
			Schedule: "*/5 * * * *",
		},
		Executor: ExecutorConfig{
			MaxConcurrent: 5,
			TaskTimeout:   120 * time.Second,
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error; defaults plus overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps SWITCHBOARD_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SWITCHBOARD_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SWITCHBOARD_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SWITCHBOARD_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SWITCHBOARD_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("SWITCHBOARD_ORACLE_ENABLED"); v == "true" {
		cfg.Oracle.Enabled = true
	} else if v == "false" {
		cfg.Oracle.Enabled = false
	}
	if v := os.Getenv("SWITCHBOARD_ORACLE_REGION"); v != "" {
		cfg.Oracle.Region = v
	}
	if v := os.Getenv("SWITCHBOARD_ORACLE_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := os.Getenv("SWITCHBOARD_ORACLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Oracle.Timeout = d
		}
	}
	if v := os.Getenv("SWITCHBOARD_RUNS_MAX_COMPLETED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Runs.MaxCompleted = n
		}
	}
	if v := os.Getenv("SWITCHBOARD_RUNS_ARCHIVE_PATH"); v != "" {
		cfg.Runs.ArchivePath = v
	}
	if v := os.Getenv("SWITCHBOARD_PRUNER_ENABLED"); v == "true" {
		cfg.Pruner.Enabled = true
	}
	if v := os.Getenv("SWITCHBOARD_PRUNER_SCHEDULE"); v != "" {
		cfg.Pruner.Schedule = v
	}
}
