package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "smechannel/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "SME"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Ingestion IngestionConfig `yaml:"ingestion" envconfig:"INGESTION"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:""`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/smechannel.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// IngestionConfig controls file uploads and startup data
type IngestionConfig struct {
	MaxUploadBytes    int64  `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	LoadSampleOnStart bool   `yaml:"load_sample_on_start" envconfig:"LOAD_SAMPLE_ON_START" default:"false"`
	InitialFile       string `yaml:"initial_file" envconfig:"INITIAL_FILE"`
	ScanDataDir       bool   `yaml:"scan_data_dir" envconfig:"SCAN_DATA_DIR" default:"false"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"smechannel"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR" default:"data/exports"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load reads .env (if present), SME_* environment variables and the first
// config.yaml found in the usual locations. Environment values win over the
// file; the file wins over built-in defaults.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apierrors.NewConfigError("config validation failed", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether the variable for key was set explicitly
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeConfigs overlays file values onto the env config wherever the
// corresponding variable was not set explicitly.
func mergeConfigs(file, env Config) Config {
	pickString := func(key string, dst *string, v string) {
		if v != "" && !envSet(key) {
			*dst = v
		}
	}
	pickInt := func(key string, dst *int, v int) {
		if v != 0 && !envSet(key) {
			*dst = v
		}
	}
	pickDuration := func(key string, dst *time.Duration, v time.Duration) {
		if v != 0 && !envSet(key) {
			*dst = v
		}
	}

	// Server config
	pickString("SERVER_HOST", &env.Server.Host, file.Server.Host)
	pickInt("SERVER_PORT", &env.Server.Port, file.Server.Port)
	pickDuration("SERVER_READ_TIMEOUT", &env.Server.ReadTimeout, file.Server.ReadTimeout)
	pickDuration("SERVER_WRITE_TIMEOUT", &env.Server.WriteTimeout, file.Server.WriteTimeout)
	pickDuration("SERVER_IDLE_TIMEOUT", &env.Server.IdleTimeout, file.Server.IdleTimeout)
	pickInt("SERVER_MAX_HEADER_BYTES", &env.Server.MaxHeaderBytes, file.Server.MaxHeaderBytes)
	pickDuration("SERVER_SHUTDOWN_TIMEOUT", &env.Server.ShutdownTimeout, file.Server.ShutdownTimeout)
	pickDuration("SERVER_REQUEST_TIMEOUT", &env.Server.RequestTimeout, file.Server.RequestTimeout)

	// Security config
	if len(file.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		env.Security.AllowedOrigins = file.Security.AllowedOrigins
	}
	if file.Security.RateLimit.RPS != 0 && !envSet("SECURITY_RATE_LIMIT_RPS") {
		env.Security.RateLimit.RPS = file.Security.RateLimit.RPS
	}
	pickInt("SECURITY_RATE_LIMIT_BURST", &env.Security.RateLimit.Burst, file.Security.RateLimit.Burst)

	// Logging config
	pickString("LOGGING_LEVEL", &env.Logging.Level, file.Logging.Level)
	pickString("LOGGING_OUTPUT", &env.Logging.Output, file.Logging.Output)
	pickString("LOGGING_FILE_PATH", &env.Logging.FilePath, file.Logging.FilePath)
	if file.Logging.Development && !envSet("LOGGING_DEVELOPMENT") {
		env.Logging.Development = true
	}

	// Ingestion config
	if file.Ingestion.MaxUploadBytes != 0 && !envSet("INGESTION_MAX_UPLOAD_BYTES") {
		env.Ingestion.MaxUploadBytes = file.Ingestion.MaxUploadBytes
	}
	if file.Ingestion.LoadSampleOnStart && !envSet("INGESTION_LOAD_SAMPLE_ON_START") {
		env.Ingestion.LoadSampleOnStart = true
	}
	if file.Ingestion.ScanDataDir && !envSet("INGESTION_SCAN_DATA_DIR") {
		env.Ingestion.ScanDataDir = true
	}
	pickString("INGESTION_INITIAL_FILE", &env.Ingestion.InitialFile, file.Ingestion.InitialFile)

	// Telemetry config
	pickString("TELEMETRY_SERVICE_NAME", &env.Telemetry.ServiceName, file.Telemetry.ServiceName)
	pickString("TELEMETRY_TRACE_EXPORTER", &env.Telemetry.TraceExporter, file.Telemetry.TraceExporter)
	pickString("TELEMETRY_METRIC_EXPORTER", &env.Telemetry.MetricExporter, file.Telemetry.MetricExporter)

	// Paths config
	pickString("PATHS_BASE_DIR", &env.Paths.BaseDir, file.Paths.BaseDir)
	pickString("PATHS_DATA_DIR", &env.Paths.DataDir, file.Paths.DataDir)
	pickString("PATHS_EXPORT_DIR", &env.Paths.ExportDir, file.Paths.ExportDir)
	pickString("PATHS_LOGS_DIR", &env.Paths.LogsDir, file.Paths.LogsDir)

	// WebSocket config
	pickInt("WEBSOCKET_READ_BUFFER_SIZE", &env.WebSocket.ReadBufferSize, file.WebSocket.ReadBufferSize)
	pickInt("WEBSOCKET_WRITE_BUFFER_SIZE", &env.WebSocket.WriteBufferSize, file.WebSocket.WriteBufferSize)
	pickDuration("WEBSOCKET_PING_PERIOD", &env.WebSocket.PingPeriod, file.WebSocket.PingPeriod)
	pickDuration("WEBSOCKET_PONG_WAIT", &env.WebSocket.PongWait, file.WebSocket.PongWait)

	return env
}

// resolvePaths anchors relative directories at BaseDir, which defaults to
// the directory holding the executable.
func (c *Config) resolvePaths() error {
	if c.Paths.BaseDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return err
		}
		c.Paths.BaseDir = dir
	}

	c.Paths.DataDir = c.resolve(c.Paths.DataDir)
	c.Paths.ExportDir = c.resolve(c.Paths.ExportDir)
	c.Paths.LogsDir = c.resolve(c.Paths.LogsDir)
	c.Logging.FilePath = c.resolve(c.Logging.FilePath)
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.BaseDir, p)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Ingestion.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	// JSON is the only supported log format
	c.Logging.Format = "json"

	switch strings.ToLower(c.Telemetry.TraceExporter) {
	case "stdout", "none":
	default:
		return fmt.Errorf("invalid trace exporter %q", c.Telemetry.TraceExporter)
	}

	switch strings.ToLower(c.Telemetry.MetricExporter) {
	case "prometheus", "none":
	default:
		return fmt.Errorf("invalid metric exporter %q", c.Telemetry.MetricExporter)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/smechannel.log",
		},
		Ingestion: IngestionConfig{
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir,
			ExportDir: DefaultExportDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
