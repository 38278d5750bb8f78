// Package config provides configuration management for the darkroom
// application.
//
// Configuration is parsed from CLI flags, optionally layered over a TOML
// file named by --config. Flags given explicitly on the command line always
// win over file values. The Config struct is passed to components during
// initialization.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"github.com/hurricanerix/darkroom/internal/genai"
)

const (
	// Version is the darkroom application version
	Version = "0.1.0"

	// Default values for CLI flags
	defaultPort        = 8080
	defaultPresetDB    = "darkroom.db"
	defaultMaxUploadMB = 32
	defaultMaxSessions = 64
	defaultSessionTTL  = 30
	defaultQuality     = 92
	defaultLogLevel    = "info"

	// Validation constraints
	minPort       = 1024
	maxPort       = 65535
	minUploadMB   = 1
	maxUploadMB   = 256
	minSessions   = 1
	maxSessions   = 1024
	minSessionTTL = 1
	maxSessionTTL = 1440
	minQuality    = 1
	maxQuality    = 100
	minAITimeout  = 1
	maxAITimeout  = 600
)

var (
	// ErrInvalidPort is returned when port is out of valid range
	ErrInvalidPort = errors.New("port must be between 1024 and 65535")
	// ErrInvalidUploadLimit is returned when the upload limit is out of range
	ErrInvalidUploadLimit = errors.New("max-upload-mb must be between 1 and 256")
	// ErrInvalidMaxSessions is returned when the session cap is out of range
	ErrInvalidMaxSessions = errors.New("max-sessions must be between 1 and 1024")
	// ErrInvalidSessionTTL is returned when the idle timeout is out of range
	ErrInvalidSessionTTL = errors.New("session-ttl must be between 1 and 1440 minutes")
	// ErrInvalidQuality is returned when the JPEG quality is out of range
	ErrInvalidQuality = errors.New("export-quality must be between 1 and 100")
	// ErrInvalidAITimeout is returned when the generative timeout is out of range
	ErrInvalidAITimeout = errors.New("ai-timeout must be between 1 and 600 seconds")
	// ErrInvalidLogLevel is returned when log level is not recognized
	ErrInvalidLogLevel = errors.New("log-level must be one of: debug, info, warn, error")
	// ErrShowHelp is returned when --help flag is requested
	ErrShowHelp = errors.New("help requested")
	// ErrShowVersion is returned when --version flag is requested
	ErrShowVersion = errors.New("version requested")
)

// Config holds all configuration values for the darkroom application.
// Values are populated from CLI flags, with an optional TOML file supplying
// anything the command line leaves at its default.
type Config struct {
	// Server configuration
	Port        int `toml:"port"`
	MaxUploadMB int `toml:"max_upload_mb"`

	// Session management
	MaxSessions int `toml:"max_sessions"`
	SessionTTL  int `toml:"session_ttl_minutes"`

	// Generative service configuration
	AIURL     string `toml:"ai_url"`
	AIModel   string `toml:"ai_model"`
	AITimeout int    `toml:"ai_timeout_seconds"`

	// Storage configuration
	PresetDB string `toml:"preset_db"`

	// Export configuration
	ExportQuality int `toml:"export_quality"`

	// Logging configuration
	LogLevel string `toml:"log_level"`

	// Internal flags
	configFile  string
	showHelp    bool
	showVersion bool
}

// Parse parses CLI flags into a Config struct.
// It returns the parsed Config or an error if validation fails.
// If --help or --version is requested, it prints the output and exits.
func Parse(args []string, output io.Writer) (*Config, error) {
	c := &Config{}

	fs := flag.NewFlagSet("darkroom", flag.ContinueOnError)
	fs.SetOutput(output)

	// Server flags
	fs.IntVar(&c.Port, "port", defaultPort, "HTTP server port")
	fs.IntVar(&c.MaxUploadMB, "max-upload-mb", defaultMaxUploadMB, "Maximum upload size in MiB")

	// Session flags
	fs.IntVar(&c.MaxSessions, "max-sessions", defaultMaxSessions, "Maximum concurrent edit sessions")
	fs.IntVar(&c.SessionTTL, "session-ttl", defaultSessionTTL, "Idle session lifetime in minutes")

	// Generative service flags
	fs.StringVar(&c.AIURL, "ai-url", genai.DefaultEndpoint, "Generative service endpoint URL")
	fs.StringVar(&c.AIModel, "ai-model", genai.DefaultModel, "Generative model name")
	fs.IntVar(&c.AITimeout, "ai-timeout", genai.DefaultTimeout, "Generative request timeout in seconds")

	// Storage flags
	fs.StringVar(&c.PresetDB, "preset-db", defaultPresetDB, "Preset database path (empty = in-memory)")

	// Export flags
	fs.IntVar(&c.ExportQuality, "export-quality", defaultQuality, "Default JPEG export quality")

	// Logging flags
	fs.StringVar(&c.LogLevel, "log-level", defaultLogLevel, "Log level (debug, info, warn, error)")

	// Special flags
	fs.StringVar(&c.configFile, "config", "", "TOML configuration file")
	fs.BoolVar(&c.showHelp, "help", false, "Show help message")
	fs.BoolVar(&c.showVersion, "version", false, "Show version information")

	// Parse flags
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Handle --help
	if c.showHelp {
		printHelp(output)
		return nil, ErrShowHelp
	}

	// Handle --version
	if c.showVersion {
		printVersion(output)
		return nil, ErrShowVersion
	}

	// Layer the TOML file under explicitly set flags.
	if c.configFile != "" {
		if err := c.applyFile(fs); err != nil {
			return nil, err
		}
	}

	// Validate configuration
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// applyFile loads the TOML file and copies over every value whose flag was
// not given on the command line.
func (c *Config) applyFile(fs *flag.FlagSet) error {
	var file Config
	if _, err := toml.DecodeFile(c.configFile, &file); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", c.configFile, err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	apply := func(name string, dst *int, v int) {
		if !set[name] && v != 0 {
			*dst = v
		}
	}
	applyStr := func(name string, dst *string, v string) {
		if !set[name] && v != "" {
			*dst = v
		}
	}

	apply("port", &c.Port, file.Port)
	apply("max-upload-mb", &c.MaxUploadMB, file.MaxUploadMB)
	apply("max-sessions", &c.MaxSessions, file.MaxSessions)
	apply("session-ttl", &c.SessionTTL, file.SessionTTL)
	apply("ai-timeout", &c.AITimeout, file.AITimeout)
	apply("export-quality", &c.ExportQuality, file.ExportQuality)
	applyStr("ai-url", &c.AIURL, file.AIURL)
	applyStr("ai-model", &c.AIModel, file.AIModel)
	applyStr("preset-db", &c.PresetDB, file.PresetDB)
	applyStr("log-level", &c.LogLevel, file.LogLevel)

	return nil
}

// validate checks that all configuration values are within valid ranges
func (c *Config) validate() error {
	// Validate port
	if c.Port < minPort || c.Port > maxPort {
		return ErrInvalidPort
	}

	// Validate upload limit
	if c.MaxUploadMB < minUploadMB || c.MaxUploadMB > maxUploadMB {
		return ErrInvalidUploadLimit
	}

	// Validate session cap
	if c.MaxSessions < minSessions || c.MaxSessions > maxSessions {
		return ErrInvalidMaxSessions
	}

	// Validate idle timeout
	if c.SessionTTL < minSessionTTL || c.SessionTTL > maxSessionTTL {
		return ErrInvalidSessionTTL
	}

	// Validate export quality
	if c.ExportQuality < minQuality || c.ExportQuality > maxQuality {
		return ErrInvalidQuality
	}

	// Validate generative timeout
	if c.AITimeout < minAITimeout || c.AITimeout > maxAITimeout {
		return ErrInvalidAITimeout
	}

	// Validate log level
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// printHelp prints usage information
func printHelp(w io.Writer) {
	fmt.Fprintf(w, `darkroom - Non-destructive photo editing server

USAGE:
    darkroom [FLAGS]

FLAGS:
    --port <PORT>              HTTP server port (default: %d)
    --max-upload-mb <MIB>      Maximum upload size in MiB (default: %d)
    --max-sessions <N>         Maximum concurrent edit sessions (default: %d)
    --session-ttl <MINUTES>    Idle session lifetime (default: %d)
    --ai-url <URL>             Generative service endpoint (default: %s)
    --ai-model <MODEL>         Generative model name (default: %s)
    --ai-timeout <SECONDS>     Generative request timeout (default: %d)
    --preset-db <PATH>         Preset database path, empty = in-memory (default: %s)
    --export-quality <Q>       Default JPEG export quality (default: %d)
    --log-level <LEVEL>        Log level: debug, info, warn, error (default: %s)
    --config <PATH>            TOML configuration file
    --help                     Show this help message
    --version                  Show version information

EXAMPLES:
    # Start with defaults
    darkroom

    # Use custom port
    darkroom --port 3000

    # Keep presets in memory only
    darkroom --preset-db ""

    # Point at a remote generative service
    darkroom --ai-url http://gpu-box:8601

REQUIREMENTS:
    - generative features need the AI service running (default: %s)
`,
		defaultPort, defaultMaxUploadMB, defaultMaxSessions, defaultSessionTTL,
		genai.DefaultEndpoint, genai.DefaultModel, genai.DefaultTimeout,
		defaultPresetDB, defaultQuality, defaultLogLevel, genai.DefaultEndpoint)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "darkroom %s\n", Version)
}
