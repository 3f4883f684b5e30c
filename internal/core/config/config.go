package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultAnswerTemplate = `This is a simulated answer to "{{{question}}}".{{#has_files}} It is based on {{{files}}}.{{/has_files}} Connect a response backend to get real answers.`

const (
	BackendSimulated = "simulated"
	BackendLocal     = "local"

	ResponderStub   = "stub"
	ResponderOpenAI = "openai"
)

type Config struct {
	Backend         string        // simulated or local
	LibraryDir      string        // Where the local backend stores uploaded files
	Tick            time.Duration // Simulated progress tick
	ProgressStep    int           // Simulated progress increment per tick
	ProcessingDelay time.Duration // Simulated processing time

	Responder       string
	ResponseDelay   time.Duration // Stub responder delay
	ResponseTimeout time.Duration
	ResponseRetries int
	AnswerTemplate  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SpeechCommand   []string // Dictation command, voice input disabled when empty
	StrictSelection bool     // Reject files outside the supported extensions

	LogLevel string
	LogFile  string
}

type tomlConfig struct {
	Backend         string   `toml:"backend"`
	LibraryDir      string   `toml:"library_dir"`
	Tick            duration `toml:"tick"`
	ProgressStep    int      `toml:"progress_step"`
	ProcessingDelay duration `toml:"processing_delay"`

	Responder       string   `toml:"responder"`
	ResponseDelay   duration `toml:"response_delay"`
	ResponseTimeout duration `toml:"response_timeout"`
	ResponseRetries *int     `toml:"response_retries"`
	AnswerTemplate  string   `toml:"answer_template"`

	OpenAIAPIKey  string `toml:"openai_api_key"`
	OpenAIBaseURL string `toml:"openai_base_url"`
	OpenAIModel   string `toml:"openai_model"`

	SpeechCommand   []string `toml:"speech_command"`
	StrictSelection bool     `toml:"strict_selection"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// duration lets TOML carry values like "300ms" or "1.5s"
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// Dir returns ~/.config/docchat
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".config", "docchat")
}

// Default returns the built-in configuration
func Default() *Config {
	dir := Dir()
	return &Config{
		Backend:         BackendSimulated,
		LibraryDir:      filepath.Join(dir, "library"),
		Tick:            300 * time.Millisecond,
		ProgressStep:    10,
		ProcessingDelay: 1500 * time.Millisecond,
		Responder:       ResponderStub,
		ResponseDelay:   time.Second,
		ResponseTimeout: 60 * time.Second,
		ResponseRetries: 1,
		AnswerTemplate:  DefaultAnswerTemplate,
		OpenAIModel:     "gpt-4o-mini",
		LogLevel:        "info",
		LogFile:         filepath.Join(dir, "docchat.log"),
	}
}

// Load reads config from ~/.config/docchat/config.toml, using defaults when absent
func Load() (*Config, error) {
	path := filepath.Join(Dir(), "config.toml")
	if _, err := os.Stat(path); err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads config from an explicit path
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.merge(tc)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSimulated, BackendLocal:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Responder {
	case ResponderStub, ResponderOpenAI:
	default:
		return fmt.Errorf("unknown responder %q", c.Responder)
	}
	if c.ProgressStep <= 0 || c.ProgressStep > 100 {
		return fmt.Errorf("progress_step must be between 1 and 100, got %d", c.ProgressStep)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}
	if c.ResponseRetries < 0 {
		return fmt.Errorf("response_retries must not be negative")
	}
	return nil
}

func (c *Config) merge(tc tomlConfig) {
	if tc.Backend != "" {
		c.Backend = strings.ToLower(tc.Backend)
	}
	if tc.LibraryDir != "" {
		c.LibraryDir = expandHome(tc.LibraryDir)
	}
	if tc.Tick.Duration > 0 {
		c.Tick = tc.Tick.Duration
	}
	if tc.ProgressStep != 0 {
		c.ProgressStep = tc.ProgressStep
	}
	if tc.ProcessingDelay.Duration > 0 {
		c.ProcessingDelay = tc.ProcessingDelay.Duration
	}
	if tc.Responder != "" {
		c.Responder = strings.ToLower(tc.Responder)
	}
	if tc.ResponseDelay.Duration > 0 {
		c.ResponseDelay = tc.ResponseDelay.Duration
	}
	if tc.ResponseTimeout.Duration > 0 {
		c.ResponseTimeout = tc.ResponseTimeout.Duration
	}
	if tc.ResponseRetries != nil {
		c.ResponseRetries = *tc.ResponseRetries
	}
	if tc.AnswerTemplate != "" {
		c.AnswerTemplate = tc.AnswerTemplate
	}
	if tc.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = tc.OpenAIAPIKey
	}
	if tc.OpenAIBaseURL != "" {
		c.OpenAIBaseURL = tc.OpenAIBaseURL
	}
	if tc.OpenAIModel != "" {
		c.OpenAIModel = tc.OpenAIModel
	}
	if len(tc.SpeechCommand) > 0 {
		c.SpeechCommand = tc.SpeechCommand
	}
	c.StrictSelection = tc.StrictSelection
	if tc.LogLevel != "" {
		c.LogLevel = tc.LogLevel
	}
	if tc.LogFile != "" {
		c.LogFile = expandHome(tc.LogFile)
	}
}

// Environment only fills values the file left empty
func (c *Config) applyEnv() {
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
