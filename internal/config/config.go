// Package config loads ai-blame configuration. The config file lives inside
// the repository's git directory (.git/ai-blame/config.json) so it is
// per-clone state and never part of tracked history. Every field has a
// default; a missing file is normal.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StateDirName is the directory under the git dir holding all ai-blame
// per-clone state (pending captures, prompt store, config).
const StateDirName = "ai-blame"

// DefaultNotesRef is the notes namespace attribution records are stored
// under. It matches the refspec configured by `ai-blame init`.
const DefaultNotesRef = "refs/notes/ai-blame"

// Config represents the complete ai-blame configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	NotesRef string `json:"notesRef" mapstructure:"notesRef"`

	Staging StagingConfig `json:"staging" mapstructure:"staging"`
	Notes   NotesConfig   `json:"notes" mapstructure:"notes"`
	Git     GitConfig     `json:"git" mapstructure:"git"`
	Prompts PromptsConfig `json:"prompts" mapstructure:"prompts"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StagingConfig controls the pending capture store
type StagingConfig struct {
	// LockTimeoutMs bounds how long append/drain waits for the staging lock
	// before treating it as stale
	LockTimeoutMs int `json:"lockTimeoutMs" mapstructure:"lockTimeoutMs"`
}

// NotesConfig controls attribution record persistence
type NotesConfig struct {
	// WriteRetries is how many times a conflicting notes ref update is retried
	WriteRetries int `json:"writeRetries" mapstructure:"writeRetries"`
	// RetryBackoffMs is the pause between note write retries
	RetryBackoffMs int `json:"retryBackoffMs" mapstructure:"retryBackoffMs"`
}

// GitConfig controls git subprocess execution
type GitConfig struct {
	// CommandTimeoutMs is the per-command timeout for git invocations
	CommandTimeoutMs int `json:"commandTimeoutMs" mapstructure:"commandTimeoutMs"`
}

// PromptsConfig controls the content-addressed prompt store
type PromptsConfig struct {
	// CompressionThresholdBytes is the body size above which prompt text is
	// zstd-compressed before storage
	CompressionThresholdBytes int `json:"compressionThresholdBytes" mapstructure:"compressionThresholdBytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		NotesRef: DefaultNotesRef,
		Staging: StagingConfig{
			LockTimeoutMs: 5000,
		},
		Notes: NotesConfig{
			WriteRetries:   3,
			RetryBackoffMs: 50,
		},
		Git: GitConfig{
			CommandTimeoutMs: 10000,
		},
		Prompts: PromptsConfig{
			CompressionThresholdBytes: 4096,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// StateDir returns the ai-blame state directory for a git dir.
func StateDir(gitDir string) string {
	return filepath.Join(gitDir, StateDirName)
}

// LoadConfig loads configuration from <gitDir>/ai-blame/config.json.
// A missing file yields the defaults; a malformed file is an error so a
// typo never silently reverts behavior to defaults. Environment variables
// prefixed AI_BLAME_ override individual keys (AI_BLAME_NOTESREF, ...).
func LoadConfig(gitDir string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("notesRef", defaults.NotesRef)
	v.SetDefault("staging.lockTimeoutMs", defaults.Staging.LockTimeoutMs)
	v.SetDefault("notes.writeRetries", defaults.Notes.WriteRetries)
	v.SetDefault("notes.retryBackoffMs", defaults.Notes.RetryBackoffMs)
	v.SetDefault("git.commandTimeoutMs", defaults.Git.CommandTimeoutMs)
	v.SetDefault("prompts.compressionThresholdBytes", defaults.Prompts.CompressionThresholdBytes)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(StateDir(gitDir))

	v.SetEnvPrefix("AI_BLAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults plus env overrides still apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <gitDir>/ai-blame/config.json
func (c *Config) Save(gitDir string) error {
	dir := StateDir(gitDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
