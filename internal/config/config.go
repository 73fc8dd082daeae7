// Package config resolves tool-wide settings from config files and
// environment variables. Precedence, highest first: SNAPTOOL_* environment,
// snaptool.toml, then the YAML config locations.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// UpdateBehavior is the configured policy for writing snapshot updates.
type UpdateBehavior string

const (
	// UpdateAuto writes pending files locally and nothing on CI.
	UpdateAuto UpdateBehavior = "auto"
	// UpdateAlways updates accepted snapshots in place.
	UpdateAlways UpdateBehavior = "always"
	// UpdateUnseen accepts brand-new snapshots in place and writes pending
	// files for mismatches.
	UpdateUnseen UpdateBehavior = "unseen"
	// UpdateNew always writes pending files.
	UpdateNew UpdateBehavior = "new"
	// UpdateNo never writes anything.
	UpdateNo UpdateBehavior = "no"
)

// OutputMode controls what a failing assertion prints.
type OutputMode string

const (
	OutputDiff    OutputMode = "diff"
	OutputSummary OutputMode = "summary"
	OutputMinimal OutputMode = "minimal"
	OutputNone    OutputMode = "none"
)

// Decision is the resolved action for one snapshot write.
type Decision uint8

const (
	// WriteInPlace overwrites the accepted snapshot directly.
	WriteInPlace Decision = iota
	// WritePending records a pending artifact for review.
	WritePending
	// WriteNothing suppresses all writes.
	WriteNothing
)

// ToolConfig is the merged tool configuration.
type ToolConfig struct {
	Behavior BehaviorConfig `mapstructure:"behavior" toml:"behavior"`
	Review   ReviewConfig   `mapstructure:"review" toml:"review"`
	Test     TestConfig     `mapstructure:"test" toml:"test"`
}

// BehaviorConfig holds assertion-time policy.
type BehaviorConfig struct {
	Update           string `mapstructure:"update" toml:"update"`
	Output           string `mapstructure:"output" toml:"output"`
	ForceUpdate      bool   `mapstructure:"force_update_snapshots" toml:"force_update_snapshots"`
	RequireFullMatch bool   `mapstructure:"require_full_match" toml:"require_full_match"`
	ForcePass        bool   `mapstructure:"force_pass" toml:"force_pass"`
	PendingRoot      string `mapstructure:"pending_root" toml:"pending_root"`
	GlobFilter       string `mapstructure:"glob_filter" toml:"glob_filter"`
}

// ReviewConfig holds review traversal options.
type ReviewConfig struct {
	IncludeHidden  bool     `mapstructure:"include_hidden" toml:"include_hidden"`
	IncludeIgnored bool     `mapstructure:"include_ignored" toml:"include_ignored"`
	Extensions     []string `mapstructure:"extensions" toml:"extensions"`
}

// TestConfig holds options for the test subcommand.
type TestConfig struct {
	Args []string `mapstructure:"args" toml:"args"`
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Default returns the configuration used when no file is present.
func Default() *ToolConfig {
	return &ToolConfig{
		Behavior: BehaviorConfig{
			Update: string(UpdateAuto),
			Output: string(OutputDiff),
		},
		Review: ReviewConfig{
			Extensions: []string{"snap"},
		},
	}
}

// yamlLocations are the YAML config files probed under the workspace root,
// first hit wins.
var yamlLocations = []string{
	"snaptool.yaml",
	".snaptool.yaml",
	filepath.Join(".config", "snaptool.yaml"),
}

// Load reads the tool configuration for a workspace.
func Load(workspaceRoot string) (*ToolConfig, error) {
	cfg := Default()
	if err := loadYAML(workspaceRoot, cfg); err != nil {
		return nil, err
	}
	tomlPath := filepath.Join(workspaceRoot, "snaptool.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, &ConfigError{Field: "snaptool.toml", Message: err.Error()}
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(workspaceRoot string, cfg *ToolConfig) error {
	for _, loc := range yamlLocations {
		path := filepath.Join(workspaceRoot, loc)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return &ConfigError{Field: loc, Message: err.Error()}
		}
		if err := v.Unmarshal(cfg); err != nil {
			return &ConfigError{Field: loc, Message: err.Error()}
		}
		return nil
	}
	return nil
}

func applyEnv(cfg *ToolConfig) {
	if v := os.Getenv("SNAPTOOL_UPDATE"); v != "" {
		cfg.Behavior.Update = v
	}
	if v := os.Getenv("SNAPTOOL_OUTPUT"); v != "" {
		cfg.Behavior.Output = v
	}
	if v := os.Getenv("SNAPTOOL_FORCE_UPDATE_SNAPSHOTS"); v != "" {
		cfg.Behavior.ForceUpdate = isTruthy(v)
	}
	if v := os.Getenv("SNAPTOOL_REQUIRE_FULL_MATCH"); v != "" {
		cfg.Behavior.RequireFullMatch = isTruthy(v)
	}
	if v := os.Getenv("SNAPTOOL_FORCE_PASS"); v != "" {
		cfg.Behavior.ForcePass = isTruthy(v)
	}
	if v := os.Getenv("SNAPTOOL_PENDING_ROOT"); v != "" {
		cfg.Behavior.PendingRoot = v
	}
	if v := os.Getenv("SNAPTOOL_GLOB_FILTER"); v != "" {
		cfg.Behavior.GlobFilter = v
	}
}

func isTruthy(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return v == "yes" || v == "on"
	}
	return b
}

// Validate checks enum-valued settings.
func (c *ToolConfig) Validate() error {
	switch UpdateBehavior(c.Behavior.Update) {
	case UpdateAuto, UpdateAlways, UpdateUnseen, UpdateNew, UpdateNo:
	default:
		return &ConfigError{Field: "behavior.update", Message: "unknown update behavior " + c.Behavior.Update}
	}
	switch OutputMode(c.Behavior.Output) {
	case OutputDiff, OutputSummary, OutputMinimal, OutputNone:
	default:
		return &ConfigError{Field: "behavior.output", Message: "unknown output mode " + c.Behavior.Output}
	}
	return nil
}

// Update returns the configured behavior.
func (c *ToolConfig) Update() UpdateBehavior { return UpdateBehavior(c.Behavior.Update) }

// Output returns the configured output mode.
func (c *ToolConfig) Output() OutputMode { return OutputMode(c.Behavior.Output) }

// IsCI reports whether the process runs under a CI environment.
func IsCI() bool {
	return isTruthy(os.Getenv("CI")) || os.Getenv("TF_BUILD") != ""
}

// Decide resolves what a mismatching (or new) assertion writes. unseen is
// true when no accepted snapshot exists yet.
func (c *ToolConfig) Decide(unseen bool) Decision {
	switch c.Update() {
	case UpdateAlways:
		return WriteInPlace
	case UpdateAuto:
		if IsCI() {
			return WriteNothing
		}
		return WritePending
	case UpdateUnseen:
		if unseen {
			return WriteInPlace
		}
		return WritePending
	case UpdateNew:
		return WritePending
	default:
		return WriteNothing
	}
}
