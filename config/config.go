// Package config defines the yaml configuration for vivactl.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../tools/schema-generator

// EngineConfig defines how the engine process is spawned and framed.
type EngineConfig struct {
	// Executable is the engine binary. Defaults to "vivado" on PATH; can be
	// an absolute path like /tools/Xilinx/Vivado/2023.2/bin/vivado.
	Executable string `yaml:"executable,omitempty"`

	// Args replace the default interactive-mode arguments
	// (-mode tcl -nojournal -nolog). Most setups leave this unset.
	Args []string `yaml:"args,omitempty"`

	// Prompt is the idle prompt the engine prints between commands. The
	// session frames responses on it. Defaults to "Vivado%".
	Prompt string `yaml:"prompt,omitempty"`

	// StartupTimeoutSec bounds the wait for the first prompt after spawn.
	// Engine startup routinely takes 20-30 seconds. Default 120.
	StartupTimeoutSec int `yaml:"startup_timeout_sec,omitempty"`

	// CommandTimeoutSec is the default idle timeout per command: how long
	// the session waits with no new output before returning control.
	// Default 300. Flow commands override this per call.
	CommandTimeoutSec int `yaml:"command_timeout_sec,omitempty"`
}

// ResponseConfig bounds what is returned inline to callers.
type ResponseConfig struct {
	// MaxChars caps inline response content before truncation. Default 20000.
	MaxChars int `yaml:"max_chars,omitempty"`

	// ReportsDir is where full-report artifacts are written. Default
	// ~/.vivactl/reports.
	ReportsDir string `yaml:"reports_dir,omitempty"`

	// ReportMaxAgeHours ages out old report artifacts. 0 keeps them
	// forever. Default 24.
	ReportMaxAgeHours int `yaml:"report_max_age_hours,omitempty"`
}

// Config is the top-level configuration structure for vivactl.
type Config struct {
	Engine   EngineConfig   `yaml:"engine,omitempty"`
	Response ResponseConfig `yaml:"response,omitempty"`

	// LogLevel is a logrus level name (debug, info, warn, error). Default info.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Engine: EngineConfig{
			Executable:        "vivado",
			Prompt:            "Vivado%",
			StartupTimeoutSec: 120,
			CommandTimeoutSec: 300,
		},
		Response: ResponseConfig{
			MaxChars:          20000,
			ReportsDir:        filepath.Join(home, ".vivactl", "reports"),
			ReportMaxAgeHours: 24,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the conventional config file location, or "" when the
// home directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vivactl", "config.yaml")
}

// Load reads a yaml config file and merges it over the defaults. An empty
// path falls back to DefaultPath; a missing file returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
