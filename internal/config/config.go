// Package config loads and validates retroforge configuration from
// file, environment, and defaults.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct for retroforge.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Grouping  GroupingConfig  `mapstructure:"grouping"`
	Output    OutputConfig    `mapstructure:"output"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GroupingConfig holds the aggregation policy knobs. The window bound
// and tiebreak rule are policy, not algorithm constants; validate them
// against real conversion fixtures.
type GroupingConfig struct {
	// Window is the maximum timestamp gap for grouping revisions into
	// one commit, as a Go duration string (e.g. "5m").
	Window string `mapstructure:"window"`

	// Tiebreak selects the ordering policy for candidates ready at the
	// same timestamp: "branch-lexical" or "arrival".
	Tiebreak string `mapstructure:"tiebreak"`
}

// OutputConfig holds output surfaces.
type OutputConfig struct {
	// Journal is the path of the NDJSON commit journal. Empty disables
	// journalling.
	Journal string `mapstructure:"journal"`

	// Compress wraps the journal in an LZ4 frame.
	Compress bool `mapstructure:"compress"`

	// Report is the path of the YAML conversion report. Empty disables
	// the report file.
	Report string `mapstructure:"report"`
}

// TelemetryConfig holds the metrics scrape endpoint settings.
type TelemetryConfig struct {
	// Enabled turns the metrics endpoint on.
	Enabled bool `mapstructure:"enabled"`

	// Listen is the address the /metrics endpoint binds to.
	Listen string `mapstructure:"listen"`
}

// Tiebreak policy names accepted by grouping.tiebreak.
const (
	TiebreakBranchLexical = "branch-lexical"
	TiebreakArrival       = "arrival"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWindow indicates the grouping window is not a positive duration.
	ErrInvalidWindow = errors.New("grouping.window must be a positive duration")
	// ErrInvalidTiebreak indicates an unknown tiebreak policy name.
	ErrInvalidTiebreak = errors.New(`grouping.tiebreak must be "branch-lexical" or "arrival"`)
	// ErrMissingListen indicates telemetry is enabled without a listen address.
	ErrMissingListen = errors.New("telemetry.listen must be set when telemetry.enabled is true")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	window, err := time.ParseDuration(c.Grouping.Window)
	if err != nil || window <= 0 {
		return ErrInvalidWindow
	}

	if c.Grouping.Tiebreak != TiebreakBranchLexical && c.Grouping.Tiebreak != TiebreakArrival {
		return ErrInvalidTiebreak
	}

	if c.Telemetry.Enabled && c.Telemetry.Listen == "" {
		return ErrMissingListen
	}

	return nil
}

// WindowDuration returns the parsed grouping window. Call Validate
// first; an unparseable window yields zero.
func (c *Config) WindowDuration() time.Duration {
	window, err := time.ParseDuration(c.Grouping.Window)
	if err != nil {
		return 0
	}

	return window
}
