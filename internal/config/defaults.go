package config

// Default configuration values.
const (
	// DefaultGroupingWindow is the default grouping window.
	DefaultGroupingWindow = "5m"

	// DefaultGroupingTiebreak is the default same-timestamp ordering policy.
	DefaultGroupingTiebreak = TiebreakBranchLexical

	// DefaultOutputJournal is the default journal path (empty = disabled).
	DefaultOutputJournal = ""

	// DefaultOutputCompress disables journal compression by default.
	DefaultOutputCompress = false

	// DefaultOutputReport is the default report path (empty = disabled).
	DefaultOutputReport = ""

	// DefaultTelemetryEnabled disables the metrics endpoint by default.
	DefaultTelemetryEnabled = false

	// DefaultTelemetryListen is the default metrics listen address.
	DefaultTelemetryListen = "127.0.0.1:9167"
)
