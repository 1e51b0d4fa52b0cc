package smoke

import "time"

// Defaults applied by the CLI.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultNumQueries = 500
	DefaultTimeout    = 10 * time.Second
	DefaultReadyWait  = 30 * time.Second
)

const (
	readyPollInterval    = 250 * time.Millisecond
	maxResponseBytes     = 32 << 20
	maxPageLimit         = 50
	percentageMultiplier = 100
	directoryPermission  = 0o750
	maxLoggedFailures    = 20
)
