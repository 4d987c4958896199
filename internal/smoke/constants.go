package smoke

import "time"

// Defaults applied by Normalize.
const (
	DefaultTopN         = 50
	DefaultWorkers      = 8
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Tolerance for comparing floats read back over JSON.
const epsilon = 1e-6
