package cmd

// Exit codes for the restfile CLI
const (
	// ExitSuccess indicates every request completed
	ExitSuccess = 0

	// ExitRequestFailure indicates one or more requests failed to complete
	ExitRequestFailure = 1

	// ExitThresholdFailure indicates a stress run missed its thresholds
	ExitThresholdFailure = 2
)
