package loadtest

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	maxSuggestions          = 3
)
