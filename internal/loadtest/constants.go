package loadtest

// Runner configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	ProcessingBatchLimit    = 50
	MaxProcessingRounds     = 20
	MinorAge                = 18
	SprintFrameRate         = 60.0
	syntheticVideoBytes     = 4096
	videoContentType        = "video/mp4"
)
