package loadtest

import (
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL               string        // Base URL of the service
	Athletes              int           // Number of athletes to register
	SubmissionsPerAthlete int           // Sprint videos uploaded per athlete
	Workers               int           // Number of concurrent uploaders
	Timeout               time.Duration // HTTP request timeout
	OutputFile            string        // Report file; empty writes a timestamped name
	Verbose               bool          // Log every failed request
}

// AthleteProfile is a synthetic athlete to register.
type AthleteProfile struct {
	Name             string `json:"name"`
	Age              int    `json:"age"`
	Position         string `json:"position"`
	CompetitionLevel string `json:"competitionLevel"`
	Gender           string `json:"gender,omitempty"`
}

// Upload is one synthetic sprint video.
type Upload struct {
	AthleteID  string
	SprintTime float64
	FrameRate  float64
	Finish     int
	Size       int
}

// Outcome is the observed state of one uploaded submission.
type Outcome struct {
	SubmissionID string                   `json:"submissionId"`
	AthleteID    string                   `json:"athleteId"`
	SprintTime   float64                  `json:"sprintTime"`
	Status       model.ProcessingStatus   `json:"status"`
	Snapshot     *model.BenchmarkSnapshot `json:"benchmarkSnapshot,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	AthletesRegistered int
	ConsentsApproved   int
	UploadsSubmitted   int
	UploadsSuccessful  int
	UploadsFailed      int
	Completed          int
	Recalculated       int
	SnapshotsRetrieved int
	CohortsVerified    int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
