package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Athlete is the subject of submissions. Cohort attributes may be null.
type Athlete struct {
	ID                    string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name                  string     `gorm:"not null" json:"name"`
	Age                   *int       `gorm:"index" json:"age,omitempty"`
	Position              *string    `json:"position,omitempty"`
	CompetitionLevel      *string    `json:"competitionLevel,omitempty"`
	Gender                *string    `json:"gender,omitempty"`
	AnonymizeForBenchmark bool       `gorm:"not null;default:false" json:"anonymizeForBenchmark"`
	ParentConsentVerified bool       `gorm:"not null;default:false" json:"parentConsentVerified"`
	DeletedAt             *time.Time `gorm:"index" json:"deletedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// DrillDefinition is a catalog entry naming the primary metric and its polarity.
type DrillDefinition struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug             string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name             string    `gorm:"not null" json:"name"`
	Sport            string    `json:"sport"`
	Description      string    `json:"description"`
	Guidelines       string    `json:"guidelines"`
	MetricPrimaryKey string    `gorm:"not null" json:"metricPrimaryKey"`
	LowerIsBetter    bool      `gorm:"not null" json:"lowerIsBetter"`
	IsActive         bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Submission is one uploaded drill recording and its processing state.
type Submission struct {
	ID                  string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AthleteID           string            `gorm:"index;not null;type:varchar(36)" json:"athleteId"`
	Athlete             *Athlete          `gorm:"foreignKey:AthleteID" json:"athlete,omitempty"`
	DrillDefinitionID   string            `gorm:"index;not null;type:varchar(36)" json:"drillDefinitionId"`
	DrillDefinition     *DrillDefinition  `gorm:"foreignKey:DrillDefinitionID" json:"drillDefinition,omitempty"`
	DrillType           string            `gorm:"index;not null" json:"drillType"`
	RecordingDate       time.Time         `json:"recordingDate"`
	Location            string            `json:"location"`
	FrameRate           *float64          `json:"frameRate,omitempty"`
	StartFrame          *int              `json:"startFrame,omitempty"`
	FinishFrame         *int              `json:"finishFrame,omitempty"`
	RepetitionHint      *int              `json:"repetitionHint,omitempty"`
	FileName            string            `json:"fileName"`
	FileSize            int64             `json:"fileSize"`
	MimeType            string            `json:"mimeType"`
	FileURL             *string           `json:"fileUrl,omitempty"`
	StorageProvider     *string           `json:"storageProvider,omitempty"`
	StorageKey          *string           `json:"storageKey,omitempty"`
	VideoHash           string            `json:"videoHash"`
	CompressionStatus   CompressionStatus `gorm:"type:varchar(16)" json:"compressionStatus"`
	VideoExpiresAt      *time.Time        `gorm:"index" json:"videoExpiresAt,omitempty"`
	VideoDeletedAt      *time.Time        `json:"videoDeletedAt,omitempty"`
	VideoPurgeError     *string           `json:"videoPurgeError,omitempty"`
	RetainVideoForAudit bool              `gorm:"not null;default:false" json:"retainVideoForAudit"`
	UploadProgress      int               `gorm:"not null;default:0" json:"uploadProgress"`
	ProcessingStatus    ProcessingStatus  `gorm:"type:varchar(16);index;not null" json:"processingStatus"`
	ProcessingAttempts  int               `gorm:"not null;default:0" json:"processingAttempts"`
	LastError           *string           `json:"lastError,omitempty"`
	Metadata            datatypes.JSONMap `json:"metadata,omitempty"`
	QueuedAt            time.Time         `gorm:"index" json:"queuedAt"`
	StartedAt           *time.Time        `json:"startedAt,omitempty"`
	CompletedAt         *time.Time        `json:"completedAt,omitempty"`
	CreatedAt           time.Time         `json:"submittedAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`

	MetricResult      *MetricResult      `gorm:"foreignKey:SubmissionID" json:"metricResult,omitempty"`
	BenchmarkSnapshot *BenchmarkSnapshot `gorm:"foreignKey:SubmissionID" json:"benchmarkSnapshot,omitempty"`
	ProcessingLogs    []ProcessingLog    `gorm:"foreignKey:SubmissionID" json:"processingLogs,omitempty"`
}

// MetricResult holds the extracted metrics of one submission.
type MetricResult struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubmissionID    string    `gorm:"uniqueIndex;not null;type:varchar(36)" json:"submissionId"`
	MetricVersion   string    `gorm:"not null" json:"metricVersion"`
	Metrics         `gorm:"embedded"`
	NormalizedScore *float64  `json:"normalizedScore,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Distribution summarises a cohort's primary-metric values.
type Distribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// BenchmarkSnapshot is the per-submission view of where it stands in its cohort.
type BenchmarkSnapshot struct {
	ID              string                           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AthleteID       string                           `gorm:"index;not null;type:varchar(36)" json:"athleteId"`
	SubmissionID    string                           `gorm:"uniqueIndex;not null;type:varchar(36)" json:"submissionId"`
	CohortKey       string                           `gorm:"index;not null" json:"cohortKey"`
	Percentile      float64                          `json:"percentile"`
	RelativeRank    int                              `json:"relativeRank"`
	NormalizedScore float64                          `json:"normalizedScore"`
	Distribution    datatypes.JSONType[Distribution] `json:"distribution"`
	IsAnonymized    bool                             `json:"isAnonymized"`
	CreatedAt       time.Time                        `json:"createdAt"`
	UpdatedAt       time.Time                        `json:"updatedAt"`
}

// BenchmarkAggregate is the cohort-level summary keyed by cohort, drill and metric.
type BenchmarkAggregate struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CohortKey         string    `gorm:"uniqueIndex:idx_benchmark_aggregate_key;not null" json:"cohortKey"`
	DrillDefinitionID string    `gorm:"uniqueIndex:idx_benchmark_aggregate_key;not null;type:varchar(36)" json:"drillDefinitionId"`
	MetricName        string    `gorm:"uniqueIndex:idx_benchmark_aggregate_key;not null" json:"metricName"`
	SampleSize        int       `json:"sampleSize"`
	Mean              float64   `json:"mean"`
	StdDev            float64   `json:"stdDev"`
	P50               float64   `json:"p50"`
	P90               float64   `json:"p90"`
	LastRecalculated  time.Time `json:"lastRecalculated"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ProcessingLog is an append-only record of one processing attempt.
type ProcessingLog struct {
	ID           string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubmissionID string           `gorm:"index;not null;type:varchar(36)" json:"submissionId"`
	Status       ProcessingStatus `gorm:"type:varchar(16);not null" json:"status"`
	Message      string           `json:"message"`
	Attempt      int              `json:"attempt"`
	DurationMs   *int64           `json:"durationMs,omitempty"`
	CreatedAt    time.Time        `gorm:"index" json:"createdAt"`
}

// SystemLog is an append-only operational log entry.
type SystemLog struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Level     string            `gorm:"type:varchar(8);not null" json:"level"`
	Category  string            `gorm:"index;not null" json:"category"`
	Message   string            `json:"message"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	LatencyMs *int64            `json:"latencyMs,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"createdAt"`
}

// ModelVersion records an extraction model release; at most one is active.
type ModelVersion struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Version     string     `gorm:"uniqueIndex;not null" json:"version"`
	IsActive    bool       `gorm:"index;not null;default:false" json:"isActive"`
	Notes       string     `json:"notes"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ManualOverride is an audit record of an admin intervention on a submission.
type ManualOverride struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubmissionID string            `gorm:"index;not null;type:varchar(36)" json:"submissionId"`
	AdminID      string            `gorm:"not null" json:"adminId"`
	Action       string            `gorm:"not null" json:"action"`
	Notes        string            `json:"notes"`
	Payload      datatypes.JSONMap `json:"payload,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// BeforeCreate assigns an id when none is set.
func (a *Athlete) BeforeCreate(*gorm.DB) error { newID(&a.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (d *DrillDefinition) BeforeCreate(*gorm.DB) error { newID(&d.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (s *Submission) BeforeCreate(*gorm.DB) error { newID(&s.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (m *MetricResult) BeforeCreate(*gorm.DB) error { newID(&m.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (b *BenchmarkSnapshot) BeforeCreate(*gorm.DB) error { newID(&b.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (b *BenchmarkAggregate) BeforeCreate(*gorm.DB) error { newID(&b.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (l *ProcessingLog) BeforeCreate(*gorm.DB) error { newID(&l.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (l *SystemLog) BeforeCreate(*gorm.DB) error { newID(&l.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (v *ModelVersion) BeforeCreate(*gorm.DB) error { newID(&v.ID); return nil }

// BeforeCreate assigns an id when none is set.
func (o *ManualOverride) BeforeCreate(*gorm.DB) error { newID(&o.ID); return nil }
