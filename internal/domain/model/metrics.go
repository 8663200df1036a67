package model

import "math"

// Metric keys used as drill primary metrics and aggregate metric names.
const (
	MetricSprintTime                   = "sprintTime"
	MetricAccelerationTiming           = "accelerationTiming"
	MetricChangeOfDirectionMeasurement = "changeOfDirectionMeasurement"
	MetricShotTiming                   = "shotTiming"
	MetricRepetitionCount              = "repetitionCount"
	MetricMotionTrackingScore          = "motionTrackingScore"
	MetricFrameBasedDuration           = "frameBasedDuration"
	MetricErrorToleranceScore          = "errorToleranceScore"
	MetricDrillCompletionRate          = "drillCompletionRate"
	MetricConsistencyScore             = "consistencyScore"
	MetricReliabilityScore             = "reliabilityScore"
)

// Metrics is the sparse set of values produced for one submission.
// A nil field means the drill does not measure it.
type Metrics struct {
	SprintTime                   *float64 `json:"sprintTime,omitempty"`
	AccelerationTiming           *float64 `json:"accelerationTiming,omitempty"`
	ChangeOfDirectionMeasurement *float64 `json:"changeOfDirectionMeasurement,omitempty"`
	ShotTiming                   *float64 `json:"shotTiming,omitempty"`
	RepetitionCount              *int     `json:"repetitionCount,omitempty"`
	MotionTrackingScore          *float64 `json:"motionTrackingScore,omitempty"`
	FrameBasedDuration           *float64 `json:"frameBasedDuration,omitempty"`
	ErrorToleranceScore          *float64 `json:"errorToleranceScore,omitempty"`
	DrillCompletionRate          *float64 `json:"drillCompletionRate,omitempty"`
	ConsistencyScore             *float64 `json:"consistencyScore,omitempty"`
	ReliabilityScore             *float64 `json:"reliabilityScore,omitempty"`
}

// Value returns the metric named key. ok is false when the field is absent,
// the key is unknown, or the value is not finite.
func (m Metrics) Value(key string) (v float64, ok bool) {
	var p *float64
	switch key {
	case MetricSprintTime:
		p = m.SprintTime
	case MetricAccelerationTiming:
		p = m.AccelerationTiming
	case MetricChangeOfDirectionMeasurement:
		p = m.ChangeOfDirectionMeasurement
	case MetricShotTiming:
		p = m.ShotTiming
	case MetricRepetitionCount:
		if m.RepetitionCount == nil {
			return 0, false
		}
		return float64(*m.RepetitionCount), true
	case MetricMotionTrackingScore:
		p = m.MotionTrackingScore
	case MetricFrameBasedDuration:
		p = m.FrameBasedDuration
	case MetricErrorToleranceScore:
		p = m.ErrorToleranceScore
	case MetricDrillCompletionRate:
		p = m.DrillCompletionRate
	case MetricConsistencyScore:
		p = m.ConsistencyScore
	case MetricReliabilityScore:
		p = m.ReliabilityScore
	}
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// Columns maps each metric to its persisted column name.
func (m Metrics) Columns() map[string]any {
	return map[string]any{
		"sprint_time":                     m.SprintTime,
		"acceleration_timing":             m.AccelerationTiming,
		"change_of_direction_measurement": m.ChangeOfDirectionMeasurement,
		"shot_timing":                     m.ShotTiming,
		"repetition_count":                m.RepetitionCount,
		"motion_tracking_score":           m.MotionTrackingScore,
		"frame_based_duration":            m.FrameBasedDuration,
		"error_tolerance_score":           m.ErrorToleranceScore,
		"drill_completion_rate":           m.DrillCompletionRate,
		"consistency_score":               m.ConsistencyScore,
		"reliability_score":               m.ReliabilityScore,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
