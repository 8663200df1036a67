// Package retention decides when uploaded videos are deleted and performs
// the deletion against the storage provider that holds them.
package retention

import "time"

// DefaultRetentionHours applies when the configured window is not positive.
const DefaultRetentionHours = 24

// Policy holds the retention settings.
type Policy struct {
	RetentionHours     int
	KeepFailedForDebug bool
}

// NewPolicy normalizes hours to DefaultRetentionHours when it is not positive.
func NewPolicy(hours int, keepFailedForDebug bool) Policy {
	if hours <= 0 {
		hours = DefaultRetentionHours
	}
	return Policy{RetentionHours: hours, KeepFailedForDebug: keepFailedForDebug}
}

// Window returns the retention duration.
func (p Policy) Window() time.Duration {
	hours := p.RetentionHours
	if hours <= 0 {
		hours = DefaultRetentionHours
	}
	return time.Duration(hours) * time.Hour
}

// ExpiryDate returns the instant after which a video uploaded at now may be
// swept. It is always strictly after now.
func (p Policy) ExpiryDate(now time.Time) time.Time {
	return now.Add(p.Window())
}

// ShouldPurgeOnTerminalFailure reports whether a terminally failed
// submission's video is deleted. Audit retention always wins.
func (p Policy) ShouldPurgeOnTerminalFailure(retainForAudit bool) bool {
	return !retainForAudit && !p.KeepFailedForDebug
}
