package models

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWatch    Severity = "watch"
	SeverityCritical Severity = "critical"
)

// AlertEvent records one notable state transition. The alert log keeps the
// newest event at index 0 and is truncated to a fixed capacity.
type AlertEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}
