package engine

import (
	"time"

	"github.com/google/uuid"

	"RiskPulse/internal/domain/models"
)

// alertCapacity bounds the alert log; the oldest entries are silently dropped.
const alertCapacity = 200

// pushAlert prepends an event so the newest alert is always at index 0.
func (e *Engine) pushAlert(now time.Time, sev models.Severity, title, detail string, tags ...string) {
	ev := models.AlertEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Severity:  sev,
		Title:     title,
		Detail:    detail,
		Tags:      tags,
	}
	e.alerts = append(e.alerts, models.AlertEvent{})
	copy(e.alerts[1:], e.alerts)
	e.alerts[0] = ev
	if len(e.alerts) > alertCapacity {
		e.alerts = e.alerts[:alertCapacity]
	}
}
