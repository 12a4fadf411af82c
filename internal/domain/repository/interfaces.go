package repository

import (
	"context"

	"RiskPulse/internal/domain/models"
)

// SnapshotBus fans the current snapshot out to external subscribers
// (out-of-process dashboards, recorders).
type SnapshotBus interface {
	Publish(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// AlertSink receives newly appended alert events for delivery or archival.
type AlertSink interface {
	Record(ctx context.Context, events []models.AlertEvent) error
	Close() error
}

type Metrics interface {
	RecordTick(seconds float64)
	RecordAlert(severity string)
	RecordRegime(regime string, ceiling float64)
	RecordPublish(sink string, err error)
	SetStreamClients(n int)
	RecordError(kind string)
}
