package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgch "RiskPulse/pkg/clickhouse"
	applogger "RiskPulse/pkg/logger"
)

// alertSchema is idempotent; ReplacingMergeTree collapses re-inserted IDs.
var alertSchema = []string{
	`CREATE TABLE IF NOT EXISTS alert_events (
		id         String,
		ts         DateTime64(3),
		severity   LowCardinality(String),
		title      String,
		detail     String,
		tags       Array(String)
	) ENGINE = ReplacingMergeTree
	ORDER BY (ts, id)`,
}

// ClickHouseAlertSink archives alert events for later timeline analysis.
type ClickHouseAlertSink struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseAlertSink(ch *pkgch.Client) *ClickHouseAlertSink {
	return &ClickHouseAlertSink{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseAlertSink) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the archive table exists.
func (s *ClickHouseAlertSink) Init(ctx context.Context) error {
	for _, stmt := range alertSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init alert schema: %w", err)
		}
	}
	return nil
}

var _ domrepo.AlertSink = (*ClickHouseAlertSink)(nil)

func (s *ClickHouseAlertSink) Record(ctx context.Context, events []models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO alert_events (id, ts, severity, title, detail, tags) VALUES ")
	args := make([]interface{}, 0, len(events)*6)
	for i, ev := range events {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args,
			ev.ID,
			ev.Timestamp.UTC().Format("2006-01-02 15:04:05.000"),
			string(ev.Severity),
			ev.Title,
			ev.Detail,
			ev.Tags,
		)
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse alert insert error",
				applogger.Int("events", len(events)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert alerts: %w", err)
	}
	if s.l != nil {
		s.l.Debug("alert batch archived",
			applogger.Int("events", len(events)),
			applogger.Duration("took_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *ClickHouseAlertSink) Close() error {
	return nil // pool owned by pkg/clickhouse client
}
