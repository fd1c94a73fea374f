// Package postgres provides PostgreSQL storage for the audit trail.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hatif03/algorand-mcp/pkg/audit"
)

const (
	auditTable           = "audit_events"
	defaultRetentionDays = 30
	defaultQueryCapacity = 50
	maxQueryCapacity     = 1000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// auditColumns lists columns in insert and select order.
var auditColumns = []string{
	"id", "timestamp", "duration_ms", "request_id", "session_id",
	"tool_name", "toolkit_kind", "toolkit_name", "parameters",
	"success", "error_message",
}

// Config configures the PostgreSQL audit store.
type Config struct {
	RetentionDays int
}

// Store implements audit.Logger using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// New creates a new PostgreSQL audit store. The schema is managed by the
// migrate package.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Store{
		db:            db,
		retentionDays: cfg.RetentionDays,
	}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event audit.Event) error {
	var params []byte
	if event.Parameters != nil {
		b, err := json.Marshal(event.Parameters)
		if err != nil {
			return fmt.Errorf("encoding audit parameters: %w", err)
		}
		params = b
	}

	query, args, err := psq.Insert(auditTable).
		Columns(auditColumns...).
		Values(
			event.ID,
			event.Timestamp,
			event.DurationMS,
			event.RequestID,
			event.SessionID,
			event.ToolName,
			event.ToolkitKind,
			event.ToolkitName,
			params,
			event.Success,
			event.ErrorMessage,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// applyFilter adds filter conditions to a SELECT builder.
func applyFilter(qb sq.SelectBuilder, filter audit.QueryFilter) sq.SelectBuilder {
	if filter.SessionID != "" {
		qb = qb.Where(sq.Eq{"session_id": filter.SessionID})
	}
	if filter.ToolName != "" {
		qb = qb.Where(sq.Eq{"tool_name": filter.ToolName})
	}
	if filter.Success != nil {
		qb = qb.Where(sq.Eq{"success": *filter.Success})
	}
	if filter.Since != nil {
		qb = qb.Where(sq.GtOrEq{"timestamp": *filter.Since})
	}
	return qb
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	qb := applyFilter(psq.Select(auditColumns...).From(auditTable), filter).
		OrderBy("timestamp DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultQueryCapacity
	if filter.Limit > 0 && filter.Limit <= maxQueryCapacity {
		allocCap = filter.Limit
	}
	events := make([]audit.Event, 0, allocCap)

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var event audit.Event
	var params []byte

	err := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&event.DurationMS,
		&event.RequestID,
		&event.SessionID,
		&event.ToolName,
		&event.ToolkitKind,
		&event.ToolkitName,
		&params,
		&event.Success,
		&event.ErrorMessage,
	)
	if err != nil {
		return event, fmt.Errorf("scanning audit row: %w", err)
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &event.Parameters); err != nil {
			return event, fmt.Errorf("decoding audit parameters: %w", err)
		}
	}
	return event, nil
}

// Cleanup removes events older than the retention period.
func (s *Store) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	query, args, err := psq.Delete(auditTable).
		Where(sq.Lt{"timestamp": cutoff}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit cleanup: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cleaning up audit events: %w", err)
	}
	return nil
}

// StartCleanupRoutine deletes expired events every interval until Close.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Cleanup(ctx); err != nil && ctx.Err() == nil {
					slog.Warn("audit: cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup routine, if running. The caller owns the
// database handle.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}

// Verify interface compliance.
var _ audit.Logger = (*Store)(nil)
