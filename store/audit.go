package store

import (
	"context"
	"fmt"
	"time"
)

type (
	// AuditEvent records who did what to which target.
	AuditEvent struct {
		Actor      string
		Action     string
		Target     string
		RecordedAt time.Time
	}
)

// AppendAudit stores one audit event.
func (s *S) AppendAudit(ctx context.Context, actor, action, target string) error {
	_, err := s.db.ExecContext(ctx, `insert into audit_events(actor, action, target)
		values (?, ?, ?)`, actor, action, target)
	if err != nil {
		return fmt.Errorf("unable to append audit event, cause %w", err)
	}
	return nil
}

// RecentAudit returns up to limit events, newest first.
func (s *S) RecentAudit(ctx context.Context, limit int) ([]AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `select actor, action, target, recorded_at
		from audit_events order by event_id desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list audit events, cause %w", err)
	}
	defer rows.Close()
	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		err = rows.Scan(&ev.Actor, &ev.Action, &ev.Target, &ev.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan audit event, cause %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
