package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
)

type auditStore struct {
	q Querier
}

func (s *auditStore) Create(ctx context.Context, entry core.AuditLog) (core.AuditLog, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO audit_logs (owner_id, action, entity, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.OwnerID, entry.Action, entry.Entity, entry.EntityID, entry.Detail,
		formatTimestamp(entry.CreatedAt),
	)
	if err != nil {
		return core.AuditLog{}, fmt.Errorf("insert audit log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.AuditLog{}, fmt.Errorf("audit log insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

func (s *auditStore) List(ctx context.Context, ownerID int64, limit int) ([]core.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, owner_id, action, entity, entity_id, detail, created_at
		FROM audit_logs WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []core.AuditLog
	for rows.Next() {
		var (
			e       core.AuditLog
			created string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if e.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
