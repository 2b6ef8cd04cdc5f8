// Package shared holds small cross-feature helpers.
package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction enumerates workflow audit actions.
type AuditAction string

const (
	// AuditSubmit marks a submit action.
	AuditSubmit AuditAction = "SUBMIT"
	// AuditApprove marks an approve action.
	AuditApprove AuditAction = "APPROVE"
	// AuditReject marks a reject action.
	AuditReject AuditAction = "REJECT"
)

// AuditLog represents a single workflow audit record.
type AuditLog struct {
	ID      int64
	Module  string
	RefID   uuid.UUID
	ActorID int64
	Action  AuditAction
	Note    string
	At      time.Time
}

// AuditRecorder persists workflow history.
type AuditRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditRecorder constructs AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{pool: pool, logger: logger}
}

// Record writes an audit entry to the database.
func (r *AuditRecorder) Record(ctx context.Context, log AuditLog) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if log.Module == "" {
		return errors.New("audit module required")
	}
	if log.ActorID == 0 {
		return errors.New("audit actor required")
	}
	if log.RefID == uuid.Nil {
		return errors.New("audit ref id required")
	}
	if log.Action == "" {
		return errors.New("audit action required")
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO workflow_audit (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil {
		r.logger.Error("record audit", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns audit entries for module/ref.
func (r *AuditRecorder) List(ctx context.Context, module string, ref uuid.UUID) ([]AuditLog, error) {
	if r == nil {
		return nil, errors.New("audit recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM workflow_audit WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = AuditAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
