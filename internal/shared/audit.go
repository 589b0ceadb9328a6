package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry describes one dashboard write forwarded to the backend.
type AuditEntry struct {
	ID       uuid.UUID
	Actor    string
	Role     Role
	Action   string
	Resource string
	Outcome  string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder stores audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// PGAuditLogger writes records into dashboard_audit_logs.
type PGAuditLogger struct {
	pool *pgxpool.Pool
}

// NewPGAuditLogger returns a new PGAuditLogger.
func NewPGAuditLogger(pool *pgxpool.Pool) *PGAuditLogger {
	return &PGAuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *PGAuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := validateAudit(&entry); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO dashboard_audit_logs (id, actor, role, action, resource, outcome, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Actor, string(entry.Role), entry.Action, entry.Resource, entry.Outcome, metaJSON, entry.At)
	return err
}

// SlogAuditLogger writes audit entries to the application log.
type SlogAuditLogger struct {
	Logger *slog.Logger
}

// Record logs the entry at info level.
func (l SlogAuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if err := validateAudit(&entry); err != nil {
		return err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "audit",
		slog.String("id", entry.ID.String()),
		slog.String("actor", entry.Actor),
		slog.String("role", entry.Role.String()),
		slog.String("action", entry.Action),
		slog.String("resource", entry.Resource),
		slog.String("outcome", entry.Outcome),
		slog.Any("meta", entry.Meta),
	)
	return nil
}

func validateAudit(entry *AuditEntry) error {
	if entry.Action == "" || entry.Resource == "" {
		return errors.New("audit entry requires action and resource")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	return nil
}
