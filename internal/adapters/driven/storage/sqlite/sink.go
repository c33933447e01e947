// Package sqlite implements the alert sink on an embedded SQLite
// database. Sessions, their step traces and their alerts survive
// restarts and feed the alerts/trace CLI surfaces.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/helical-labs/medwatch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
)

var _ driven.AlertSink = (*Sink)(nil)

// Sink is a SQLite-backed alert sink. Publishing is keyed by session ID:
// re-publishing a session replaces its rows, so at-least-once delivery
// never duplicates.
type Sink struct {
	db   *sql.DB
	path string
}

// NewSink opens (or creates) the sink database under dataDir.
// If dataDir is empty, defaults to ~/.medwatch/data/alerts.db.
func NewSink(dataDir string) (*Sink, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".medwatch", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "alerts.db")

	// WAL mode so the CLI can read while the monitor writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Sink{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}

// Publish records a terminal session with its trace and alerts in one
// transaction.
func (s *Sink) Publish(ctx context.Context, session *domain.ReasoningSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session requires an ID", domain.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var safetyScore, summary any
	if session.Result != nil {
		safetyScore = session.Result.SafetyScore
		summary = session.Result.Summary
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, trigger_item_id, trigger_source, trigger_kind, trigger_content,
			status, failure_reason, safety_score, summary, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			failure_reason = excluded.failure_reason,
			safety_score = excluded.safety_score,
			summary = excluded.summary,
			ended_at = excluded.ended_at
	`, session.ID, session.Trigger.ItemID, session.Trigger.SourceID, session.Trigger.Kind.String(),
		session.Trigger.Content, session.Status.String(), session.FailureReason,
		safetyScore, summary, session.StartedAt.UTC(), session.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	// Replace dependents wholesale; simpler than diffing.
	if _, err := tx.ExecContext(ctx, "DELETE FROM steps WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("clearing steps: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM alerts WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("clearing alerts: %w", err)
	}

	for _, step := range session.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO steps (session_id, number, kind, tool, input, output, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, session.ID, step.Number, step.Kind.String(), step.Tool, step.Input, step.Output, step.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("saving step %d: %w", step.Number, err)
		}
	}

	if session.Result != nil {
		for i, alert := range session.Result.Alerts {
			entitiesJSON, err := json.Marshal(alert.AffectedEntities)
			if err != nil {
				return fmt.Errorf("marshalling entities: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO alerts (session_id, position, severity, title, description, entities)
				VALUES (?, ?, ?, ?, ?, ?)
			`, session.ID, i, alert.Severity.String(), alert.Title, alert.Description, string(entitiesJSON))
			if err != nil {
				return fmt.Errorf("saving alert %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// Recent returns the most recent terminal sessions, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]domain.ReasoningSession, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions ORDER BY ended_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	sessions := make([]domain.ReasoningSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// Get retrieves an archived session by ID, including its trace and alerts.
func (s *Sink) Get(ctx context.Context, sessionID string) (*domain.ReasoningSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, trigger_item_id, trigger_source, trigger_kind, trigger_content,
			status, failure_reason, safety_score, summary, started_at, ended_at
		FROM sessions WHERE id = ?
	`, sessionID)

	var session domain.ReasoningSession
	var triggerKind, status string
	var safetyScore sql.NullInt64
	var summary sql.NullString
	err := row.Scan(&session.ID, &session.Trigger.ItemID, &session.Trigger.SourceID,
		&triggerKind, &session.Trigger.Content, &status, &session.FailureReason,
		&safetyScore, &summary, &session.StartedAt, &session.EndedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.Trigger.Kind = parseChangeKind(triggerKind)
	session.Status = parseStatus(status)
	session.Trigger.ObservedAt = session.StartedAt

	if err := s.loadSteps(ctx, &session); err != nil {
		return nil, err
	}

	if session.Status == domain.SessionCompleted {
		decision := &domain.Decision{Summary: summary.String}
		if safetyScore.Valid {
			decision.SafetyScore = int(safetyScore.Int64)
		}
		if err := s.loadAlerts(ctx, sessionID, decision); err != nil {
			return nil, err
		}
		session.Result = decision
	}

	return &session, nil
}

func (s *Sink) loadSteps(ctx context.Context, session *domain.ReasoningSession) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, kind, tool, input, output, timestamp
		FROM steps WHERE session_id = ? ORDER BY number
	`, session.ID)
	if err != nil {
		return fmt.Errorf("listing steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step domain.ReasoningStep
		var kind string
		if err := rows.Scan(&step.Number, &kind, &step.Tool, &step.Input, &step.Output, &step.Timestamp); err != nil {
			return fmt.Errorf("scanning step: %w", err)
		}
		step.Kind = parseStepKind(kind)
		session.Steps = append(session.Steps, step)
	}
	return rows.Err()
}

func (s *Sink) loadAlerts(ctx context.Context, sessionID string, decision *domain.Decision) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, title, description, entities
		FROM alerts WHERE session_id = ? ORDER BY position
	`, sessionID)
	if err != nil {
		return fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alert domain.Alert
		var severity, entitiesJSON string
		if err := rows.Scan(&severity, &alert.Title, &alert.Description, &entitiesJSON); err != nil {
			return fmt.Errorf("scanning alert: %w", err)
		}
		alert.Severity = domain.ParseSeverity(severity)
		if err := json.Unmarshal([]byte(entitiesJSON), &alert.AffectedEntities); err != nil {
			return fmt.Errorf("unmarshalling entities: %w", err)
		}
		decision.Alerts = append(decision.Alerts, alert)
	}
	return rows.Err()
}

// migrate runs all pending migrations.
func (s *Sink) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func parseChangeKind(label string) domain.ChangeKind {
	switch label {
	case domain.ChangeNew.String():
		return domain.ChangeNew
	case domain.ChangeUpdated.String():
		return domain.ChangeUpdated
	case domain.ChangeRemoved.String():
		return domain.ChangeRemoved
	default:
		return domain.ChangeNew
	}
}

func parseStatus(label string) domain.SessionStatus {
	switch label {
	case domain.SessionCompleted.String():
		return domain.SessionCompleted
	case domain.SessionFailed.String():
		return domain.SessionFailed
	case domain.SessionAborted.String():
		return domain.SessionAborted
	default:
		return domain.SessionRunning
	}
}

func parseStepKind(label string) domain.StepKind {
	switch label {
	case domain.StepToolCall.String():
		return domain.StepToolCall
	case domain.StepDecision.String():
		return domain.StepDecision
	default:
		return domain.StepRetrieve
	}
}
