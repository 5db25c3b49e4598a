package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orbitlearn/student-portal-api/internal/models"
)

// AttendanceRepository provides database access to attendance markings.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListBySessionIDs returns every marking the student has for the given
// sessions. An empty id list short-circuits to no rows.
func (r *AttendanceRepository) ListBySessionIDs(ctx context.Context, studentID string, sessionIDs []string) ([]models.AttendanceRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT id, class_session_id, student_id, status, recorded_at FROM attendance WHERE student_id = ? AND class_session_id IN (?)`, studentID, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	query = r.db.Rebind(query)

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance by sessions: %w", err)
	}
	return records, nil
}

// Upsert writes one marking for a (session, student) pair. A second write for
// the same pair updates the status in place; the unique constraint on the
// pair makes duplicate rows impossible regardless of delivery retries.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	const query = `INSERT INTO attendance (id, class_session_id, student_id, status, recorded_at)
        VALUES (:id, :class_session_id, :student_id, :status, :recorded_at)
        ON CONFLICT (class_session_id, student_id) DO UPDATE SET status = EXCLUDED.status, recorded_at = EXCLUDED.recorded_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// RecentHistory returns the newest markings for a student joined with their
// sessions, most recent first.
func (r *AttendanceRepository) RecentHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceHistoryEntry, error) {
	if limit <= 0 {
		limit = 12
	}

	const query = `SELECT a.id, a.class_session_id, a.student_id, a.status, a.recorded_at,
        s.course_name, s.level, s.date, s.start_time
        FROM attendance a JOIN class_sessions s ON s.id = a.class_session_id
        WHERE a.student_id = $1 ORDER BY a.recorded_at DESC LIMIT $2`

	var entries []models.AttendanceHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID, limit); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return entries, nil
}
