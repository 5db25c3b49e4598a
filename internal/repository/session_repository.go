package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/orbitlearn/student-portal-api/internal/models"
)

// SessionRepository provides read access to scheduled class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, course_name, level, date, start_time, meet_link, coach, created_at`

// ListByCourse returns every session for a course title and level, ordered by
// date then start time. The title comparison is case-insensitive, the level
// comparison exact.
func (r *SessionRepository) ListByCourse(ctx context.Context, courseName, level string) ([]models.ClassSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM class_sessions WHERE course_name ILIKE $1 AND level = $2 ORDER BY date ASC, start_time ASC`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, courseName, level); err != nil {
		return nil, fmt.Errorf("list sessions by course: %w", err)
	}
	return sessions, nil
}

// List returns sessions matching the filter, ordered by date then start time.
// Used by the schedule endpoint with a date window plus optional course and
// level criteria.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CourseName != "" {
		conditions = append(conditions, fmt.Sprintf("course_name ILIKE $%d", len(args)+1))
		args = append(args, filter.CourseName)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
