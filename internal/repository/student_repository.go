package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orbitlearn/student-portal-api/internal/models"
)

// StudentRepository provides database access to student enrollment rows.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByUserID returns the student row linked to a user account. The course
// and level columns come back verbatim; interpreting them is left to the
// enrollment parser.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, email, course, level, created_at, updated_at FROM students WHERE user_id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user id: %w", err)
	}
	return &student, nil
}
