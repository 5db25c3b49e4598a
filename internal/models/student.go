package models

import "time"

// Student represents a row in the students table. Courses and Levels hold the
// raw enrollment fields exactly as stored: a JSON-encoded array, a comma
// separated list, or a single scalar value. They are only interpreted by the
// progress enrollment parser.
type Student struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Courses   string    `db:"course" json:"course"`
	Levels    string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
