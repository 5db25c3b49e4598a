package models

import "time"

// ClassSession is one scheduled class occurrence. Rows are immutable once
// scheduled; Date carries the calendar day and StartTime the wall-clock slot
// as stored ("15:00").
type ClassSession struct {
	ID         string    `db:"id" json:"id"`
	CourseName string    `db:"course_name" json:"course_name"`
	Level      string    `db:"level" json:"level"`
	Date       time.Time `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
	MeetLink   *string   `db:"meet_link" json:"meet_link,omitempty"`
	Coach      string    `db:"coach" json:"coach"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SessionFilter captures query criteria for listing class sessions.
type SessionFilter struct {
	CourseName string
	Level      string
	DateFrom   *time.Time
	DateTo     *time.Time
}
