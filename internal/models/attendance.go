package models

import "time"

// AttendanceStatus is the stored marking for one student and one session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "P"
	AttendanceAbsent  AttendanceStatus = "A"
)

// Valid reports whether the status is one of the stored markings.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecord is a stored Present/Absent marking. At most one record
// exists per (session, student); the table enforces the pair as unique.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	SessionID  string           `db:"class_session_id" json:"class_session_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedAt time.Time        `db:"recorded_at" json:"recorded_at"`
}

// RecordAttendanceRequest is the payload for marking attendance. Status
// defaults to Present when omitted, matching the one-tap recording flow.
type RecordAttendanceRequest struct {
	SessionID string           `json:"session_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"omitempty,oneof=P A"`
}

// AttendanceHistoryEntry is one row of the recent-activity feed: a stored
// marking joined with the session it was recorded for.
type AttendanceHistoryEntry struct {
	AttendanceRecord
	CourseName string    `db:"course_name" json:"course_name"`
	Level      string    `db:"level" json:"level"`
	Date       time.Time `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
}

// SessionStatus is the presentation-layer classification of a session from
// the student's point of view. Missed and NotMarked exist only here; the
// statistics in CourseStats never count them.
type SessionStatus string

const (
	SessionPresent   SessionStatus = "PRESENT"
	SessionAbsent    SessionStatus = "ABSENT"
	SessionMissed    SessionStatus = "MISSED"
	SessionNotMarked SessionStatus = "NOT_MARKED"
)
