package models

// CourseStats carries attendance-derived statistics for one enrolled course.
// Values are recomputed on demand and never persisted.
type CourseStats struct {
	Title   string  `json:"title"`
	Level   string  `json:"level"`
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Percent float64 `json:"percent"`
}

// OverallStats sums CourseStats across every enrollment. Percent is
// recomputed from the summed counts, never averaged from child percents.
type OverallStats struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Percent float64 `json:"percent"`
}

// SessionTimelineEntry pairs a scheduled session with its classified status
// for one student.
type SessionTimelineEntry struct {
	Session ClassSession      `json:"session"`
	Status  SessionStatus     `json:"status"`
	Record  *AttendanceRecord `json:"record,omitempty"`
}

// CourseProgress is the per-course section of the progress payload.
type CourseProgress struct {
	CourseStats
	Sessions []SessionTimelineEntry `json:"sessions"`
}

// ProgressSummary is the composed progress payload for one student.
type ProgressSummary struct {
	Overall OverallStats             `json:"overall"`
	Courses []CourseProgress         `json:"courses"`
	History []AttendanceHistoryEntry `json:"history"`
}
