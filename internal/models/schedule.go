package models

// ScheduleDay groups the sessions of one calendar day.
type ScheduleDay struct {
	Date     string         `json:"date"`
	Sessions []ClassSession `json:"sessions"`
}

// Schedule is the calendar payload for one month window.
type Schedule struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []ScheduleDay `json:"days"`
}
