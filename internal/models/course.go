package models

// EnrolledCourse is one course card on the dashboard: the enrollment plus
// its upcoming sessions.
type EnrolledCourse struct {
	Title       string         `json:"title"`
	Level       string         `json:"level"`
	NextSession *ClassSession  `json:"next_session,omitempty"`
	Upcoming    []ClassSession `json:"upcoming"`
}
