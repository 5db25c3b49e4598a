// Package progress implements the attendance aggregation core: enrollment
// parsing, session matching, per-course statistics, status classification and
// the overall reduction. Every function is pure and performs no I/O, so the
// package can be exercised without a database or a session layer.
package progress

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/orbitlearn/student-portal-api/internal/models"
)

// LevelNotSpecified is the fallback level when a student row carries no
// level information at all.
const LevelNotSpecified = "Not specified"

// Enrollment is one (course title, level) pairing for a student.
type Enrollment struct {
	Title string `json:"title"`
	Level string `json:"level"`
}

// ParseEnrollments interprets the raw course and level fields of a student
// row and pairs them positionally. Both fields go through the same
// three-tier fallback: a JSON-encoded array is preferred, a comma separated
// list comes next, and anything else is treated as a single scalar value.
// When the level list is shorter than the course list the first level is
// reused; with no levels at all the level is LevelNotSpecified. Malformed
// input never fails, it degrades to the most permissive interpretation.
func ParseEnrollments(rawCourse, rawLevel string) []Enrollment {
	titles := splitField(rawCourse, true)
	levels := splitField(rawLevel, false)

	enrollments := make([]Enrollment, 0, len(titles))
	for i, title := range titles {
		level := LevelNotSpecified
		if i < len(levels) {
			level = levels[i]
		} else if len(levels) > 0 {
			level = levels[0]
		}
		enrollments = append(enrollments, Enrollment{Title: title, Level: level})
	}
	return enrollments
}

// splitField applies the structured -> delimited -> scalar fallback chain.
// dropEmpty controls whether blank entries are discarded; course titles drop
// them, level entries are kept so positional pairing stays aligned.
func splitField(raw string, dropEmpty bool) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var structured []interface{}
	if err := json.Unmarshal([]byte(raw), &structured); err == nil {
		return collect(structured, dropEmpty)
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if dropEmpty && trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return values
}

func collect(items []interface{}, dropEmpty bool) []string {
	values := make([]string, 0, len(items))
	for _, item := range items {
		var value string
		switch v := item.(type) {
		case string:
			value = strings.TrimSpace(v)
		default:
			value = strings.TrimSpace(fmt.Sprint(v))
		}
		if dropEmpty && value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}

// MatchSessions returns the sessions belonging to one enrollment: the level
// must match exactly and the course name case-insensitively. Results are
// ordered by date then start time, and no session appears twice.
func MatchSessions(title, level string, sessions []models.ClassSession) []models.ClassSession {
	seen := make(map[string]struct{}, len(sessions))
	matched := make([]models.ClassSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Level != level {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(session.CourseName), strings.TrimSpace(title)) {
			continue
		}
		if _, ok := seen[session.ID]; ok {
			continue
		}
		seen[session.ID] = struct{}{}
		matched = append(matched, session)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].StartTime < matched[j].StartTime
	})
	return matched
}

// Aggregate computes CourseStats for one course from its session subset and
// the student's attendance records. A session without a record counts in the
// denominator only; it is never inferred as absent here. Records are counted
// as given, without deduplication by session.
func Aggregate(title, level string, sessions []models.ClassSession, records []models.AttendanceRecord) models.CourseStats {
	ids := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		ids[session.ID] = struct{}{}
	}

	stats := models.CourseStats{Title: title, Level: level, Total: len(sessions)}
	for _, record := range records {
		if _, ok := ids[record.SessionID]; !ok {
			continue
		}
		switch record.Status {
		case models.AttendancePresent:
			stats.Present++
		case models.AttendanceAbsent:
			stats.Absent++
		}
	}
	stats.Percent = percent(stats.Present, stats.Total)
	return stats
}

// Classify maps an optional attendance record and the session date onto the
// presentation status. A recorded status wins outright; without one, a
// session strictly before today is Missed, otherwise NotMarked. Missed never
// feeds the absent total in Aggregate.
func Classify(record *models.AttendanceRecord, sessionDate, today time.Time) models.SessionStatus {
	if record != nil {
		if record.Status == models.AttendanceAbsent {
			return models.SessionAbsent
		}
		return models.SessionPresent
	}
	if truncateDay(sessionDate).Before(truncateDay(today)) {
		return models.SessionMissed
	}
	return models.SessionNotMarked
}

// Overall reduces per-course stats into the overall summary. Counts are
// summed and the percentage is recomputed from the sums so that courses with
// many sessions weigh accordingly.
func Overall(stats []models.CourseStats) models.OverallStats {
	overall := models.OverallStats{}
	for _, s := range stats {
		overall.Total += s.Total
		overall.Present += s.Present
		overall.Absent += s.Absent
	}
	overall.Percent = percent(overall.Present, overall.Total)
	return overall
}

func percent(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*1000) / 10
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
