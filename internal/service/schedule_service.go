package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/progress"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
)

type scheduleSessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, error)
}

// ScheduleService builds the month calendar for a student. Only sessions
// belonging to the student's enrollments appear; an optional course filter
// narrows the view further.
type ScheduleService struct {
	students progressStudentRepository
	sessions scheduleSessionRepository
	logger   *zap.Logger
}

// NewScheduleService constructs a ScheduleService instance.
func NewScheduleService(students progressStudentRepository, sessions scheduleSessionRepository, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{students: students, sessions: sessions, logger: logger}
}

// Month returns the student's sessions for one calendar month grouped by
// day. courseFilter is matched case-insensitively against enrollment titles.
func (s *ScheduleService) Month(ctx context.Context, userID string, year, month int, courseFilter string) (*models.Schedule, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollments := progress.ParseEnrollments(student.Courses, student.Levels)
	if courseFilter != "" {
		filtered := enrollments[:0]
		for _, enrollment := range enrollments {
			if strings.EqualFold(strings.TrimSpace(enrollment.Title), strings.TrimSpace(courseFilter)) {
				filtered = append(filtered, enrollment)
			}
		}
		enrollments = filtered
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	window, err := s.sessions.List(ctx, models.SessionFilter{DateFrom: &from, DateTo: &to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule window")
	}

	byDay := make(map[string][]models.ClassSession)
	seen := make(map[string]struct{})
	for _, enrollment := range enrollments {
		for _, session := range progress.MatchSessions(enrollment.Title, enrollment.Level, window) {
			if _, ok := seen[session.ID]; ok {
				continue
			}
			seen[session.ID] = struct{}{}
			day := session.Date.Format("2006-01-02")
			byDay[day] = append(byDay[day], session)
		}
	}

	days := make([]models.ScheduleDay, 0, len(byDay))
	for day, sessions := range byDay {
		sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].StartTime < sessions[j].StartTime })
		days = append(days, models.ScheduleDay{Date: day, Sessions: sessions})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return &models.Schedule{Year: year, Month: month, Days: days}, nil
}
