package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/progress"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
)

const upcomingLimit = 5

// CourseService lists the courses a student is enrolled in together with
// their upcoming sessions.
type CourseService struct {
	students progressStudentRepository
	sessions progressSessionRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(students progressStudentRepository, sessions progressSessionRepository, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{students: students, sessions: sessions, logger: logger, now: time.Now}
}

// ListForUser returns one course card per parsed enrollment. A course whose
// sessions cannot be loaded still appears, just without upcoming entries.
func (s *CourseService) ListForUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollments := progress.ParseEnrollments(student.Courses, student.Levels)
	today := s.now()

	courses := make([]models.EnrolledCourse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course := models.EnrolledCourse{Title: enrollment.Title, Level: enrollment.Level, Upcoming: []models.ClassSession{}}

		sessions, err := s.sessions.ListByCourse(ctx, enrollment.Title, enrollment.Level)
		if err != nil {
			s.logger.Warn("failed to load sessions for course",
				zap.String("course", enrollment.Title), zap.String("level", enrollment.Level), zap.Error(err))
			courses = append(courses, course)
			continue
		}

		for _, session := range progress.MatchSessions(enrollment.Title, enrollment.Level, sessions) {
			if session.Date.Before(today.Truncate(24 * time.Hour)) {
				continue
			}
			course.Upcoming = append(course.Upcoming, session)
			if len(course.Upcoming) == upcomingLimit {
				break
			}
		}
		if len(course.Upcoming) > 0 {
			course.NextSession = &course.Upcoming[0]
		}
		courses = append(courses, course)
	}

	return courses, nil
}
