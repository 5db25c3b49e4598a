package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/progress"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/export"
)

const historyLimit = 12

type progressStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type progressSessionRepository interface {
	ListByCourse(ctx context.Context, courseName, level string) ([]models.ClassSession, error)
}

type progressAttendanceRepository interface {
	ListBySessionIDs(ctx context.Context, studentID string, sessionIDs []string) ([]models.AttendanceRecord, error)
	RecentHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceHistoryEntry, error)
}

// ProgressService composes the attendance-derived progress payload for a
// student: per-course statistics, the classified session timeline, the
// overall roll-up and the recent activity feed.
type ProgressService struct {
	students   progressStudentRepository
	sessions   progressSessionRepository
	attendance progressAttendanceRepository
	cache      *CacheService
	logger     *zap.Logger
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewProgressService constructs a ProgressService instance.
func NewProgressService(students progressStudentRepository, sessions progressSessionRepository, attendance progressAttendanceRepository, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		students:   students,
		sessions:   sessions,
		attendance: attendance,
		cache:      cache,
		logger:     logger,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

func progressCacheKey(userID string) string {
	return fmt.Sprintf("progress:%s", userID)
}

// Summary builds the full progress payload for the student linked to a user
// account. Courses are fetched concurrently; a course whose data cannot be
// loaded degrades to zero statistics instead of failing the whole payload.
func (s *ProgressService) Summary(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	key := progressCacheKey(userID)
	var cached models.ProgressSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollments := progress.ParseEnrollments(student.Courses, student.Levels)
	courses := make([]models.CourseProgress, len(enrollments))
	today := s.now()

	var wg sync.WaitGroup
	for i, enrollment := range enrollments {
		wg.Add(1)
		go func(i int, e progress.Enrollment) {
			defer wg.Done()
			courses[i] = s.courseProgress(ctx, student.ID, e, today)
		}(i, enrollment)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "progress aggregation cancelled")
	}

	history, err := s.attendance.RecentHistory(ctx, student.ID, historyLimit)
	if err != nil {
		s.logger.Warn("failed to load attendance history", zap.String("student_id", student.ID), zap.Error(err))
		history = nil
	}

	stats := make([]models.CourseStats, len(courses))
	for i, c := range courses {
		stats[i] = c.CourseStats
	}

	summary := &models.ProgressSummary{
		Overall: progress.Overall(stats),
		Courses: courses,
		History: history,
	}

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache progress payload", zap.String("key", key), zap.Error(err))
	}

	return summary, nil
}

// courseProgress loads and aggregates one enrollment. Any repository error
// degrades the course to empty statistics so the rest of the payload still
// renders.
func (s *ProgressService) courseProgress(ctx context.Context, studentID string, enrollment progress.Enrollment, today time.Time) models.CourseProgress {
	zero := models.CourseProgress{
		CourseStats: models.CourseStats{Title: enrollment.Title, Level: enrollment.Level},
	}

	sessions, err := s.sessions.ListByCourse(ctx, enrollment.Title, enrollment.Level)
	if err != nil {
		s.logger.Warn("failed to load sessions for course",
			zap.String("course", enrollment.Title), zap.String("level", enrollment.Level), zap.Error(err))
		return zero
	}

	matched := progress.MatchSessions(enrollment.Title, enrollment.Level, sessions)
	ids := make([]string, len(matched))
	for i, session := range matched {
		ids[i] = session.ID
	}

	records, err := s.attendance.ListBySessionIDs(ctx, studentID, ids)
	if err != nil {
		s.logger.Warn("failed to load attendance for course",
			zap.String("course", enrollment.Title), zap.String("level", enrollment.Level), zap.Error(err))
		return zero
	}

	bySession := make(map[string]*models.AttendanceRecord, len(records))
	for i := range records {
		bySession[records[i].SessionID] = &records[i]
	}

	timeline := make([]models.SessionTimelineEntry, len(matched))
	for i, session := range matched {
		record := bySession[session.ID]
		timeline[i] = models.SessionTimelineEntry{
			Session: session,
			Status:  progress.Classify(record, session.Date, today),
			Record:  record,
		}
	}

	return models.CourseProgress{
		CourseStats: progress.Aggregate(enrollment.Title, enrollment.Level, matched, records),
		Sessions:    timeline,
	}
}

// Invalidate drops the cached progress payload for a user.
func (s *ProgressService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, progressCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate progress cache", zap.String("user_id", userID), zap.Error(err))
	}
}

// Report renders the progress summary as a downloadable document. Supported
// formats are "csv" and "pdf".
func (s *ProgressService) Report(ctx context.Context, userID, format string) ([]byte, string, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Level", "Sessions", "Present", "Absent", "Attendance %"},
	}
	for _, course := range summary.Courses {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":       course.Title,
			"Level":        course.Level,
			"Sessions":     strconv.Itoa(course.Total),
			"Present":      strconv.Itoa(course.Present),
			"Absent":       strconv.Itoa(course.Absent),
			"Attendance %": strconv.FormatFloat(course.Percent, 'f', 1, 64),
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"Course":       "Overall",
		"Sessions":     strconv.Itoa(summary.Overall.Total),
		"Present":      strconv.Itoa(summary.Overall.Present),
		"Absent":       strconv.Itoa(summary.Overall.Absent),
		"Attendance %": strconv.FormatFloat(summary.Overall.Percent, 'f', 1, 64),
	})

	switch format {
	case "csv", "":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := export.NewPDFExporter().Render(dataset, "Attendance Progress Report")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}
