package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/models"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
	"github.com/orbitlearn/student-portal-api/pkg/jobs"
)

// JobTypeRecordAttendance labels attendance jobs on the recorder queue.
const JobTypeRecordAttendance = "attendance.record"

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	RecentHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceHistoryEntry, error)
}

// RecordingPayload is the unit of work carried by the recorder queue.
type RecordingPayload struct {
	UserID    string
	SessionID string
	Status    models.AttendanceStatus
}

// AttendanceService marks attendance for students. Recording is asynchronous
// through the recorder queue; the caller gets an acknowledgement before the
// row is written. Explicit absence marking stays synchronous so the client
// can surface a failure.
type AttendanceService struct {
	students   progressStudentRepository
	attendance attendanceRepository
	progress   *ProgressService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	queue      *jobs.Queue
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(students progressStudentRepository, attendance attendanceRepository, progressSvc *ProgressService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		students:   students,
		attendance: attendance,
		progress:   progressSvc,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// BindQueue attaches the recorder queue. Without one, recording falls back
// to synchronous writes.
func (s *AttendanceService) BindQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Record accepts a marking and hands it to the recorder queue. The returned
// error only covers request validation; delivery itself is best effort.
func (s *AttendanceService) Record(ctx context.Context, userID string, req models.RecordAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	status := req.Status
	if status == "" {
		status = models.AttendancePresent
	}

	payload := RecordingPayload{UserID: userID, SessionID: req.SessionID, Status: status}
	if s.queue == nil {
		return s.process(ctx, payload)
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeRecordAttendance, Payload: payload}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("recorder queue unavailable, writing synchronously", zap.Error(err))
		return s.process(ctx, payload)
	}
	s.metrics.SetRecorderQueueDepth(s.queue.Depth())
	return nil
}

// HandleRecordingJob is the recorder queue handler.
func (s *AttendanceService) HandleRecordingJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(RecordingPayload)
	if !ok {
		s.metrics.RecordAttendanceRecording("unknown", "invalid_payload")
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	if s.queue != nil {
		defer s.metrics.SetRecorderQueueDepth(s.queue.Depth())
	}
	return s.process(ctx, payload)
}

func (s *AttendanceService) process(ctx context.Context, payload RecordingPayload) error {
	student, err := s.students.FindByUserID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordAttendanceRecording(string(payload.Status), "no_student")
			s.logger.Warn("dropping recording for unknown student", zap.String("user_id", payload.UserID))
			return nil
		}
		s.metrics.RecordAttendanceRecording(string(payload.Status), "error")
		return fmt.Errorf("resolve student for recording: %w", err)
	}

	record := &models.AttendanceRecord{
		SessionID: payload.SessionID,
		StudentID: student.ID,
		Status:    payload.Status,
	}
	if err := s.attendance.Upsert(ctx, record); err != nil {
		s.metrics.RecordAttendanceRecording(string(payload.Status), "error")
		return fmt.Errorf("store recording: %w", err)
	}

	s.metrics.RecordAttendanceRecording(string(payload.Status), "stored")
	if s.progress != nil {
		s.progress.Invalidate(ctx, payload.UserID)
	}
	return nil
}

// MarkAbsent writes an absence synchronously and returns the stored record.
func (s *AttendanceService) MarkAbsent(ctx context.Context, userID, sessionID string) (*models.AttendanceRecord, error) {
	if sessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_id is required")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	record := &models.AttendanceRecord{
		SessionID: sessionID,
		StudentID: student.ID,
		Status:    models.AttendanceAbsent,
	}
	if err := s.attendance.Upsert(ctx, record); err != nil {
		s.metrics.RecordAttendanceRecording(string(models.AttendanceAbsent), "error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store absence")
	}

	s.metrics.RecordAttendanceRecording(string(models.AttendanceAbsent), "stored")
	if s.progress != nil {
		s.progress.Invalidate(ctx, userID)
	}
	return record, nil
}

// History returns the student's most recent markings.
func (s *AttendanceService) History(ctx context.Context, userID string, limit int) ([]models.AttendanceHistoryEntry, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	entries, err := s.attendance.RecentHistory(ctx, student.ID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return entries, nil
}
