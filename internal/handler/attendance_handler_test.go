package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/middleware"
	"github.com/orbitlearn/student-portal-api/internal/models"
	"github.com/orbitlearn/student-portal-api/internal/service"
)

type fakeStudentRepo struct {
	student *models.Student
}

func (f *fakeStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if f.student == nil {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

type fakeAttendanceRepo struct {
	upserted []*models.AttendanceRecord
	history  []models.AttendanceHistoryEntry
}

func (f *fakeAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	f.upserted = append(f.upserted, record)
	return nil
}

func (f *fakeAttendanceRepo) RecentHistory(ctx context.Context, studentID string, limit int) ([]models.AttendanceHistoryEntry, error) {
	return f.history, nil
}

func newAttendanceTestContext(t *testing.T, method, path, body string, authed bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if authed {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	}
	return c, rec
}

func newTestAttendanceHandler(students *fakeStudentRepo, attendance *fakeAttendanceRepo) *AttendanceHandler {
	svc := service.NewAttendanceService(students, attendance, nil, nil, nil, zap.NewNop())
	return NewAttendanceHandler(svc)
}

func TestAttendanceHandlerRecordAccepted(t *testing.T) {
	attendance := &fakeAttendanceRepo{}
	h := newTestAttendanceHandler(&fakeStudentRepo{student: &models.Student{ID: "st1", UserID: "u1"}}, attendance)

	c, rec := newAttendanceTestContext(t, http.MethodPost, "/attendance/record", `{"session_id":"s1"}`, true)
	h.Record(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, attendance.upserted, 1)
	assert.Equal(t, models.AttendancePresent, attendance.upserted[0].Status)
}

func TestAttendanceHandlerRecordUnauthorized(t *testing.T) {
	h := newTestAttendanceHandler(&fakeStudentRepo{}, &fakeAttendanceRepo{})

	c, rec := newAttendanceTestContext(t, http.MethodPost, "/attendance/record", `{"session_id":"s1"}`, false)
	h.Record(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceHandlerRecordBadPayload(t *testing.T) {
	h := newTestAttendanceHandler(&fakeStudentRepo{}, &fakeAttendanceRepo{})

	c, rec := newAttendanceTestContext(t, http.MethodPost, "/attendance/record", `{`, true)
	h.Record(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandlerMarkAbsent(t *testing.T) {
	attendance := &fakeAttendanceRepo{}
	h := newTestAttendanceHandler(&fakeStudentRepo{student: &models.Student{ID: "st1", UserID: "u1"}}, attendance)

	c, rec := newAttendanceTestContext(t, http.MethodPost, "/attendance/mark-absent", `{"session_id":"s1"}`, true)
	h.MarkAbsent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, attendance.upserted, 1)
	assert.Equal(t, models.AttendanceAbsent, attendance.upserted[0].Status)
}

func TestAttendanceHandlerHistory(t *testing.T) {
	attendance := &fakeAttendanceRepo{history: []models.AttendanceHistoryEntry{{CourseName: "Math"}}}
	h := newTestAttendanceHandler(&fakeStudentRepo{student: &models.Student{ID: "st1", UserID: "u1"}}, attendance)

	c, rec := newAttendanceTestContext(t, http.MethodGet, "/attendance/history", "", true)
	h.History(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Math")
}
