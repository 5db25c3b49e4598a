package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitlearn/student-portal-api/internal/models"
	appErrors "github.com/orbitlearn/student-portal-api/pkg/errors"
)

func TestScheduleServiceMonth(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "st1", UserID: "u1", Courses: "Math,Science", Levels: "A,B"}}
	sessions := &mockSessionRepo{window: []models.ClassSession{
		mkSession("m1", "Math", "A", "2026-03-05"),
		mkSession("m2", "math", "A", "2026-03-05"),
		mkSession("s1", "Science", "B", "2026-03-07"),
		mkSession("x1", "Chess", "A", "2026-03-06"),
		mkSession("m3", "Math", "C", "2026-03-08"),
	}}

	svc := NewScheduleService(students, sessions, zap.NewNop())
	schedule, err := svc.Month(context.Background(), "u1", 2026, 3, "")
	require.NoError(t, err)

	assert.Equal(t, 2026, schedule.Year)
	assert.Equal(t, 3, schedule.Month)
	// Chess is not an enrollment and m3 has the wrong level
	require.Len(t, schedule.Days, 2)
	assert.Equal(t, "2026-03-05", schedule.Days[0].Date)
	assert.Len(t, schedule.Days[0].Sessions, 2)
	assert.Equal(t, "2026-03-07", schedule.Days[1].Date)
}

func TestScheduleServiceMonthCourseFilter(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "st1", UserID: "u1", Courses: "Math,Science", Levels: "A,B"}}
	sessions := &mockSessionRepo{window: []models.ClassSession{
		mkSession("m1", "Math", "A", "2026-03-05"),
		mkSession("s1", "Science", "B", "2026-03-07"),
	}}

	svc := NewScheduleService(students, sessions, zap.NewNop())
	schedule, err := svc.Month(context.Background(), "u1", 2026, 3, "math")
	require.NoError(t, err)

	require.Len(t, schedule.Days, 1)
	assert.Equal(t, "2026-03-05", schedule.Days[0].Date)
}

func TestScheduleServiceMonthInvalid(t *testing.T) {
	svc := NewScheduleService(&mockStudentRepo{}, &mockSessionRepo{}, zap.NewNop())
	_, err := svc.Month(context.Background(), "u1", 2026, 13, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceListForUser(t *testing.T) {
	students := &mockStudentRepo{student: &models.Student{ID: "st1", UserID: "u1", Courses: "Math", Levels: "A"}}
	sessions := &mockSessionRepo{byCourse: map[string][]models.ClassSession{
		"Math": {
			mkSession("m1", "Math", "A", "2026-03-01"),
			mkSession("m2", "Math", "A", "2026-09-20"),
			mkSession("m3", "Math", "A", "2026-09-25"),
		},
	}}

	svc := NewCourseService(students, sessions, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

	courses, err := svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, courses, 1)

	course := courses[0]
	assert.Equal(t, "Math", course.Title)
	// past sessions are excluded from the upcoming list
	require.Len(t, course.Upcoming, 2)
	assert.Equal(t, "m2", course.Upcoming[0].ID)
	require.NotNil(t, course.NextSession)
	assert.Equal(t, "m2", course.NextSession.ID)
}

func TestCourseServiceListForUserNoStudent(t *testing.T) {
	svc := NewCourseService(&mockStudentRepo{}, &mockSessionRepo{}, zap.NewNop())
	_, err := svc.ListForUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
