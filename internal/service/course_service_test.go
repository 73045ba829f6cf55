package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smit-institute/registration-api/internal/models"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
)

type mockCourseRepo struct {
	courses   map[string]*models.Course
	listCalls int
	deleted   []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	m.listCalls++
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "new-course"
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentCounter struct {
	count int
}

func (m *mockStudentCounter) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return m.count, nil
}

type mapCache struct {
	entries  map[string][]byte
	flushed  int
	setCalls int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.setCalls++
	return nil
}

func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = map[string][]byte{}
	c.flushed++
	return nil
}

func newCourseFixture() (*mockCourseRepo, *mockStudentCounter, *mapCache, *CourseService) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "WEB-101", Name: "Web Development", MaxStudents: 30, EnrolledStudents: 28, Status: models.CourseStatusActive},
	}}
	counter := &mockStudentCounter{}
	cache := newMapCache()
	svc := NewCourseService(repo, counter, cache, nil, nil)
	return repo, counter, cache, svc
}

func TestCourseListDerivesSeatInfo(t *testing.T) {
	_, _, _, svc := newCourseFixture()

	views, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].AvailableSeatsCount)
	assert.False(t, views[0].Full)
}

func TestCourseListServedFromCache(t *testing.T) {
	repo, _, cache, svc := newCourseFixture()

	_, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, 1, cache.setCalls)
}

func TestCourseCreateInvalidatesListings(t *testing.T) {
	_, _, cache, svc := newCourseFixture()
	_, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CourseRequest{
		Code: "gd-201", Name: "Graphic Design", Description: "Design fundamentals",
		Duration: "6 months", Fees: 15000, Instructor: "Sana Tariq",
		Campus: "Main Campus", City: "Karachi", MaxStudents: 25,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, cache.flushed)
}

func TestCourseUpdateKeepsEnrolledCounter(t *testing.T) {
	repo, _, _, svc := newCourseFixture()

	updated, err := svc.Update(context.Background(), "c1", CourseRequest{
		Code: "WEB-101", Name: "Web Development", Description: "Full stack",
		Duration: "6 months", Fees: 12000, Instructor: "Bilal Ahmed",
		Campus: "Main Campus", City: "Karachi", MaxStudents: 28,
	})
	require.NoError(t, err)
	assert.Equal(t, 28, updated.MaxStudents)
	assert.Equal(t, 28, repo.courses["c1"].EnrolledStudents, "cap change never rewrites the counter")
	assert.True(t, updated.IsFull())
}

func TestCourseDeleteRefusedWithStudents(t *testing.T) {
	repo, counter, _, svc := newCourseFixture()
	counter.count = 3

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, repo.courses, "c1")
}

func TestCourseDeleteWithoutStudents(t *testing.T) {
	repo, _, cache, svc := newCourseFixture()

	err := svc.Delete(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, repo.deleted)
	assert.Equal(t, 1, cache.flushed)
}

func TestCourseGetNotFound(t *testing.T) {
	_, _, _, svc := newCourseFixture()

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseNotFound))
}
