package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smit-institute/registration-api/internal/middleware"
	"github.com/smit-institute/registration-api/internal/models"
	"github.com/smit-institute/registration-api/internal/service"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
	"github.com/smit-institute/registration-api/pkg/export"
)

type fakeRegistrationSrv struct {
	submitReq  *service.SubmitRegistrationRequest
	submitResp *models.StudentDetail
	submitErr  error
	byUser     *models.StudentDetail
	byUserErr  error
}

func (f *fakeRegistrationSrv) Submit(_ context.Context, req service.SubmitRegistrationRequest) (*models.StudentDetail, error) {
	f.submitReq = &req
	return f.submitResp, f.submitErr
}

func (f *fakeRegistrationSrv) GetByUser(context.Context, string) (*models.StudentDetail, error) {
	return f.byUser, f.byUserErr
}

func (f *fakeRegistrationSrv) UpdateProfile(context.Context, string, service.UpdateProfileRequest) (*models.StudentDetail, error) {
	return f.byUser, f.byUserErr
}

func TestRegistrationHandlerSubmitRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRegistrationHandler(&fakeRegistrationSrv{}, export.NewIDCardExporter(), "SMIT")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString("{}"))

	h.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationHandlerSubmitUsesClaimsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRegistrationSrv{
		submitResp: &models.StudentDetail{Student: models.Student{ID: "s1", RegistrationNumber: "SMIT20260001", Status: models.StatusPending}},
	}
	h := NewRegistrationHandler(srv, export.NewIDCardExporter(), "SMIT")

	body, _ := json.Marshal(map[string]interface{}{"full_name": "Ahmed Raza", "course_id": "c1"})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleApplicant})

	h.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.submitReq)
	assert.Equal(t, "user-1", srv.submitReq.UserID, "identity comes from the token, never the body")
}

func TestRegistrationHandlerIDCardBeforeEnrollment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRegistrationSrv{
		byUser: &models.StudentDetail{Student: models.Student{ID: "s1", RegistrationNumber: "SMIT20260001", Status: models.StatusApproved}},
	}
	h := NewRegistrationHandler(srv, export.NewIDCardExporter(), "SMIT")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/registrations/me/id-card", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleApplicant})

	h.IDCard(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestRegistrationHandlerIDCardEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	batch, roll, campus := "B-14", "R-0099", "Main Campus"
	enrolledAt := time.Now().UTC()
	srv := &fakeRegistrationSrv{
		byUser: &models.StudentDetail{
			Student: models.Student{
				ID: "s1", RegistrationNumber: "SMIT20260001", FullName: "Ahmed Raza",
				Status: models.StatusEnrolled, BatchNumber: &batch, RollNumber: &roll,
				EnrolledCampus: &campus, EnrolledAt: &enrolledAt,
			},
			CourseName: "Web Development",
		},
	}
	h := NewRegistrationHandler(srv, export.NewIDCardExporter(), "Saylani Mass IT Training")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/registrations/me/id-card", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleApplicant})

	h.IDCard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "SMIT20260001")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestRegistrationHandlerMeNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRegistrationSrv{byUserErr: appErrors.Clone(appErrors.ErrNotFound, "no registration found")}
	h := NewRegistrationHandler(srv, export.NewIDCardExporter(), "SMIT")

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/registrations/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleApplicant})

	h.Me(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
