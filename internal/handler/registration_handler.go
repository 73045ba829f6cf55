package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smit-institute/registration-api/internal/models"
	"github.com/smit-institute/registration-api/internal/service"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
	"github.com/smit-institute/registration-api/pkg/export"
	"github.com/smit-institute/registration-api/pkg/response"
)

type registrationService interface {
	Submit(ctx context.Context, req service.SubmitRegistrationRequest) (*models.StudentDetail, error)
	GetByUser(ctx context.Context, userID string) (*models.StudentDetail, error)
	UpdateProfile(ctx context.Context, userID string, req service.UpdateProfileRequest) (*models.StudentDetail, error)
}

// RegistrationHandler exposes the applicant-facing registration endpoints.
type RegistrationHandler struct {
	registrations registrationService
	idCards       *export.IDCardExporter
	instituteName string
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationService, idCards *export.IDCardExporter, instituteName string) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, idCards: idCards, instituteName: instituteName}
}

// Submit godoc
// @Summary Submit a course registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.SubmitRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UserID = claims.UserID

	student, err := h.registrations.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Me godoc
// @Summary Get own registration
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations/me [get]
func (h *RegistrationHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.registrations.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Status godoc
// @Summary Get own registration status
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations/me/status [get]
func (h *RegistrationHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.registrations.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"registration_number": student.RegistrationNumber,
		"status":              student.Status,
		"course_name":         student.CourseName,
	}, nil)
}

// UpdateProfile godoc
// @Summary Update own registration profile
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /registrations/me [put]
func (h *RegistrationHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	student, err := h.registrations.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// IDCard godoc
// @Summary Download own ID card
// @Tags Registrations
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /registrations/me/id-card [get]
func (h *RegistrationHandler) IDCard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	student, err := h.registrations.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !student.Enrolled() {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "id card is available after enrollment"))
		return
	}

	card := export.IDCard{
		InstituteName:      h.instituteName,
		RegistrationNumber: student.RegistrationNumber,
		FullName:           student.FullName,
		FatherName:         student.FatherName,
		CourseName:         student.CourseName,
	}
	if student.BatchNumber != nil {
		card.BatchNumber = *student.BatchNumber
	}
	if student.RollNumber != nil {
		card.RollNumber = *student.RollNumber
	}
	if student.EnrolledCampus != nil {
		card.Campus = *student.EnrolledCampus
	}

	pdf, err := h.idCards.Render(card)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render id card"))
		return
	}

	filename := fmt.Sprintf("id-card-%s.pdf", student.RegistrationNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
