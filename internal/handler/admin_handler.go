package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smit-institute/registration-api/internal/models"
	"github.com/smit-institute/registration-api/internal/service"
	appErrors "github.com/smit-institute/registration-api/pkg/errors"
	"github.com/smit-institute/registration-api/pkg/response"
)

// AdminHandler exposes the admin review endpoints: application listing,
// status transitions, payment records and dashboard statistics.
type AdminHandler struct {
	registrations *service.RegistrationService
	dashboard     *service.DashboardService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(registrations *service.RegistrationService, dashboard *service.DashboardService) *AdminHandler {
	return &AdminHandler{registrations: registrations, dashboard: dashboard}
}

// ListStudents godoc
// @Summary List registrations
// @Tags Admin
// @Produce json
// @Param status query string false "Filter by status"
// @Param courseId query string false "Filter by course"
// @Param search query string false "Search by name, CNIC or registration number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Status = models.RegistrationStatus(c.Query("status"))
	filter.CourseID = c.Query("courseId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// GetStudent godoc
// @Summary Get registration detail
// @Tags Admin
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *AdminHandler) GetStudent(c *gin.Context) {
	student, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ChangeStatus godoc
// @Summary Change registration status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ChangeStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id}/status [put]
func (h *AdminHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.registrations.ChangeStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// AttachPayment godoc
// @Summary Record payment info
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.PaymentInfo true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id}/payment [put]
func (h *AdminHandler) AttachPayment(c *gin.Context) {
	var payment models.PaymentInfo
	if err := c.ShouldBindJSON(&payment); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.registrations.AttachPayment(c.Request.Context(), c.Param("id"), payment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Dashboard godoc
// @Summary Admin dashboard statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
