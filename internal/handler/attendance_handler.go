package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/service"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
	"github.com/sekolahku/admin-api/pkg/response"
)

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func rangeFromQuery(c *gin.Context) service.AttendanceRange {
	return service.AttendanceRange{
		From: c.Query("from"),
		To:   c.Query("to"),
	}
}

// MarkStudent godoc
// @Summary Mark a student's attendance for one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 204
// @Router /attendance/students/{id} [post]
func (h *AttendanceHandler) MarkStudent(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.MarkStudent(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkTeacher godoc
// @Summary Mark a teacher's attendance for one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 204
// @Router /attendance/teachers/{id} [post]
func (h *AttendanceHandler) MarkTeacher(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.MarkTeacher(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudent godoc
// @Summary List a student's attendance in a date range
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{id} [get]
func (h *AttendanceHandler) ListStudent(c *gin.Context) {
	records, err := h.attendance.ListStudent(c.Request.Context(), actorFromContext(c), c.Param("id"), rangeFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListTeacher godoc
// @Summary List a teacher's attendance in a date range
// @Tags Attendance
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/teachers/{id} [get]
func (h *AttendanceHandler) ListTeacher(c *gin.Context) {
	records, err := h.attendance.ListTeacher(c.Request.Context(), actorFromContext(c), c.Param("id"), rangeFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ClassSummary godoc
// @Summary Summarise attendance per student of a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/summary [get]
func (h *AttendanceHandler) ClassSummary(c *gin.Context) {
	summary, err := h.attendance.ClassSummary(c.Request.Context(), actorFromContext(c), c.Param("id"), rangeFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Roster godoc
// @Summary List the active students of a class for a marking session
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	students, err := h.attendance.Roster(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
