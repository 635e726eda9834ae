package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/service"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
	"github.com/sekolahku/admin-api/pkg/response"
)

// ReportHandler exposes the synchronous export endpoints.
type ReportHandler struct {
	reports *service.ReportService
	enabled bool
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, enabled bool) *ReportHandler {
	return &ReportHandler{reports: reports, enabled: enabled}
}

func (h *ReportHandler) serve(c *gin.Context, report *service.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Body)
}

func formatFromQuery(c *gin.Context) service.ReportFormat {
	return service.ReportFormat(c.DefaultQuery("format", "csv"))
}

// StudentRoster godoc
// @Summary Export the student roster
// @Tags Reports
// @Produce text/csv
// @Param classId query string false "Scope to one class"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /reports/students [get]
func (h *ReportHandler) StudentRoster(c *gin.Context) {
	if !h.enabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "reports are disabled"))
		return
	}
	report, err := h.reports.StudentRoster(c.Request.Context(), actorFromContext(c), c.Query("classId"), formatFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, report)
}

// TeacherRoster godoc
// @Summary Export the teacher roster
// @Tags Reports
// @Produce text/csv
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /reports/teachers [get]
func (h *ReportHandler) TeacherRoster(c *gin.Context) {
	if !h.enabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "reports are disabled"))
		return
	}
	report, err := h.reports.TeacherRoster(c.Request.Context(), actorFromContext(c), formatFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, report)
}

// ClassAttendance godoc
// @Summary Export a class attendance summary
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /reports/classes/{id}/attendance [get]
func (h *ReportHandler) ClassAttendance(c *gin.Context) {
	if !h.enabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "reports are disabled"))
		return
	}
	rng := service.AttendanceRange{From: c.Query("from"), To: c.Query("to")}
	report, err := h.reports.ClassAttendance(c.Request.Context(), actorFromContext(c), c.Param("id"), rng, formatFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, report)
}
