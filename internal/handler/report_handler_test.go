package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sekolahku/admin-api/internal/service"
)

func TestReportHandlerDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(nil, false)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/students", nil)

	handler.StudentRoster(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports are disabled")
}

func TestReportHandlerFormatDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// gin caches the parsed query string per context, so each request
	// needs its own test context.
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/students", nil)
	assert.Equal(t, service.FormatCSV, formatFromQuery(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/students?format=pdf", nil)
	assert.Equal(t, service.FormatPDF, formatFromQuery(c))
}
