package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/middleware"
	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/repository"
	"github.com/sekolahku/admin-api/internal/service"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Teachers   *TeacherHandler
	Students   *StudentHandler
	Classes    *ClassHandler
	Subjects   *SubjectHandler
	Assignment *AssignmentHandler
	Attendance *AttendanceHandler
	Timetable  *TimetableHandler
	Reports    *ReportHandler
}

// RegisterRoutes mounts all API routes under the given prefix. Role checks at
// the route level are coarse; the service layer makes the real authorization
// decision per operation.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, teachers *repository.TeacherRepository, userRepo *repository.UserRepository) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth), middleware.Actor(teachers))

	protected.POST("/auth/logout", h.Auth.Logout)
	protected.PUT("/auth/password", h.Auth.ChangePassword)

	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSystemAdmin)

	users := protected.Group("/users", admin)
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("", h.Users.Create)
		users.DELETE("/:id", h.Users.Delete)
	}

	teachersGroup := protected.Group("/teachers")
	{
		teachersGroup.GET("", h.Teachers.List)
		teachersGroup.GET("/:id", h.Teachers.Get)
		teachersGroup.POST("", h.Teachers.Create)
		teachersGroup.PUT("/:id", h.Teachers.Update)
		teachersGroup.GET("/:id/status", h.Teachers.Status)
		teachersGroup.PUT("/:id/status", h.Teachers.SetStatus)
		teachersGroup.GET("/:id/privileges", h.Teachers.Privileges)
		teachersGroup.GET("/:id/privileges/:capability", h.Teachers.CheckPrivilege)
		teachersGroup.PUT("/:id/privileges",
			middleware.Audit(userRepo, models.AuditActionPrivilegeGrant, "teacher_privileges"),
			h.Teachers.Grant)
		teachersGroup.GET("/:id/assignments", h.Teachers.Assignments)
	}

	students := protected.Group("/students")
	{
		students.GET("", h.Students.List)
		students.GET("/:id", h.Students.Get)
		students.POST("", h.Students.Create)
		students.PUT("/:id", h.Students.Update)
		students.DELETE("/:id", h.Students.Remove)
		students.GET("/:id/status", h.Students.Status)
		students.POST("/:id/suspend", h.Students.Suspend)
		students.POST("/:id/reactivate", h.Students.Reactivate)
		students.PUT("/:id/class", h.Students.Reassign)
		students.GET("/:id/subjects", h.Students.Enrollments)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", h.Classes.List)
		classes.GET("/:id", h.Classes.Get)
		classes.POST("", h.Classes.Create)
		classes.DELETE("/:id", h.Classes.Delete)
		classes.GET("/:id/subjects", h.Classes.Subjects)
		classes.GET("/:id/timetable", h.Classes.Timetable)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", h.Subjects.List)
		subjects.GET("/:id", h.Subjects.Get)
		subjects.POST("", h.Subjects.Create)
		subjects.PUT("/:id", h.Subjects.Rename)
		subjects.DELETE("/:id", h.Subjects.Delete)
	}

	assignments := protected.Group("/assignments")
	{
		assignments.POST("", h.Assignment.Create)
		assignments.DELETE("/:id", h.Assignment.Delete)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("/students/:id", h.Attendance.MarkStudent)
		attendance.GET("/students/:id", h.Attendance.ListStudent)
		attendance.POST("/teachers/:id", h.Attendance.MarkTeacher)
		attendance.GET("/teachers/:id", h.Attendance.ListTeacher)
		attendance.GET("/classes/:id/summary", h.Attendance.ClassSummary)
		attendance.GET("/classes/:id/roster", h.Attendance.Roster)
	}

	timetable := protected.Group("/timetable")
	{
		timetable.POST("", h.Timetable.Create)
		timetable.DELETE("/:id", h.Timetable.Delete)
		timetable.GET("/teachers/:id", h.Timetable.ByTeacher)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("/students", h.Reports.StudentRoster)
		reports.GET("/teachers", h.Reports.TeacherRoster)
		reports.GET("/classes/:id/attendance", h.Reports.ClassAttendance)
	}
}
