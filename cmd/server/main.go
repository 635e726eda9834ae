package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sekolahku/admin-api/api/swagger"
	"github.com/sekolahku/admin-api/internal/handler"
	"github.com/sekolahku/admin-api/internal/middleware"
	"github.com/sekolahku/admin-api/internal/repository"
	"github.com/sekolahku/admin-api/internal/service"
	"github.com/sekolahku/admin-api/pkg/config"
	"github.com/sekolahku/admin-api/pkg/database"
	"github.com/sekolahku/admin-api/pkg/logger"
	corsmiddleware "github.com/sekolahku/admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sekolahku/admin-api/pkg/middleware/requestid"
)

// @title Sekolahku Admin API
// @version 1.0.0
// @description Role-gated school administration service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	privilegeRepo := repository.NewPrivilegeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	accessSvc := service.NewAccessService(privilegeRepo, logr)
	authSvc := service.NewAuthService(userRepo, statusRepo, teacherRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sekolahku-admin-api",
	})
	userSvc := service.NewUserService(accessSvc, userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(accessSvc, teacherRepo, userRepo, validate, logr)
	studentSvc := service.NewStudentService(accessSvc, studentRepo, userRepo, classRepo, validate, logr)
	classSvc := service.NewClassService(accessSvc, classRepo, validate, logr)
	subjectSvc := service.NewSubjectService(accessSvc, subjectRepo, classRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(accessSvc, assignmentRepo, subjectRepo, classRepo, teacherRepo, studentRepo, userRepo, validate, logr)
	statusSvc := service.NewStatusService(accessSvc, statusRepo, userRepo, validate, logr)
	privilegeSvc := service.NewPrivilegeService(accessSvc, privilegeRepo, userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(accessSvc, attendanceRepo, studentRepo, assignmentRepo, validate, logr)
	timetableSvc := service.NewTimetableService(accessSvc, timetableRepo, subjectRepo, validate, logr)
	metricsSvc := service.NewMetricsService()
	reportSvc := service.NewReportService(accessSvc, studentRepo, teacherRepo, attendanceRepo, metricsSvc, cfg.Reports.MaxPageSize, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc, statusSvc, privilegeSvc, assignmentSvc),
		Students:   handler.NewStudentHandler(studentSvc, statusSvc, assignmentSvc),
		Classes:    handler.NewClassHandler(classSvc, subjectSvc, timetableSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Assignment: handler.NewAssignmentHandler(assignmentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Timetable:  handler.NewTimetableHandler(timetableSvc),
		Reports:    handler.NewReportHandler(reportSvc, cfg.Reports.Enabled),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, teacherRepo, userRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
