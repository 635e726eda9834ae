package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/middleware"
	"github.com/sekolahku/admin-api/internal/service"
)

func actorFromContext(c *gin.Context) service.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}
