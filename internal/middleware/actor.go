package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/admin-api/internal/models"
	"github.com/sekolahku/admin-api/internal/service"
	appErrors "github.com/sekolahku/admin-api/pkg/errors"
	"github.com/sekolahku/admin-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved actor.
const ContextActorKey = "currentActor"

type teacherProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

// Actor resolves the caller's identity from the validated claims. For the
// teacher role the teacher profile ID is attached so capability checks can
// key on it. Must run after JWT.
func Actor(teachers teacherProfileReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		actor := service.Actor{UserID: claims.UserID, Role: claims.Role}
		if claims.Role == models.RoleTeacher {
			teacher, err := teachers.FindByUserID(c.Request.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "teacher profile not found"))
					c.Abort()
					return
				}
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher profile"))
				c.Abort()
				return
			}
			actor.TeacherID = teacher.ID
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// ActorFrom extracts the resolved actor from the gin context.
func ActorFrom(c *gin.Context) (service.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return service.Actor{}, false
	}
	actor, ok := value.(service.Actor)
	return actor, ok
}
