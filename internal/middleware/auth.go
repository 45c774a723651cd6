package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/comegetit/internal/config"
	"github.com/example/comegetit/internal/models"
	"github.com/example/comegetit/internal/services"
	"github.com/example/comegetit/internal/utils"
)

const actorContextKey = "currentActor"

// AuthMiddleware validates JWT tokens and loads the authenticated staff
// member, their role and venue assignments into context as an Actor.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		staffID, _, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		var staff models.Staff
		if err := db.Preload("Venues").First(&staff, "id = ?", staffID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unknown staff account")
		}

		actor := services.Actor{ID: staff.ID, Role: staff.Role}
		for _, v := range staff.Venues {
			actor.VenueIDs = append(actor.VenueIDs, v.ID)
		}

		c.Locals(actorContextKey, actor)
		return c.Next()
	}
}

// GetCurrentActor extracts the authenticated actor from context.
func GetCurrentActor(c *fiber.Ctx) (services.Actor, bool) {
	value := c.Locals(actorContextKey)
	if value == nil {
		return services.Actor{}, false
	}

	if actor, ok := value.(services.Actor); ok {
		return actor, true
	}

	return services.Actor{}, false
}
