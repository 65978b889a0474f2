package bookings

import (
	"courtside/internal/shared/config"
	"courtside/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the booking endpoints under the given group. All of
// them require an authenticated player.
func RegisterRoutes(rg *gin.RouterGroup, cfg *config.Config, ctrl *Controller) {
	group := rg.Group("/bookings")
	group.Use(middleware.JWTAuth(cfg))
	{
		group.POST("", ctrl.CreateBooking)
		group.GET("", ctrl.GetMyBookings)
		group.GET("/:id", ctrl.GetBooking)
		group.DELETE("/:id", ctrl.CancelBooking)
	}
}
