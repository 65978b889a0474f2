package slots

import (
	"courtside/internal/shared/config"
	"courtside/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, cfg *config.Config, ctrl *Controller) {
	group := rg.Group("/slots")
	group.Use(middleware.JWTAuth(cfg))
	{
		group.GET("", ctrl.ListSlots)
		group.GET("/:id", ctrl.GetSlot)
		group.POST("", middleware.RequireRole("ADMIN"), ctrl.CreateSlot)
	}
}
