package wallet

import (
	"courtside/internal/shared/config"
	"courtside/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, cfg *config.Config, ctrl *Controller) {
	group := rg.Group("/wallet")
	group.Use(middleware.JWTAuth(cfg))
	{
		group.GET("", ctrl.GetWallet)
	}
}
