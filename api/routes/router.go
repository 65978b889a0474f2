package routes

import (
	"net/http"
	"time"

	"courtside/internal/bookings"
	"courtside/internal/cancellation"
	"courtside/internal/clubs"
	"courtside/internal/ledger"
	"courtside/internal/notifications"
	"courtside/internal/shared/config"
	"courtside/internal/shared/database"
	"courtside/internal/slots"
	"courtside/internal/users"
	"courtside/internal/wallet"

	"github.com/gin-gonic/gin"
)

// Router wires repositories, services and controllers and mounts every route.
type Router struct {
	config   *config.Config
	db       *database.DB
	producer *notifications.Producer
}

func NewRouter(cfg *config.Config, db *database.DB, producer *notifications.Producer) *Router {
	return &Router{config: cfg, db: db, producer: producer}
}

// SetupRoutes configures all application routes.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	pg := r.db.PostgreSQL

	userRepo := users.NewRepository(pg)
	clubRepo := clubs.NewRepository(pg)
	slotRepo := slots.NewRepository(pg)
	bookingRepo := bookings.NewRepository(pg)
	ledgerRepo := ledger.NewRepository(pg)

	slotService := slots.NewService(slotRepo)
	resolver := clubs.NewAvailabilityResolver(clubRepo)
	walletManager := wallet.NewManager(pg, ledgerRepo, r.config.Booking.MinorUnitsPerUnit, r.config.Booking.PointsPerUnit)
	canceller := cancellation.NewService(pg, bookingRepo, slotRepo, walletManager)
	locker := bookings.NewSlotLocker(r.db.Redis, r.config.Redis.SlotLockTTL)

	var publisher bookings.EventPublisher
	if r.producer != nil {
		publisher = r.producer
	}

	bookingService := bookings.NewService(
		pg,
		bookingRepo,
		slotRepo,
		slotService,
		clubRepo,
		resolver,
		userRepo,
		walletManager,
		canceller,
		publisher,
		locker,
	)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		bookings.RegisterRoutes(api, r.config, bookings.NewController(bookingService))
		slots.RegisterRoutes(api, r.config, slots.NewController(slotService))
		wallet.RegisterRoutes(api, r.config, wallet.NewController(userRepo, ledgerRepo))
	}
}

func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "courtside-backend",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "courtside-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
