package slots

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courtside/internal/shared/utils/response"
	"courtside/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service) *Controller {
	return &Controller{service: service, log: logger.GetDefault()}
}

// ListSlots handles GET /slots?club_id=...&date=YYYY-MM-DD.
func (ctrl *Controller) ListSlots(c *gin.Context) {
	clubID, err := uuid.Parse(c.Query("club_id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid or missing club_id", nil, nil)
		return
	}

	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		day, err = time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", nil, nil)
			return
		}
	}

	list, err := ctrl.service.ListByClubAndDay(c.Request.Context(), clubID, day)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
			return
		}
		ctrl.log.Error("failed to list slots", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Slots retrieved", list, nil)
}

// CreateSlot handles POST /slots. Admin only.
func (ctrl *Controller) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	slot, err := ctrl.service.Create(c.Request.Context(), req)
	if err != nil {
		ctrl.log.Error("failed to create slot", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusCreated, "Slot created", slot, nil)
}

// GetSlot handles GET /slots/:id.
func (ctrl *Controller) GetSlot(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid slot id", nil, nil)
		return
	}

	slot, err := ctrl.service.GetByID(c.Request.Context(), slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
			return
		}
		ctrl.log.Error("failed to load slot", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Slot retrieved", slot, nil)
}
