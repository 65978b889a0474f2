package bookings

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"courtside/internal/shared/utils/response"
	"courtside/internal/slots"
	"courtside/internal/users"
	"courtside/internal/wallet"
	"courtside/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service) *Controller {
	return &Controller{service: service, log: logger.GetDefault()}
}

// CreateBooking handles POST /bookings.
func (ctrl *Controller) CreateBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return
	}

	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, formatValidationErrors(validationErrs))
			return
		}
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := ctrl.service.RequestBooking(c.Request.Context(), userID, req)
	if err != nil {
		ctrl.respondBookingError(c, err)
		return
	}

	message := "Booking registered, waiting for the group to complete"
	if result.ClassComplete {
		message = "Booking confirmed"
	}
	response.RespondJSON(c, "success", http.StatusCreated, message, result, nil)
}

// CancelBooking handles DELETE /bookings/:id.
func (ctrl *Controller) CancelBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking id", nil, nil)
		return
	}

	if err := ctrl.service.CancelBooking(c.Request.Context(), bookingID, userID); err != nil {
		ctrl.respondBookingError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Booking cancelled", nil, nil)
}

// GetBooking handles GET /bookings/:id.
func (ctrl *Controller) GetBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking id", nil, nil)
		return
	}

	booking, err := ctrl.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		ctrl.respondBookingError(c, err)
		return
	}
	if booking.UserID != userID && c.GetString("user_role") != string(users.RoleAdmin) {
		response.RespondJSON(c, "error", http.StatusForbidden, "Booking belongs to another user", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved", ToBookingResponse(booking), nil)
}

// GetMyBookings handles GET /bookings.
func (ctrl *Controller) GetMyBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := ctrl.service.GetUserBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		ctrl.respondBookingError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Bookings retrieved", ToBookingResponses(list), nil)
}

func (ctrl *Controller) respondBookingError(c *gin.Context, err error) {
	var insufficient *wallet.InsufficientFundsError
	var conflict *ConflictError

	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, slots.ErrSlotNotFound), errors.Is(err, users.ErrUserNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
	case errors.As(err, &insufficient):
		response.RespondJSON(c, "error", http.StatusPaymentRequired, "Insufficient funds", nil, gin.H{
			"required":  insufficient.Required,
			"available": insufficient.Available,
			"missing":   insufficient.Missing(),
			"points":    insufficient.Points,
		})
	case errors.As(err, &conflict):
		response.RespondJSON(c, "error", http.StatusConflict, conflict.Reason, nil, nil)
	case errors.Is(err, ErrConflict):
		response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
	default:
		ctrl.log.Error("booking request failed", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func formatValidationErrors(errs validator.ValidationErrors) []gin.H {
	out := make([]gin.H, 0, len(errs))
	for _, fe := range errs {
		out = append(out, gin.H{
			"field": fe.Field(),
			"rule":  fe.Tag(),
			"value": fe.Param(),
		})
	}
	return out
}
