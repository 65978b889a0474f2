package wallet

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"courtside/internal/ledger"
	"courtside/internal/shared/utils/response"
	"courtside/internal/users"
	"courtside/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletView is the player's balance snapshot together with recent ledger
// entries. Monetary amounts are minor currency units.
type WalletView struct {
	UserID          uuid.UUID      `json:"user_id"`
	Credit          int64          `json:"credit"`
	BlockedCredit   int64          `json:"blocked_credit"`
	AvailableCredit int64          `json:"available_credit"`
	Points          int64          `json:"points"`
	BlockedPoints   int64          `json:"blocked_points"`
	AvailablePoints int64          `json:"available_points"`
	Entries         []ledger.Entry `json:"entries"`
}

type Controller struct {
	userRepo   users.Repository
	ledgerRepo ledger.Repository
	log        *logger.Logger
}

func NewController(userRepo users.Repository, ledgerRepo ledger.Repository) *Controller {
	return &Controller{userRepo: userRepo, ledgerRepo: ledgerRepo, log: logger.GetDefault()}
}

// GetWallet handles GET /wallet.
func (ctrl *Controller) GetWallet(c *gin.Context) {
	raw, exists := c.Get("user_id")
	if !exists {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Authentication required", nil, nil)
		return
	}
	userID, err := uuid.Parse(fmt.Sprint(raw))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Invalid user identity", nil, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	user, err := ctrl.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
			return
		}
		ctrl.log.Error("failed to load user", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}

	entries, err := ctrl.ledgerRepo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		ctrl.log.Error("failed to load ledger entries", slog.Any("error", err))
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
		return
	}

	view := WalletView{
		UserID:          user.ID,
		Credit:          user.Credit,
		BlockedCredit:   user.BlockedCredit,
		AvailableCredit: user.AvailableCredit(),
		Points:          user.Points,
		BlockedPoints:   user.BlockedPoints,
		AvailablePoints: user.AvailablePoints(),
		Entries:         entries,
	}
	response.RespondJSON(c, "success", http.StatusOK, "Wallet retrieved", view, nil)
}
