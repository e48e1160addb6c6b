package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chaindice-backend/internal/models"
	"chaindice-backend/internal/services"
)

type BetHandler struct {
	engine *services.BetEngine
	oracle *services.BalanceOracle
	asset  string
}

func NewBetHandler(engine *services.BetEngine, oracle *services.BalanceOracle, asset string) *BetHandler {
	return &BetHandler{
		engine: engine,
		oracle: oracle,
		asset:  asset,
	}
}

func (h *BetHandler) PlaceBet(c *gin.Context) {
	wallet := c.GetString("wallet")

	var req models.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.engine.PlaceBet(c.Request.Context(), wallet, &req)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     resp,
	})
}

func (h *BetHandler) Roll(c *gin.Context) {
	wallet := c.GetString("wallet")

	var req models.RollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.engine.Roll(c.Request.Context(), wallet, &req)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  resp,
	})
}

// VerifyBet recomputes a settled bet's outcome from its journaled seeds.
// Public: anyone holding a bet id may audit it.
func (h *BetHandler) VerifyBet(c *gin.Context) {
	betID := c.Param("id")

	report, err := h.engine.VerifyBet(c.Request.Context(), betID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": report,
	})
}

// VerifySeeds recomputes an outcome from caller-supplied seeds without a
// stored bet, for external auditors.
func (h *BetHandler) VerifySeeds(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": h.engine.VerifySeeds(&req),
	})
}

func (h *BetHandler) GetHistory(c *gin.Context) {
	wallet := c.GetString("wallet")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	bets, err := h.engine.History(c.Request.Context(), wallet, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get bet history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bets":    bets,
		"count":   len(bets),
	})
}

func (h *BetHandler) GetRecent(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "25")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 {
		limit = 25
	}

	bets, err := h.engine.RecentBets(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get recent bets",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bets":    bets,
		"count":   len(bets),
	})
}

func (h *BetHandler) GetBalance(c *gin.Context) {
	wallet := c.GetString("wallet")

	balance, err := h.oracle.GetBalance(c.Request.Context(), wallet, h.asset)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to get balance",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"wallet": wallet,
			"asset":  h.asset,
			"amount": balance,
		},
	})
}

// writeEngineError maps engine failures to transport statuses: validation
// to 400, denials to 409/429 with a machine-readable reason, settlement
// trouble to 502.
func writeEngineError(c *gin.Context, err error) {
	if ve, ok := services.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
		return
	}

	if ae, ok := services.IsAdmissionError(err); ok {
		status := http.StatusConflict
		body := gin.H{
			"error":  "Bet not admitted",
			"reason": string(ae.Reason),
		}
		if ae.RetryAfter > 0 {
			status = http.StatusTooManyRequests
			body["retry_after"] = ae.RetryAfter.Seconds()
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "Settlement failed",
		"details": err.Error(),
	})
}
