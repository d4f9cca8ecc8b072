package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

type TreasuryHandlers struct{ eng *engine.Engine }

func NewTreasuryHandlers(eng *engine.Engine) TreasuryHandlers {
	return TreasuryHandlers{eng: eng}
}

func (h TreasuryHandlers) Stats(c *gin.Context) {
	t, err := h.eng.GetTreasuryStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_balance":         t.TotalBalance,
		"reserved_for_payouts":  t.ReservedForPayouts,
		"available_balance":     t.Available(),
		"total_staked_all_time": t.TotalStakedAllTime,
		"total_paid_out":        t.TotalPaidOut,
		"total_challenges":      t.TotalChallenges,
		"ai_wins":               t.AIWins,
		"challenger_wins":       t.ChallengerWins,
	})
}

func (h TreasuryHandlers) Deposit(c *gin.Context) {
	var req struct {
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.Description == "" {
		req.Description = "Manual treasury deposit"
	}
	if err := h.eng.AddTreasuryFunds(req.Amount, req.Description); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

func (h TreasuryHandlers) Transactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	txs, err := h.eng.GetTreasuryTransactions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}
