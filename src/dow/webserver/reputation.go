package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

type ReputationHandlers struct{ eng *engine.Engine }

func NewReputationHandlers(eng *engine.Engine) ReputationHandlers {
	return ReputationHandlers{eng: eng}
}

func (h ReputationHandlers) Voter(c *gin.Context) {
	rep, err := h.eng.GetVoterReputation(c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h ReputationHandlers) Limits(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.GetWalletStats(c.Param("wallet")))
}

func (h ReputationHandlers) TopChallengers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	out, err := h.eng.GetTopChallengers(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out})
}

func (h ReputationHandlers) TopVoters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	out, err := h.eng.GetTopVoters(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out})
}
