package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

type Votes struct{ eng *engine.Engine }

func NewVotes(eng *engine.Engine) Votes { return Votes{eng: eng} }

func (h Votes) Cast(c *gin.Context) {
	var req struct {
		Wallet    string `json:"wallet" binding:"required"`
		Position  string `json:"position" binding:"required,oneof=ai challenger"`
		Reasoning string `json:"reasoning"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	vote, err := h.eng.CastVote(c.Request.Context(), c.Param("id"), req.Wallet,
		req.Position, sanitizer.Sanitize(req.Reasoning))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Vote cast successfully", "vote": vote})
}

func (h Votes) List(c *gin.Context) {
	votes, err := h.eng.GetVotes(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes, "count": len(votes)})
}
