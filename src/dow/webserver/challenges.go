package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

// sanitizer strips any markup from free-text fields before storage.
var sanitizer = bluemonday.StrictPolicy()

type Challenges struct{ eng *engine.Engine }

func NewChallenges(eng *engine.Engine) Challenges { return Challenges{eng: eng} }

func (h Challenges) Submit(c *gin.Context) {
	var req struct {
		VerdictID     string   `json:"verdictId" binding:"required"`
		Wallet        string   `json:"wallet" binding:"required"`
		StakeAmount   float64  `json:"stakeAmount" binding:"required,gt=0"`
		EvidenceLinks []string `json:"evidenceLinks" binding:"required"`
		Explanation   string   `json:"explanation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	ch, err := h.eng.SubmitChallenge(c.Request.Context(), req.VerdictID, req.Wallet,
		req.StakeAmount, req.EvidenceLinks, sanitizer.Sanitize(req.Explanation))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Challenge submitted successfully", "challenge": ch})
}

func (h Challenges) Get(c *gin.Context) {
	ch, err := h.eng.GetChallenge(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h Challenges) Active(c *gin.Context) {
	out, err := h.eng.GetActiveChallenges()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": out, "count": len(out)})
}

func (h Challenges) ByWallet(c *gin.Context) {
	out, err := h.eng.GetChallengesByWallet(c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": out, "count": len(out)})
}

func (h Challenges) Verdict(c *gin.Context) {
	v, err := h.eng.GetVerdict(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h Challenges) Challengeable(c *gin.Context) {
	ok, reason := h.eng.IsVerdictChallengeable(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"challengeable": ok, "reason": reason})
}

func (h Challenges) Register(c *gin.Context) {
	var req struct {
		VerdictID  string  `json:"verdictId" binding:"required"`
		Claim      string  `json:"claim" binding:"required"`
		Domain     string  `json:"domain"`
		Verdict    string  `json:"verdict" binding:"required,oneof=TRUE FALSE UNCERTAIN"`
		Confidence float64 `json:"confidence" binding:"min=0,max=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	v, err := h.eng.RegisterVerdict(req.VerdictID, req.Claim, req.Domain, req.Verdict, req.Confidence)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h Challenges) ForceResolve(c *gin.Context) {
	var req struct {
		Winner string `json:"winner" binding:"required,oneof=ai challenger"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	res, err := h.eng.ForceResolve(c.Param("id"), req.Winner, req.Reason)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// statusFor maps engine errors onto HTTP codes. Everything the engine rejects
// is recoverable at this boundary; nothing propagates as a fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrChallengeNotFound),
		errors.Is(err, engine.ErrVerdictNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyVoted),
		errors.Is(err, engine.ErrAlreadyResolved),
		errors.Is(err, engine.ErrVerdictExists):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
