package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

func attachRoutes(r *gin.Engine, cfg config.Config, eng *engine.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	limiter := NewRateLimiter(60, time.Minute)

	chalH := NewChallenges(eng)
	voteH := NewVotes(eng)
	treH := NewTreasuryHandlers(eng)
	repH := NewReputationHandlers(eng)

	v1 := r.Group("/v1")
	v1.Use(RateLimitMiddleware(limiter))
	{
		v1.POST("/challenges", chalH.Submit)
		v1.GET("/challenges/active", chalH.Active)
		v1.GET("/challenges/wallet/:wallet", chalH.ByWallet)
		v1.GET("/challenges/:id", chalH.Get)
		v1.GET("/challenges/:id/votes", voteH.List)
		v1.POST("/challenges/:id/votes", voteH.Cast)

		v1.GET("/verdicts/:id", chalH.Verdict)
		v1.GET("/verdicts/:id/challengeable", chalH.Challengeable)

		v1.GET("/voters/:wallet", repH.Voter)
		v1.GET("/voters/:wallet/limits", repH.Limits)
		v1.GET("/leaderboard/challengers", repH.TopChallengers)
		v1.GET("/leaderboard/voters", repH.TopVoters)

		v1.GET("/treasury", treH.Stats)
	}

	admin := v1.Group("/admin")
	admin.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
	{
		admin.POST("/verdicts", chalH.Register)
		admin.POST("/challenges/:id/force-resolve", chalH.ForceResolve)
		admin.POST("/treasury/deposit", treH.Deposit)
		admin.GET("/treasury/transactions", treH.Transactions)
	}
}
