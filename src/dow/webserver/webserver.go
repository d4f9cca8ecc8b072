package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/aletheia-protocol/aletheia-dow/src/dow/config"
	"github.com/aletheia-protocol/aletheia-dow/src/dow/engine"
)

func New(cfg config.Config, eng *engine.Engine) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, eng)
	return g
}
