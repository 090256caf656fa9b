package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chab-algo/praxia"
	"github.com/Chab-algo/praxia/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	res := api.HealthResponse{
		Service: praxia.Name,
		Version: praxia.Version,
		Status:  api.HealthHealthy,
	}
	if err := s.engine.Ping(c.Request.Context()); err != nil {
		res.Status = api.HealthUnhealthy
		res.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
