package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/Chab-algo/praxia/internal/engine"
	"github.com/Chab-algo/praxia/internal/engine/event"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/util"
)

// Server implements the HTTP API of the workflow engine
type Server struct {
	engine  *engine.Engine
	alerts  *event.Hub[api.BudgetAlert]
	sockets util.Set[*Client]
	mu      sync.Mutex
}

// NewServer creates a new HTTP API server. Budget alerts published to hub
// are forwarded to WebSocket clients
func NewServer(eng *engine.Engine, hub *event.Hub[api.BudgetAlert]) *Server {
	return &Server{
		engine:  eng,
		alerts:  hub,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods", "GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	eng := router.Group("/engine")
	{
		eng.POST("/execute", s.execute)
		eng.GET("/budget", s.budgetStatus)
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// ActiveWebSockets returns the number of connected WebSocket clients
func (s *Server) ActiveWebSockets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sockets.Len()
}
