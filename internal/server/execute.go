package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chab-algo/praxia/pkg/api"
)

var (
	ErrInvalidJSON     = errors.New("invalid JSON request")
	ErrGetBudgetStatus = errors.New("failed to get budget status")
)

func (s *Server) execute(c *gin.Context) {
	var req api.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Type:   api.ErrorTypeConfiguration,
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := req.Validate(); err != nil {
		s.executeFailed(c, err)
		return
	}

	res, err := s.engine.Execute(
		c.Request.Context(), req.Workflow, req.Input, req.CallerID, req.Tier,
	)
	if err != nil {
		s.executeFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) executeFailed(c *gin.Context, err error) {
	typ := api.ClassifyError(err)
	status := statusFor(typ)
	resp := api.ErrorResponse{
		Error:  err.Error(),
		Type:   typ,
		Status: status,
	}

	var exErr *api.ExecutionError
	if errors.As(err, &exErr) {
		resp.Result = exErr.Result
	}
	c.JSON(status, resp)
}

func (s *Server) budgetStatus(c *gin.Context) {
	st, err := s.engine.Budget().Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrGetBudgetStatus, err),
			Status: http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

func statusFor(typ api.ErrorType) int {
	switch typ {
	case api.ErrorTypeConfiguration:
		return http.StatusBadRequest
	case api.ErrorTypeBudget, api.ErrorTypeGlobalBudget:
		return http.StatusPaymentRequired
	case api.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusUnprocessableEntity
	}
}
