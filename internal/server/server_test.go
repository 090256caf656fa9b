package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chab-algo/praxia"
	"github.com/Chab-algo/praxia/internal/assert/helpers"
	"github.com/Chab-algo/praxia/internal/server"
	"github.com/Chab-algo/praxia/pkg/api"
)

type testServerEnv struct {
	*helpers.TestEngineEnv
	Server *server.Server
	Router *gin.Engine
}

func testServer(t *testing.T, opts ...helpers.EnvOption) *testServerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := helpers.NewTestEngine(t, opts...)
	srv := server.NewServer(env.Engine, env.Alerts)
	t.Cleanup(srv.CloseWebSockets)
	return &testServerEnv{
		TestEngineEnv: env,
		Server:        srv,
		Router:        srv.SetupRoutes(),
	}
}

func (e *testServerEnv) do(
	method, path string, body any,
) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func sentimentRequest(tier api.Tier) *api.ExecuteRequest {
	return &api.ExecuteRequest{
		Workflow: helpers.NewWorkflow("sentiment",
			helpers.NewLLMStep("classify", "Classify {{text}}"),
		),
		Input:    api.Args{"text": "great product"},
		CallerID: "acme",
		Tier:     tier,
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := testServer(t)

	t.Run("healthy", func(t *testing.T) {
		w := env.do("GET", "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp api.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, praxia.Name, resp.Service)
		assert.Equal(t, praxia.Version, resp.Version)
		assert.Equal(t, api.HealthHealthy, resp.Status)
	})

	t.Run("store_down", func(t *testing.T) {
		env.Redis.Close()
		w := env.do("GET", "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp api.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, api.HealthUnhealthy, resp.Status)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t)

	w := env.do("OPTIONS", "/engine/execute", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, env.Provider.Calls())
}

func TestExecute(t *testing.T) {
	env := testServer(t)
	env.Provider.QueueContent(api.ModelNano, "positive", 20, 3)

	w := env.do("POST", "/engine/execute", sentimentRequest(api.TierPro))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res api.ExecutionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "positive", res.Output)
	assert.Equal(t, []string{api.ModelNano}, res.ModelsUsed)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, api.StepCompleted, res.Steps[0].Status)
}

func TestExecuteInvalidJSON(t *testing.T) {
	env := testServer(t)

	w := env.do("POST", "/engine/execute", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Contains(t, resp.Error, server.ErrInvalidJSON.Error())
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestExecuteConfigurationError(t *testing.T) {
	env := testServer(t)

	t.Run("missing_workflow", func(t *testing.T) {
		w := env.do("POST", "/engine/execute", map[string]any{
			"input": map[string]any{"text": "x"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, api.ErrorTypeConfiguration, resp.Type)
		assert.Nil(t, resp.Result)
	})

	t.Run("unknown_step_type", func(t *testing.T) {
		req := sentimentRequest(api.TierPro)
		req.Workflow.Steps[0].Type = "teleport"
		w := env.do("POST", "/engine/execute", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, api.ErrorTypeConfiguration, resp.Type)
	})

	assert.Zero(t, env.Provider.Calls())
}

func TestExecuteStepFailure(t *testing.T) {
	env := testServer(t)
	env.Provider.QueueContent(api.ModelNano, "first", 10, 5)
	env.Provider.QueueError(helpers.ErrMockProvider)

	req := sentimentRequest(api.TierPro)
	req.Workflow = helpers.NewWorkflow("chain",
		helpers.NewLLMStep("one", "First {{text}}"),
		helpers.NewLLMStep("two", "Second {{steps.one.output}}"),
	)
	w := env.do("POST", "/engine/execute", req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, api.ErrorTypeStepExecution, resp.Type)
	require.NotNil(t, resp.Result)
	require.Len(t, resp.Result.Steps, 2)
	assert.Equal(t, api.StepCompleted, resp.Result.Steps[0].Status)
	assert.Equal(t, api.StepFailed, resp.Result.Steps[1].Status)
}

func TestExecuteBudgetExceeded(t *testing.T) {
	env := testServer(t, helpers.WithBudgetLimit(0.0001))

	w := env.do("POST", "/engine/execute", sentimentRequest(api.TierPro))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, api.ErrorTypeGlobalBudget, resp.Type)
	assert.NotNil(t, resp.Result)
	assert.Zero(t, env.Provider.Calls())
}

func TestExecuteRateLimited(t *testing.T) {
	env := testServer(t)

	for range 5 {
		w := env.do("POST", "/engine/execute", sentimentRequest(api.TierTrial))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do("POST", "/engine/execute", sentimentRequest(api.TierTrial))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, api.ErrorTypeRateLimit, decodeError(t, w).Type)
}

func TestBudgetStatus(t *testing.T) {
	env := testServer(t, helpers.WithBudgetLimit(10))

	w := env.do("GET", "/engine/budget", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st api.BudgetStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Zero(t, st.SpentUSD)
	assert.Equal(t, 10.0, st.LimitUSD)
	assert.Equal(t, 10.0, st.RemainingUSD)

	env.Redis.Close()
	w = env.do("GET", "/engine/budget", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t,
		decodeError(t, w).Error, server.ErrGetBudgetStatus.Error(),
	)
}
