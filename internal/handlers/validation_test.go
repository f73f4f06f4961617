package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

func newBindRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())
	r := gin.New()
	r.POST("/milestones", func(c *gin.Context) {
		var req services.CreateMilestoneRequest
		if !bindJSON(c, &req) {
			return
		}
		response.Success(c, req.Amount)
	})
	return r
}

func TestBindJSON_MoneyTag(t *testing.T) {
	r := newBindRouter(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"two decimals", `{"title":"Design","amount":1250.75}`, http.StatusOK, ""},
		{"whole amount", `{"title":"Design","amount":300}`, http.StatusOK, ""},
		{"fractional cents", `{"title":"Design","amount":10.125}`, http.StatusBadRequest, "amount must have at most two decimal places"},
		{"zero amount", `{"title":"Design","amount":0}`, http.StatusBadRequest, "amount is required"},
		{"negative amount", `{"title":"Design","amount":-5}`, http.StatusBadRequest, "amount must be greater than 0"},
		{"missing title", `{"amount":10}`, http.StatusBadRequest, "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/milestones", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.message != "" {
				var resp response.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.message, resp.Message)
			}
		})
	}
}

func TestBindErrorMessage_PassesThroughDecodeErrors(t *testing.T) {
	r := newBindRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/milestones", strings.NewReader(`{"amount":"lots"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "decimal places")
}
