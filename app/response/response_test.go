package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
)

func newEngine(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(ProvideResponseLocalizer(i18n.NewLocalizer("en", "zh-CN")), NewResponse())
	e.GET("/", handler)
	return e
}

func do(t *testing.T, e *gin.Engine, header map[string]string) (*httptest.ResponseRecorder, Response) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	var res Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w, res
}

func TestAPISuccess(t *testing.T) {
	e := newEngine(func(c *gin.Context) {
		APISuccess(c, map[string]string{"id": "k1"})
	})

	w, res := do(t, e, map[string]string{"X-Request-Id": "req-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.Success)
	assert.Equal(t, "req-1", res.Meta.RequestID)
	assert.Equal(t, map[string]interface{}{"id": "k1"}, res.Data)
}

func TestAPIError(t *testing.T) {
	e := newEngine(func(c *gin.Context) {
		APIError(c, errors.New("test", i18n.ERROR_EMPTY_QUERY, errors.ErrValidation))
	})

	w, res := do(t, e, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusBadRequest, res.Meta.Code)
	assert.NotEmpty(t, res.Meta.RequestID)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, res.Error, res.Meta.Message)
}

func TestAPIErrorPlain(t *testing.T) {
	e := newEngine(func(c *gin.Context) {
		APIError(c, fmt.Errorf("boom"))
	})

	w, res := do(t, e, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", res.Error)
}
