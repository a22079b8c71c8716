package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/types"
)

func newContext(target string, header map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, target, nil)
	for k, v := range header {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		header  map[string]string
		want    v1.UserClaims
		wantErr bool
	}{
		{
			name:   "header",
			target: "/mcp",
			header: map[string]string{"X-User-Id": " u1 ", "X-User-Role": "system"},
			want:   v1.UserClaims{User: "u1", Role: "system"},
		},
		{
			name:   "query params",
			target: "/mcp?user_id=u2&role=member",
			want:   v1.UserClaims{User: "u2", Role: "member"},
		},
		{
			name:   "header wins over query",
			target: "/mcp?user_id=u2&role=system",
			header: map[string]string{"X-User-Id": "u1"},
			want:   v1.UserClaims{User: "u1"},
		},
		{
			name:   "blank header falls back to query",
			target: "/mcp?user_id=u2",
			header: map[string]string{"X-User-Id": "  ", "X-User-Role": "system"},
			want:   v1.UserClaims{User: "u2"},
		},
		{
			name:    "missing",
			target:  "/mcp?role=system",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateRequest(newContext(tt.target, tt.header))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims)
		})
	}
}

func TestUserContext(t *testing.T) {
	_, ok := GetUserContext(context.Background())
	assert.False(t, ok)

	ctx := SetUserContext(context.Background(), v1.UserClaims{User: "course-service", Role: "system"})
	claims, ok := GetUserContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "course-service", claims.User)
	assert.True(t, claims.IsSystem())
}

func TestClientLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", types.LANGUAGE_EN_KEY},
		{"zh-CN,zh;q=0.9,en;q=0.8", types.LANGUAGE_CN_KEY},
		{"en-US,en;q=0.9,zh;q=0.8", types.LANGUAGE_EN_KEY},
		{"en;q=0.5,zh-TW;q=0.9", types.LANGUAGE_CN_KEY},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientLanguage(newContext("/mcp", map[string]string{"Accept-Language": tt.header})))
		})
	}
}
