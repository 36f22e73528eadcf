package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suvidha-go/internal/config"
	"suvidha-go/internal/model"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func whoAmI(c *gin.Context) {
	c.String(http.StatusOK, "citizen=%s", CitizenID(c))
}

func TestCitizenAuth(t *testing.T) {
	jwtManager := token.NewJWTManager("secret", 1)
	citizenToken, err := jwtManager.GenerateToken("c-1", token.RoleCitizen)
	require.NoError(t, err)
	adminToken, err := jwtManager.GenerateToken("a-1", token.RoleAdmin)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/required", RequireCitizen(jwtManager), whoAmI)
	r.GET("/optional", OptionalCitizen(jwtManager), whoAmI)
	r.GET("/admin", Authenticate(jwtManager), RequireAdmin(), whoAmI)

	request := func(path, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		return serve(r, req)
	}

	tests := []struct {
		name   string
		path   string
		bearer string
		status int
		body   string
	}{
		{"required route accepts a valid token", "/required", citizenToken, http.StatusOK, "citizen=c-1"},
		{"required route rejects a missing token", "/required", "", http.StatusUnauthorized, ""},
		{"required route rejects a bad token", "/required", "garbage", http.StatusUnauthorized, ""},
		{"optional route is anonymous without a token", "/optional", "", http.StatusOK, "citizen="},
		{"optional route ignores a bad token", "/optional", "garbage", http.StatusOK, "citizen="},
		{"optional route picks up a valid token", "/optional", citizenToken, http.StatusOK, "citizen=c-1"},
		{"required route rejects admin tokens", "/required", adminToken, http.StatusForbidden, ""},
		{"optional route treats admin tokens as anonymous", "/optional", adminToken, http.StatusOK, "citizen="},
		{"admin route rejects a missing token", "/admin", "", http.StatusUnauthorized, ""},
		{"admin route rejects citizens", "/admin", citizenToken, http.StatusForbidden, ""},
		{"admin route accepts admins", "/admin", adminToken, http.StatusOK, "citizen=a-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := request(tc.path, tc.bearer)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

type stubKeys struct {
	keys map[string]*model.APIKey
	err  error
}

func (s stubKeys) Create(context.Context, string, string) (*service.IssuedAPIKey, error) {
	return nil, nil
}

func (s stubKeys) Authenticate(_ context.Context, presented string) (*model.APIKey, error) {
	if s.err != nil {
		return nil, s.err
	}
	if k, ok := s.keys[presented]; ok {
		return k, nil
	}
	return nil, apperr.New(apperr.CodeUnauthorized, "invalid API key")
}

func (s stubKeys) Revoke(context.Context, string) error { return nil }

func TestAPIKeyAuth(t *testing.T) {
	keys := stubKeys{keys: map[string]*model.APIKey{"k1.secret": {ID: "k1", Department: model.DepartmentGas}}}
	r := gin.New()
	r.GET("/integration", APIKeyAuth(keys), func(c *gin.Context) {
		c.String(http.StatusOK, APIKeyDepartment(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/integration", nil)
	req.Header.Set(APIKeyHeader, "k1.secret")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DepartmentGas, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/integration", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	revoked := gin.New()
	revoked.GET("/integration", APIKeyAuth(stubKeys{err: apperr.New(apperr.CodeForbidden, "API key has been revoked")}), whoAmI)
	req = httptest.NewRequest(http.MethodGet, "/integration", nil)
	req.Header.Set(APIKeyHeader, "k1.secret")
	w = serve(revoked, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRequestLoggerKeepsBodyReadable(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.String(http.StatusOK, body.Message)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"message":"hello"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, maxLoggedBody, len(truncate([]byte(strings.Repeat("x", maxLoggedBody)))))
	assert.True(t, strings.HasSuffix(truncate([]byte(strings.Repeat("x", maxLoggedBody+1))), "(truncated)"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowOrigins: []string{"http://localhost:5173"}}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(r, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
