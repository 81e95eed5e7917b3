package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/models"
	"eduplatform/internal/response"
	"eduplatform/internal/security"
)

func newGuardedRouter(t *testing.T, issuer *security.TokenIssuer, role models.Role, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(issuer, role)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := Claims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})
	r.GET("/me", handlers...)
	return r
}

func doGet(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	issuer, err := security.NewTokenIssuer("secret")
	require.NoError(t, err)
	other, err := security.NewTokenIssuer("other")
	require.NoError(t, err)

	student := security.Subject{ID: "id-1", Email: "a@x.com", Role: "student"}
	access, err := issuer.IssueAccessToken(student)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken(student)
	require.NoError(t, err)
	forged, err := other.IssueAccessToken(student)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		role       models.Role
		wantStatus int
		wantCode   string
	}{
		{name: "valid token", header: "Bearer " + access, role: models.RoleStudent, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + access, role: models.RoleStudent, wantStatus: http.StatusOK},
		{name: "missing header", role: models.RoleStudent, wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "basic auth", header: "Basic abc", role: models.RoleStudent, wantStatus: http.StatusUnauthorized, wantCode: "MISSING_TOKEN"},
		{name: "refresh token", header: "Bearer " + refresh, role: models.RoleStudent, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "wrong secret", header: "Bearer " + forged, role: models.RoleStudent, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "wrong role", header: "Bearer " + access, role: models.RoleAdmin, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newGuardedRouter(t, issuer, tt.role), tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "id-1", w.Body.String())
				return
			}
			var body response.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	issuer, err := security.NewTokenIssuer("secret")
	require.NoError(t, err)
	token, err := issuer.IssueAccessToken(security.Subject{ID: "id-1", Role: "tutor"})
	require.NoError(t, err)

	allowed := newGuardedRouter(t, issuer, models.RoleTutor, RequireRoles(models.RoleTutor, models.RoleAdmin))
	assert.Equal(t, http.StatusOK, doGet(allowed, "Bearer "+token).Code)

	denied := newGuardedRouter(t, issuer, models.RoleTutor, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, doGet(denied, "Bearer "+token).Code)

	gin.SetMode(gin.TestMode)
	bare := gin.New()
	bare.GET("/me", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, doGet(bare, "").Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := doGet(r, "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Equal(t, w.Header().Get(requestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
