package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"conference_registration/internal/logger"
	"conference_registration/internal/model"
	"conference_registration/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(jwtUtil *utils.JWTUtil, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(jwtUtil)}, mw...)
	handlers = append(handlers, func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "roles": p.Roles.Strings()})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("test-secret", 1)
	r := newRouter(jwtUtil)

	token, err := jwtUtil.GenerateToken(7, []string{"participant", "ambassador"})
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"roles":["ambassador","participant"]}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer not-a-token").Code)

	forged, err := utils.NewJWTUtil("other-secret", 1).GenerateToken(7, []string{"admin"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer "+forged).Code)

	unknownRole, err := jwtUtil.GenerateToken(7, []string{"superuser"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer "+unknownRole).Code)
}

func TestRequireCapability(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("test-secret", 1)
	r := newRouter(jwtUtil, RequireCapability(model.CapCollectCash))

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"participant is forbidden", []string{"participant"}, http.StatusForbidden},
		{"ambassador collects cash", []string{"participant", "ambassador"}, http.StatusOK},
		{"desk cannot collect cash", []string{"registration_team"}, http.StatusForbidden},
		{"admin passes everything", []string{"admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtUtil.GenerateToken(1, tt.roles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doRequest(r, "Bearer "+token).Code)
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	jwtUtil := utils.NewJWTUtil("test-secret", 1)
	r := newRouter(jwtUtil, AdminMiddleware())

	ambassador, err := jwtUtil.GenerateToken(1, []string{"ambassador"})
	require.NoError(t, err)
	admin, err := jwtUtil.GenerateToken(2, []string{"admin"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer "+ambassador).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "Bearer "+admin).Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure(logger.Config{Level: "debug", Output: &buf})
	defer logger.Configure(logger.Config{Level: "info"})

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"path":"/missing"`)
	assert.Contains(t, buf.String(), `"status":404`)
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("*"))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
