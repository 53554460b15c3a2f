package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moviecatalog/internal/model"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func protected() *gin.Engine {
	r := gin.New()
	r.GET("/admin/movies", RequireAuth(secret), RequireAdmin(), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.String(http.StatusOK, u.Username)
	})
	return r
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	r := protected()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/movies?page=2", nil)
	req.Header.Set("Accept", "text/html")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Fmovies%3Fpage%3D2", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/movies", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRequireAdminRole(t *testing.T) {
	r := protected()

	staff, err := GenerateToken(2, "bob", model.RoleStaff, secret, time.Hour)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/movies", nil)
	req.Header.Set("Authorization", "Bearer "+staff)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := GenerateToken(1, "ann", model.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/movies", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: admin})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ann", w.Body.String())
	assert.Empty(t, w.Result().Cookies(), "fresh token is not reissued")
}

func TestRequireAuthRejectsForeignSignature(t *testing.T) {
	token, err := GenerateToken(1, "ann", model.RoleAdmin, "other-secret", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/movies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSlidingRefresh(t *testing.T) {
	issued := time.Now().Add(-40 * time.Minute)
	claims := &Claims{
		UserID:   1,
		Username: "ann",
		Role:     model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}
	assert.True(t, shouldRefresh(claims))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/movies", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	protected().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, TokenCookie, cookies[0].Name)
	assert.NotEqual(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})

	r := gin.New()
	r.Use(Logger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INFO]")
	assert.Contains(t, lines[0], "http: request")
	assert.Contains(t, lines[0], "path=/ok")
	assert.Contains(t, lines[1], "[ERROR]")
	assert.Contains(t, lines[1], "status=500")
}
