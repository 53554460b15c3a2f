package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/moviecatalog/internal/model"
	"github.com/user/moviecatalog/internal/utils"
)

// TokenCookie holds the signed admin token.
const TokenCookie = "token"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/admin/login"

// Claims are the JWT claims of an admin session.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid token.
// Page requests are redirected to the login page, API requests get 401.
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
				c.Abort()
				return
			}
			utils.Unauthorized(c, "")
			return
		}

		setUser(c, claims)

		// sliding expiry: reissue once half the lifetime is used
		if shouldRefresh(claims) {
			lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
			newToken, err := GenerateToken(claims.UserID, claims.Username, claims.Role, jwtSecret, lifetime)
			if err == nil {
				SetTokenCookie(c, newToken, lifetime)
			}
		}

		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || role != model.RoleAdmin {
			if wantsHTML(c) {
				c.String(http.StatusForbidden, "admin role required")
				c.Abort()
				return
			}
			utils.Forbidden(c, "admin role required")
			return
		}
		c.Next()
	}
}

// SetTokenCookie stores token in the HttpOnly token cookie.
func SetTokenCookie(c *gin.Context, token string, lifetime time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, int(lifetime.Seconds()), "/", "", false, true)
}

// ClearTokenCookie logs the browser out.
func ClearTokenCookie(c *gin.Context) {
	c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
}

func setUser(c *gin.Context, claims *Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// extractClaims reads the token from the cookie, falling back to a Bearer header.
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string

	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		tokenString = cookie
	} else {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// CurrentUser returns the authenticated user, or ok=false.
func CurrentUser(c *gin.Context) (model.SessionUser, bool) {
	id, exists := c.Get("user_id")
	if !exists {
		return model.SessionUser{}, false
	}
	return model.SessionUser{
		ID:       id.(uint),
		Username: c.GetString("username"),
		Role:     c.GetString("role"),
	}, true
}

// GenerateToken signs an HS256 token valid for expiry.
func GenerateToken(userID uint, username, role, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// shouldRefresh reports whether more than half of the token lifetime has passed.
func shouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}

	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	elapsed := time.Since(claims.IssuedAt.Time)

	return elapsed > total/2
}
