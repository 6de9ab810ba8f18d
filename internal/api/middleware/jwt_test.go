package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/securedocs/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-for-middleware-tests"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, userID uint, expires time.Time) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID:        userID,
		WalletAddress: "0xabc",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func setupRouter() *gin.Engine {
	router := gin.New()
	router.GET("/protected", JWTAuth(testSecret), func(c *gin.Context) {
		userID, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "wallet": c.GetString(ContextWalletAddress)})
	})
	return router
}

func TestJWTAuth(t *testing.T) {
	valid := signToken(t, testSecret, 42, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "missing", status: http.StatusUnauthorized, body: "Authorization header is required"},
		{name: "bad format", header: "Token abc", status: http.StatusUnauthorized, body: "Bearer"},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", 42, time.Now().Add(time.Hour)), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, 42, time.Now().Add(-time.Hour)), status: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer " + valid, status: http.StatusOK, body: `"userId":42`},
		{name: "cookie", cookie: valid, status: http.StatusOK, body: `"wallet":"0xabc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			resp := httptest.NewRecorder()
			setupRouter().ServeHTTP(resp, req)

			assert.Equal(t, tt.status, resp.Code)
			if tt.body != "" {
				assert.Contains(t, resp.Body.String(), tt.body)
			}
		})
	}
}
