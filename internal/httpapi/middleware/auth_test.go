package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	secret := "test-secret"
	generateToken := func(claims map[string]interface{}) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
		s, _ := token.SignedString([]byte(secret))
		return s
	}

	tests := []struct {
		name           string
		enableJWT      bool
		signingKey     string
		authHeader     string
		expectedStatus int
		expectedUser   string
		expectedGroups []string
	}{
		{
			name:           "JWT disabled - dev mode with mock identity",
			enableJWT:      false,
			authHeader:     "",
			expectedStatus: http.StatusOK,
			expectedUser:   devUsername,
			expectedGroups: []string{devGroup},
		},
		{
			name:       "JWT enabled - valid token",
			enableJWT:  true,
			signingKey: secret,
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"username": "user-123",
				"groups":   []interface{}{"team-a", "team-b"},
				"exp":      time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusOK,
			expectedUser:   "user-123",
			expectedGroups: []string{"team-a", "team-b"},
		},
		{
			name:       "JWT enabled - identity nested format",
			enableJWT:  true,
			signingKey: secret,
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"identity": map[string]interface{}{
					"id":     "user-nested",
					"groups": []interface{}{"nested-group"},
				},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusOK,
			expectedUser:   "user-nested",
			expectedGroups: []string{"nested-group"},
		},
		{
			name:           "JWT enabled - missing Authorization header",
			enableJWT:      true,
			signingKey:     secret,
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "JWT enabled - malformed Bearer prefix",
			enableJWT:      true,
			signingKey:     secret,
			authHeader:     "Token abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "JWT enabled - expired token",
			enableJWT:  true,
			signingKey: secret,
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"username": "user-123",
				"exp":      time.Now().Add(-time.Hour).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "JWT enabled - wrong signing key",
			enableJWT:  true,
			signingKey: "a-different-secret",
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"username": "user-123",
				"exp":      time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "JWT enabled - sub claim fallback",
			enableJWT:  true,
			signingKey: secret,
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"sub": "user-sub",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusOK,
			expectedUser:   "user-sub",
			expectedGroups: []string{},
		},
		{
			name:       "JWT enabled - no usable identity claim",
			enableJWT:  true,
			signingKey: secret,
			authHeader: "Bearer " + generateToken(map[string]interface{}{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(tt.enableJWT, tt.signingKey))
			router.GET("/test", func(c *gin.Context) {
				username, groups := CallerIdentity(c)
				c.JSON(http.StatusOK, gin.H{"username": username, "groups": groups})
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var body struct {
				Username string   `json:"username"`
				Groups   []string `json:"groups"`
			}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedUser, body.Username)
			assert.Equal(t, tt.expectedGroups, body.Groups)
		})
	}
}

func TestAuthMiddlewareDefaultSigningKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "user-default",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(defaultSigningKey))
	assert.NoError(t, err)

	router := gin.New()
	router.Use(AuthMiddleware(true, ""))
	router.GET("/test", func(c *gin.Context) {
		username, _ := CallerIdentity(c)
		c.JSON(http.StatusOK, gin.H{"username": username})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-default")
}
