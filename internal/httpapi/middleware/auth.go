// Package middleware holds Gin middleware for the registry's HTTP
// edge: bearer-token decoding into a caller identity, generalized
// from the teacher's OptionalJWTMiddleware (dev-mode mock identity
// when disabled, claim-format tolerance when enabled).
package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	devUsername = "dev-user"
	devGroup    = "dev-group"

	contextUsernameKey = "username"
	contextGroupsKey   = "groups"

	defaultSigningKey = "mcp-registry-default-secret-change-in-production"
)

// AuthMiddleware decodes a bearer JWT into the request context as
// (username, groups[]), tolerating several claim-naming conventions
// upstream identity providers use (spec.md §6 "How these are obtained
// ... is an adapter concern" — this adapter picks JWT). Disabled via
// enableJWT=false injects a fixed development identity, matching the
// teacher's dev-mode convenience path; callers must not rely on this
// outside local development.
func AuthMiddleware(enableJWT bool, signingKey string) gin.HandlerFunc {
	if signingKey == "" {
		signingKey = os.Getenv("JWT_SECRET")
	}
	if signingKey == "" {
		signingKey = defaultSigningKey
	}

	return func(c *gin.Context) {
		if !enableJWT {
			c.Set(contextUsernameKey, devUsername)
			c.Set(contextGroupsKey, []string{devGroup})
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "missing or malformed Authorization header"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return []byte(signingKey), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "malformed claims"})
			return
		}

		username := firstNonEmptyClaim(claims, "username", "userId", "user_id", "sub")
		if username == "" {
			if nested, ok := claims["identity"].(map[string]interface{}); ok {
				username = firstNonEmptyClaim(nested, "id", "username")
			}
		}
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "token carries no usable identity claim"})
			return
		}

		c.Set(contextUsernameKey, username)
		c.Set(contextGroupsKey, groupsFromClaims(claims))
		c.Next()
	}
}

func firstNonEmptyClaim(claims map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func groupsFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["groups"].([]interface{})
	if !ok {
		if nested, ok := claims["identity"].(map[string]interface{}); ok {
			raw, _ = nested["groups"].([]interface{})
		}
	}
	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}

// CallerIdentity reads back the (username, groups) pair AuthMiddleware
// stored on the context.
func CallerIdentity(c *gin.Context) (string, []string) {
	username, _ := c.Get(contextUsernameKey)
	groups, _ := c.Get(contextGroupsKey)
	u, _ := username.(string)
	g, _ := groups.([]string)
	return u, g
}
