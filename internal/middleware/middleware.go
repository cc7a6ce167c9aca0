package middleware

import (
	"strings"
	"time"

	"tickmate/internal/cache"
	"tickmate/internal/identity"
	"tickmate/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	requestIDKey = "request_id"
)

// RequestLogger tags every request with an id and logs the outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = logger.NewRequestID()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		ctx := logger.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logger.WithContext(c.Request.Context()).Info("Request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Recovery converts panics into 500 responses instead of dropped connections.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithContext(c.Request.Context()).Error("Panic recovered",
			"panic", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(500, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "INTERNAL",
				"message": "internal error",
			},
		})
	})
}

// CORS allows browser clients during development.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Auth validates the bearer token and attaches the resolved principal to the
// request. A short-lived cache entry lets repeat callers skip the JWT parse;
// cache misses and cache failures both fall through to full validation.
func Auth(ids *identity.Service, cacheClient *cache.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		ctx := c.Request.Context()

		if cacheClient != nil {
			if userID, role, err := cacheClient.GetPrincipal(ctx, token); err == nil {
				attachPrincipal(c, &identity.Principal{ID: userID, Role: role})
				c.Next()
				return
			}
		}

		principal, err := ids.ResolvePrincipal(ctx, token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		if cacheClient != nil {
			cacheClient.SetPrincipal(ctx, token, principal.ID, principal.Role)
		}

		attachPrincipal(c, principal)
		c.Next()
	}
}

// RequireRole rejects principals not holding one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			unauthorized(c, "authentication required")
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(403, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "NOT_OWNER",
				"message": "insufficient role",
			},
		})
	}
}

// GetPrincipal returns the authenticated principal, nil when the route is not
// behind Auth.
func GetPrincipal(c *gin.Context) *identity.Principal {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, _ := v.(*identity.Principal)
	return principal
}

func attachPrincipal(c *gin.Context, principal *identity.Principal) {
	c.Set(principalKey, principal)
	ctx := logger.ContextWithUserID(c.Request.Context(), principal.ID)
	c.Request = c.Request.WithContext(ctx)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(401, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
