package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextSubject is the key for the client name in gin context
	ContextSubject = "auth_subject"
	// ContextClientID is the key for the token's client ID in gin context
	ContextClientID = "auth_client_id"
)

// Middleware validates bearer tokens and sets client context
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextClientID, claims.ClientID)
		c.Next()
	}
}

// OptionalMiddleware records the client if a valid token is present but
// lets anonymous requests through
func OptionalMiddleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := issuer.ValidateToken(tokenString); err == nil {
				c.Set(ContextSubject, claims.Subject)
				c.Set(ContextClientID, claims.ClientID)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetSubject retrieves the client name from the gin context
func GetSubject(c *gin.Context) string {
	return c.GetString(ContextSubject)
}
