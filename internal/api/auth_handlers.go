package api

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/shelfscan/internal/auth"
)

// AuthHandler issues and describes client tokens
type AuthHandler struct {
	issuer *auth.Issuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

var subjectRegex = regexp.MustCompile(`^[a-zA-Z0-9._@-]+$`)

// maxTokenTTL bounds tokens issued over HTTP.
const maxTokenTTL = 365 * 24 * time.Hour

// IssueToken creates a bearer token for a named client
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		Subject  string `json:"subject" binding:"required"`
		TTLHours int    `json:"ttl_hours"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	if len(req.Subject) < 2 || len(req.Subject) > 64 || !subjectRegex.MatchString(req.Subject) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject must be 2-64 characters of letters, digits, '.', '_', '@' or '-'"})
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	if req.TTLHours < 0 || ttl > maxTokenTTL {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ttl_hours out of range"})
		return
	}

	var (
		token string
		err   error
	)
	if ttl > 0 {
		token, err = h.issuer.GenerateTokenWithTTL(req.Subject, ttl)
	} else {
		token, err = h.issuer.GenerateToken(req.Subject)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	claims, err := h.issuer.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"subject":    claims.Subject,
		"client_id":  claims.ClientID,
		"expires_at": claims.ExpiresAt.Time,
		"issued_by":  auth.GetSubject(c),
	})
}

// WhoAmI returns the client the request's token was issued to
func (h *AuthHandler) WhoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"subject":   auth.GetSubject(c),
		"client_id": c.GetString(auth.ContextClientID),
	})
}
