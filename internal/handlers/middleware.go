package handlers

import (
	"net/http"
	"strings"

	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const operatorCtx = "operatorId"

const (
	errMissingAuth   = "missing Authorization header"
	errMalformedAuth = "invalid Authorization header format"
	errBadToken      = "invalid or expired token"
)

// bearerToken extracts the token from "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// operatorIdMiddleware authenticates the operator and tags both the gin
// context and the request context, so control calls made with
// c.Request.Context() are attributed to that operator in the event log.
func (h *Handler) operatorIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuth})
		return
	}
	token, ok := bearerToken(header)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMalformedAuth})
		return
	}

	operatorId, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "err", err, "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	c.Set(operatorCtx, operatorId)
	c.Request = c.Request.WithContext(service.WithOperator(c.Request.Context(), operatorId))
	c.Next()
}
