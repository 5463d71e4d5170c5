package delivery

import (
	"net/http"
	"strings"

	"onlyjobs-backend/internal/auth/domain"
	"onlyjobs-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingBearer
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", domain.ErrMalformedBearer
	}
	return strings.TrimSpace(parts[1]), nil
}

func AuthMiddleware(verifier usecase.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidToken.Error()})
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*domain.Identity)
	return id, ok
}

// SetIdentity attaches a verified identity to the request context.
func SetIdentity(c *gin.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
}
