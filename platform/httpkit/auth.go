package httpkit

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	identityKey = "identity"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// Identity is the caller resolved from an access token. The account is the
// wallet holder: the account_id claim when present, otherwise the subject.
type Identity struct {
	userID    uuid.UUID
	accountID uuid.UUID
	roles     []string
}

func (i *Identity) UserID() uuid.UUID    { return i.userID }
func (i *Identity) AccountID() uuid.UUID { return i.accountID }
func (i *Identity) Roles() []string      { return i.roles }

func (i *Identity) HasRole(role string) bool {
	return slices.Contains(i.roles, role)
}

// GetIdentity returns the caller, or nil on unauthenticated routes.
func GetIdentity(c *gin.Context) *Identity {
	raw, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := raw.(*Identity)
	return id
}

// MustGetIdentity aborts with 401 and returns nil when no caller is attached.
func MustGetIdentity(c *gin.Context) *Identity {
	id := GetIdentity(c)
	if id == nil {
		abortUnauthorized(c, "unauthorized")
	}
	return id
}

// AuthRequired validates HS256 access tokens from the Authorization header,
// or the token query parameter for download links.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			rawToken = c.Query("token")
			if rawToken == "" {
				abortUnauthorized(c, errMissingToken)
				return
			}
		}

		id, err := identityFromToken(rawToken, cfg)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(logger.WithAccount(c.Request.Context(), id.accountID))
		c.Next()
	}
}

// RequireRole must run after AuthRequired.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetIdentity(c)
		if id == nil || !id.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func identityFromToken(rawToken string, cfg config.JWTConfig) (*Identity, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.GetJWTAccessSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, errors.New(errInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	accountID := userID
	if raw, ok := claims["account_id"].(string); ok && strings.TrimSpace(raw) != "" {
		accountID, err = uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
	}

	return &Identity{userID: userID, accountID: accountID, roles: extractRoles(claims["roles"])}, nil
}

func extractRoles(value interface{}) []string {
	roles := make([]string, 0)
	switch typed := value.(type) {
	case []string:
		roles = append(roles, typed...)
	case []interface{}:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				roles = append(roles, text)
			}
		}
	}
	return roles
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return rawToken, rawToken != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}
