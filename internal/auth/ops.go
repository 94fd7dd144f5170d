package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"jobboard-ivr/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Manager issues and verifies the short-lived HS256 tokens protecting the
// ops endpoints. There is a single token type; the subject is the operator.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(cfg config.OpsConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("OPS_JWT_SECRET is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(cfg.JWTSecret), ttl: ttl}, nil
}

const issuer = "jobboard-ivr"

func (m *Manager) Issue(now time.Time, operator string) (string, error) {
	if operator == "" {
		return "", errors.New("operator is required")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   operator,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify returns the operator name for a valid token.
func (m *Manager) Verify(tokenString string, now time.Time) (string, error) {
	var claims jwt.RegisteredClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("subject missing")
	}
	return claims.Subject, nil
}

const ctxOperatorKey = "ops_operator"

// RequireToken is a gin middleware enforcing a bearer ops token.
func RequireToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(h, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		operator, err := m.Verify(strings.TrimPrefix(h, prefix), time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxOperatorKey, operator)
		c.Next()
	}
}

// Operator returns the authenticated operator name from the gin context.
func Operator(c *gin.Context) string {
	if v, ok := c.Get(ctxOperatorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
