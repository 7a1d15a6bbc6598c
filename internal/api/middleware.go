package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const (
	roleAdmin    = string(domain.RoleAdmin)
	claimsCtxKey = "claims"
)

// Claims carries the user id as subject plus email and role.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim; zero means no numeric subject.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TokenIssuer signs HS256 tokens for logged-in users.
type TokenIssuer struct {
	secret string
	ttl    time.Duration
}

var _ ports.TokenIssuer = (*TokenIssuer)(nil)

// NewTokenIssuer returns an issuer whose tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue signs a token for user.
func (t *TokenIssuer) Issue(user domain.User) (string, error) {
	if t.secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	return IssueToken(t.secret, strconv.FormatInt(user.ID, 10), user.Email, string(user.Role), t.ttl)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			logger.Error("http request", append(attrs, "errors", c.Errors.String())...)
			return
		}
		logger.Debug("http request", attrs...)
	}
}

// authMiddleware validates the bearer token. An empty secret lets every request through.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsCtxKey, claims)
		c.Next()
	}
}

func requireRole(secret, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		claims, ok := claimsFrom(c)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ParseToken validates an HMAC-signed token and returns its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// IssueToken signs a token for subject with email and role, valid for ttl.
func IssueToken(secret, subject, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func claimsFrom(c *gin.Context) (*Claims, bool) {
	value, ok := c.Get(claimsCtxKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
