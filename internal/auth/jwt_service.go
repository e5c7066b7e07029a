package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL is the lifetime of a session token when none is configured.
	DefaultSessionTTL = 24 * time.Hour
	// MinSecretLength is the minimum HMAC key size in bytes.
	MinSecretLength = 32
)

var (
	// ErrWeakSecret is returned when the signing secret is shorter than MinSecretLength.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")
	// ErrInvalidToken is returned for any token that fails parsing, signature or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents session token claims. The subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, bool) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// SessionToken is a signed token together with its expiry.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// JWTService handles JWT token generation and validation. It never touches
// the database: every claim needed to authorize a request is inside the token.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and token lifetime.
func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken issues a signed session token for the user.
func (s *JWTService) GenerateToken(userID uint, username, role string) (*SessionToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &SessionToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractUserID returns the user id of a valid token.
func (s *JWTService) ExtractUserID(tokenString string) (uint, bool) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return 0, false
	}
	return claims.UserID()
}

// ExtractRole returns the role claim of a valid token.
func (s *JWTService) ExtractRole(tokenString string) (string, bool) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", false
	}
	return claims.Role, true
}

// IsTokenExpired reports whether the token can no longer be used. Tokens that
// cannot be parsed or verified count as expired.
func (s *JWTService) IsTokenExpired(tokenString string) bool {
	claims, err := s.parse(tokenString)
	if err != nil {
		return true
	}
	return claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now())
}

func (s *JWTService) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, ok := claims.UserID(); !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
