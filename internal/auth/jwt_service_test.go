package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdefghijklmnop"

func newTestJWTService(t *testing.T, secret string) *JWTService {
	t.Helper()
	svc, err := NewJWTService(secret, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_RejectsWeakSecret(t *testing.T) {
	_, err := NewJWTService("too-short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestNewJWTService_DefaultTTL(t *testing.T) {
	svc, err := NewJWTService(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, svc.TTL())
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	issued, err := svc.GenerateToken(42, "alice", "ADMIN")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	id, ok := claims.UserID()
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_DistinctUsersGetDistinctTokens(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	a, err := svc.GenerateToken(1, "alice", "USER")
	require.NoError(t, err)
	b, err := svc.GenerateToken(2, "bob", "USER")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)

	idA, ok := svc.ExtractUserID(a.Token)
	assert.True(t, ok)
	assert.Equal(t, uint(1), idA)
	idB, ok := svc.ExtractUserID(b.Token)
	assert.True(t, ok)
	assert.Equal(t, uint(2), idB)
}

func TestJWTService_SameUserTokensDiffer(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	a, err := svc.GenerateToken(1, "alice", "USER")
	require.NoError(t, err)
	b, err := svc.GenerateToken(1, "alice", "USER")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestJWTService_WrongSecret(t *testing.T) {
	signer := newTestJWTService(t, testSecret)
	verifier := newTestJWTService(t, strings.Repeat("x", 40))

	issued, err := signer.GenerateToken(7, "carol", "USER")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, ok := verifier.ExtractUserID(issued.Token)
	assert.False(t, ok)
	assert.True(t, verifier.IsTokenExpired(issued.Token))
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWTService(t, testSecret)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := svc.GenerateToken(3, "dave", "USER")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, svc.IsTokenExpired(issued.Token))
	_, ok := svc.ExtractRole(issued.Token)
	assert.False(t, ok)
}

func TestJWTService_InvalidInputsNeverPanic(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	for _, input := range []string{"", "not.a.jwt", "a.b", "Bearer xyz", strings.Repeat("a", 1000)} {
		_, err := svc.ValidateToken(input)
		assert.Error(t, err, input)
		_, ok := svc.ExtractUserID(input)
		assert.False(t, ok, input)
		role, ok := svc.ExtractRole(input)
		assert.False(t, ok, input)
		assert.Empty(t, role, input)
		assert.True(t, svc.IsTokenExpired(input), input)
	}
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	claims := &Claims{
		Username: "mallory",
		Role:     "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsMissingSubject(t *testing.T) {
	svc := newTestJWTService(t, testSecret)

	claims := &Claims{
		Username: "ghost",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
