package identity

import (
	"context"
	"testing"
	"time"

	apperrors "tickmate/internal/errors"
	"tickmate/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(ttl time.Duration) *Service {
	return NewService(nil, Config{JWTSecret: "test-secret", TokenTTL: ttl})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := testService(time.Hour)
	user := &models.User{UserID: 42, Role: models.RoleAttendee}

	token, expiresAt, err := svc.IssueToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	principal, err := svc.ResolvePrincipal(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, int64(42), principal.ID)
	assert.Equal(t, models.RoleAttendee, principal.Role)
}

func TestResolvePrincipal_WrongSecret(t *testing.T) {
	svc := testService(time.Hour)
	other := NewService(nil, Config{JWTSecret: "different-secret", TokenTTL: time.Hour})

	token, _, err := other.IssueToken(&models.User{UserID: 1, Role: models.RoleHost})
	require.NoError(t, err)

	_, err = svc.ResolvePrincipal(context.Background(), token)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestResolvePrincipal_ExpiredToken(t *testing.T) {
	svc := testService(-time.Minute)

	token, _, err := svc.IssueToken(&models.User{UserID: 1, Role: models.RoleHost})
	require.NoError(t, err)

	_, err = svc.ResolvePrincipal(context.Background(), token)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestResolvePrincipal_Garbage(t *testing.T) {
	svc := testService(time.Hour)

	_, err := svc.ResolvePrincipal(context.Background(), "not-a-token")
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

// A token signed with "none" must never pass, even with a valid payload.
func TestResolvePrincipal_UnsignedAlgRejected(t *testing.T) {
	svc := testService(time.Hour)

	claims := jwt.MapClaims{
		"sub":  "42",
		"role": models.RoleHost,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ResolvePrincipal(context.Background(), signed)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestResolvePrincipal_MissingRole(t *testing.T) {
	svc := testService(time.Hour)

	claims := jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ResolvePrincipal(context.Background(), signed)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestPrincipalHasRole(t *testing.T) {
	principal := &Principal{ID: 1, Role: models.RoleStaff}

	assert.True(t, principal.HasRole(models.RoleStaff))
	assert.False(t, principal.HasRole(models.RoleHost))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasRole(models.RoleStaff))
}
