package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/model"
)

const testSecret = "test-secret-at-least-16-chars"

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	assert.Error(t, err)

	_, err = NewTokenService(testSecret)
	assert.NoError(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.Generate("user123", model.RoleResearcher)
	require.NoError(t, err)

	id, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", id.UserID)
	assert.Equal(t, model.RoleResearcher, id.Role)
}

func TestValidate_ExpiredToken(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.GenerateWithDuration("user123", model.RoleParticipant, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_WrongSecret(t *testing.T) {
	issuerSvc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	otherSvc, err := NewTokenService("a-completely-different-secret")
	require.NoError(t, err)

	token, err := issuerSvc.Generate("user123", model.RoleParticipant)
	require.NoError(t, err)

	_, err = otherSvc.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Validate(tok)
		assert.Error(t, err, "token %q should not validate", tok)
	}
}

func TestValidate_UnknownRole(t *testing.T) {
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := svc.Generate("user123", model.Role("superuser"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}
