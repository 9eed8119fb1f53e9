package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("unit-test-key", "custodia", "custodia-api")

	token, err := svc.GenerateAccessToken(domain.Identity("acct-mfr-1"), time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-mfr-1", claims.Identity)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("unit-test-key", "custodia", "custodia-api")

	token, err := svc.GenerateAccessToken(domain.Identity("acct-mfr-1"), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	svc := NewService("unit-test-key", "custodia", "custodia-api")
	other := NewService("different-key", "custodia", "custodia-api")

	token, err := svc.GenerateAccessToken(domain.Identity("acct-mfr-1"), time.Minute)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = other.ValidateToken("not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
