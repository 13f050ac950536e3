// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(15*time.Minute, 7*24*time.Hour, "test-issuer", "test-audience", false, "", "", testSecret)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "rsa without keys", useRSAKeys: true, expectError: true},
		{name: "rsa with garbage keys", useRSAKeys: true, privateKey: "nope", publicKey: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(7)
	require.NoError(t, err)
	assert.NotEqual(t, accessToken, refreshToken)

	other, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", false, "", "", "another-secret")
	require.NoError(t, err)
	foreign, _, err := other.GenerateTokens(7)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		wantErr   error
		wantType  string
		wantOpID  uint
	}{
		{name: "valid access token", token: accessToken, wantType: TokenTypeAccess, wantOpID: 7},
		{name: "valid refresh token", token: refreshToken, wantType: TokenTypeRefresh, wantOpID: 7},
		{name: "empty token", token: "", wantErr: ErrTokenInvalid},
		{name: "invalid token format", token: "invalid.token.format", wantErr: ErrTokenInvalid},
		{name: "signed with another key", token: foreign, wantErr: ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOpID, claims.OperatorID)
			assert.Equal(t, tt.wantType, claims.TokenType)
			assert.NotEmpty(t, claims.TokenID)
			assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, err := NewTokenService(-time.Minute, -time.Minute, "iss", "aud", false, "", "", testSecret)
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(1)
	require.NoError(t, err)

	_, err = service.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(3)
	require.NoError(t, err)

	newAccess, newRefresh, err := service.RefreshToken(refreshToken)
	require.NoError(t, err)
	claims, err := service.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.OperatorID)
	assert.NotEmpty(t, newRefresh)

	_, _, err = service.RefreshToken(accessToken)
	assert.Error(t, err)

	_, _, err = service.RefreshToken("invalid.token")
	assert.Error(t, err)
}
