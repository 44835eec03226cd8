package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newSigner() *Signer {
	return &Signer{Secret: []byte("test-secret"), Issuer: "arceus-fleet", ExpMin: 60}
}

func TestSignAndParse(t *testing.T) {
	s := newSigner()

	token, err := s.Sign(7, "operator", "admin")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "operator", claims.Username)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "arceus-fleet", claims.Issuer)
}

func TestSignDevice(t *testing.T) {
	s := newSigner()

	token, err := s.SignDevice("dev-1")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "device", claims.Role)
	require.Equal(t, "dev-1", claims.DeviceID)
	require.Zero(t, claims.UserID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := newSigner().Sign(1, "operator", "admin")
	require.NoError(t, err)

	other := &Signer{Secret: []byte("different"), Issuer: "arceus-fleet", ExpMin: 60}
	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "arceus-fleet", ExpMin: -1}

	token, err := s.Sign(1, "operator", "admin")
	require.NoError(t, err)

	_, err = s.Parse(token)
	require.Error(t, err)
}
