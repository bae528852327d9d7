package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "8c1d6c7e-0e0b-4bb5-a5b3-0f1f5d1c2e11",
		"email": "agronomist@example.org",
		"role":  "authenticated",
		"iss":   "soil-auth",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifyToken_HS256(t *testing.T) {
	secret := []byte("super-secret-signing-key")
	m := NewHMACManager(secret, "soil-auth")

	claims, err := m.VerifyToken(sign(t, jwt.SigningMethodHS256, secret, validClaims()))

	require.NoError(t, err)
	assert.Equal(t, "8c1d6c7e-0e0b-4bb5-a5b3-0f1f5d1c2e11", claims.Subject)
	assert.Equal(t, "agronomist@example.org", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestVerifyToken_Rejects(t *testing.T) {
	secret := []byte("super-secret-signing-key")
	m := NewHMACManager(secret, "soil-auth")

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "someone-else"
	noSubject := validClaims()
	delete(noSubject, "sub")
	noExpiry := validClaims()
	delete(noExpiry, "exp")

	tests := map[string]string{
		"expired":      sign(t, jwt.SigningMethodHS256, secret, expired),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, secret, wrongIssuer),
		"no subject":   sign(t, jwt.SigningMethodHS256, secret, noSubject),
		"no expiry":    sign(t, jwt.SigningMethodHS256, secret, noExpiry),
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.VerifyToken(token)
			assert.Error(t, err)
		})
	}
}

func TestVerifyToken_RS256FromFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "jwt_public.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	m, err := NewJWTManager("ignored-when-key-present", path, "")
	require.NoError(t, err)

	claims, err := m.VerifyToken(sign(t, jwt.SigningMethodRS256, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "agronomist@example.org", claims.Email)

	_, err = m.VerifyToken(sign(t, jwt.SigningMethodHS256, []byte("secret"), validClaims()))
	assert.Error(t, err, "HS256 token must not pass an RS256 manager")
}

func TestNewJWTManager_Errors(t *testing.T) {
	_, err := NewJWTManager("", "", "")
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = NewJWTManager("", filepath.Join(t.TempDir(), "missing.pem"), "")
	assert.Error(t, err)
}
