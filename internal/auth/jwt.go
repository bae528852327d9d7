package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoKey is returned when neither a shared secret nor a public key is configured.
var ErrNoKey = errors.New("no jwt verification key configured")

// Claims are the fields read from an identity-service access token.
type Claims struct {
	Subject string
	Email   string
	Role    string
}

// JWTManager verifies access tokens issued by the hosted identity service.
// It holds either an HS256 shared secret or an RS256 public key.
type JWTManager struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
	leeway    time.Duration
}

// NewJWTManager prefers the RS256 public key when both are configured.
func NewJWTManager(secret, publicPath, issuer string) (*JWTManager, error) {
	m := &JWTManager{issuer: issuer, leeway: 5 * time.Second}

	switch {
	case publicPath != "":
		pubPem, err := os.ReadFile(publicPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		m.publicKey = pubKey
	case secret != "":
		m.secret = []byte(secret)
	default:
		return nil, ErrNoKey
	}
	return m, nil
}

// NewHMACManager builds a manager from an in-memory secret.
func NewHMACManager(secret []byte, issuer string) *JWTManager {
	return &JWTManager{secret: secret, issuer: issuer, leeway: 5 * time.Second}
}

// NewRSAManager builds a manager from an in-memory public key.
func NewRSAManager(pub *rsa.PublicKey, issuer string) *JWTManager {
	return &JWTManager{publicKey: pub, issuer: issuer, leeway: 5 * time.Second}
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if m.publicKey != nil {
		if token.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.publicKey, nil
	}
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return m.secret, nil
}

// VerifyToken checks signature, expiry and, when configured, the issuer.
func (m *JWTManager) VerifyToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(m.leeway), jwt.WithExpirationRequired()}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.Parse(tokenStr, m.keyFunc, opts...)
	if err != nil {
		return nil, err
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)
	return &Claims{Subject: sub, Email: email, Role: role}, nil
}
