package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the identity provider's frontend SDK stores the session
// token in.
const SessionCookie = "__session"

var ErrNoSubject = errors.New("session token has no subject")

// SessionClaims are the claims of an identity-provider session token. dbId and role are
// copied from the public metadata this application writes back to the provider.
type SessionClaims struct {
	DBID string `json:"dbId,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier checks RS256 session tokens against the provider's public key.
type SessionVerifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

func NewSessionVerifier(publicKeyPEM string) (*SessionVerifier, error) {
	pem := strings.ReplaceAll(strings.TrimSpace(publicKeyPEM), `\n`, "\n")
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse session public key: %w", err)
	}
	return &SessionVerifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}, nil
}

// Verify parses raw and returns its claims when the signature and lifetime are valid.
func (v *SessionVerifier) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}
