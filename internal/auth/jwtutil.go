// Package auth signs and verifies the HS256 bearer tokens that identify vault
// callers. The token subject is the caller's address.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	b64 = base64.RawURLEncoding

	ErrMalformedToken = errors.New("invalid token format")
	ErrBadSignature   = errors.New("signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
	ErrMissingSubject = errors.New("token has no subject")
)

// SignHS256 creates a compact JWT string using HS256.
func SignHS256(claims map[string]any, secret []byte) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	h, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	c, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := b64.EncodeToString(h) + "." + b64.EncodeToString(c)
	return unsigned + "." + b64.EncodeToString(sign(unsigned, secret)), nil
}

// ParseAndVerifyHS256 verifies token signature and returns claims.
func ParseAndVerifyHS256(token string, secret []byte) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, ErrMalformedToken
	}
	if !hmac.Equal(sig, sign(parts[0]+"."+parts[1], secret)) {
		return nil, ErrBadSignature
	}
	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// IssueCallerToken signs a token for subject valid for ttl. A zero ttl
// issues a token without expiry.
func IssueCallerToken(subject string, ttl time.Duration, secret []byte, now time.Time) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	claims := map[string]any{
		"sub": subject,
		"iat": now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return SignHS256(claims, secret)
}

// CallerFromToken verifies token and returns its subject, rejecting expired
// tokens.
func CallerFromToken(token string, secret []byte, now time.Time) (string, error) {
	claims, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		return "", err
	}
	if exp, ok := claims["exp"].(float64); ok && now.Unix() >= int64(exp) {
		return "", ErrTokenExpired
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

func sign(unsigned string, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(unsigned))
	return mac.Sum(nil)
}
