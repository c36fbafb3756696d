package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")
)

// Claims identify the store a token grants access to.
type Claims struct {
	StoreID   string `json:"sid"`
	Email     string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
}

// Signer issues and verifies "payload.signature" tokens where payload is the
// base64url JSON claims and signature is the hex HMAC-SHA256 of the payload.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer. A non-positive ttl issues tokens that never expire.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for storeID and email.
func (s *Signer) Issue(storeID, email string) (string, error) {
	c := Claims{StoreID: storeID, Email: email}
	if s.ttl > 0 {
		c.ExpiresAt = s.now().Add(s.ttl).Unix()
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "auth: marshal claims")
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (s *Signer) Verify(token string) (Claims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || payload == "" {
		return Claims{}, ErrInvalidToken
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	expected, _ := hex.DecodeString(s.sign(payload))
	if !hmac.Equal(provided, expected) {
		return Claims{}, ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	if err := json.Unmarshal(decoded, &c); err != nil || c.StoreID == "" {
		return Claims{}, ErrInvalidToken
	}
	if c.ExpiresAt != 0 && s.now().Unix() >= c.ExpiresAt {
		return Claims{}, ErrExpiredToken
	}
	return c, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
