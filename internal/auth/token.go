package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Handlers collapse all of these into one
// generic 401 at the boundary; the distinction exists for logging.
var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
	ErrWrongTokenType   = errors.New("wrong token type")
)

// TokenTypeAccess is the value of the "type" claim stamped on every token
// this service issues.
const TokenTypeAccess = "access"

// Claim keys used by the two supported token shapes. User-bound tokens carry
// ClaimUserID with ClaimAuthType "user"; legacy session tokens carry
// ClaimSessionID with ClaimAuthType "simple". The shapes are mutually
// exclusive by convention; the verifying caller checks for the key it
// expects.
const (
	ClaimUserID    = "user_id"
	ClaimSessionID = "session_id"
	ClaimAuthType  = "auth_type"

	AuthTypeUser   = "user"
	AuthTypeSimple = "simple"
)

// TokenService issues and verifies HS256-signed bearer tokens. Tokens are
// stateless; there is no revocation list, so expiry is the only termination
// mechanism.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. defaultTTL applies when Issue is
// called with a zero TTL; 12 hours is the conventional default.
func NewTokenService(secret string, defaultTTL time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    defaultTTL,
	}
}

// DefaultTTL returns the TTL applied to tokens issued without an explicit one.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.ttl
}

// Issue signs the given claims together with three server-controlled ones:
// "iat" (now), "exp" (now + ttl), and "type" ("access"). Caller claims must
// not use those keys; they would be overwritten. A zero ttl means the
// service default.
func (s *TokenService) Issue(claims map[string]interface{}, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := time.Now()

	payload := jwt.MapClaims{}
	for k, v := range claims {
		payload[k] = v
	}
	payload["iat"] = jwt.NewNumericDate(now)
	payload["exp"] = jwt.NewNumericDate(now.Add(ttl))
	payload["type"] = TokenTypeAccess

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes the token, checks its signature, expiry, and type marker,
// and returns the full claim set. The error is always one of the sentinel
// errors above.
func (s *TokenService) Verify(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidSignature
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}
	if _, present := claims["exp"]; !present {
		return nil, ErrMalformedToken
	}
	if typ, _ := claims["type"].(string); typ != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// NewSessionID returns a fresh cryptographically random URL-safe session
// identifier with 32 bytes of entropy. Never derived from user input, never
// reused.
func NewSessionID() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
