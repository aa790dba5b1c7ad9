package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types embedded in the "type" claim. Verification always
// checks the type so an access token can never stand in for a
// refresh token or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired is returned when a token's signature is fine
	// but its exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure: bad
	// signature, malformed token, wrong signing method, wrong type.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload carried by both token kinds. Subject holds
// the user's email, UserID the UUID primary key and Role the account
// role. Refresh tokens additionally carry a random jti (the
// RegisteredClaims ID field) which keys the revocation ledger.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// NewAccessToken signs a short-lived HS256 access token. Validity is
// purely cryptographic: no server-side record is kept, so a revoked
// session's access token stays usable until its own expiry.
func NewAccessToken(secret, email, userID, role string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// NewRefreshToken signs a long-lived HS256 refresh token carrying a
// fresh random jti. The jti is returned separately because the caller
// must persist it in the revocation ledger before honouring the
// token; a refresh token whose jti has no ledger row is dead.
func NewRefreshToken(secret, email, userID, role string, ttl time.Duration) (token, jti string, exp time.Time, err error) {
	jti = uuid.NewString()
	exp = time.Now().UTC().Add(ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ID:        jti,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, exp, nil
}

// VerifyToken parses and validates a token and checks that its type
// claim matches expectedType. It distinguishes only two failure
// modes: ErrTokenExpired for an otherwise valid but stale token and
// ErrTokenInvalid for everything else.
func VerifyToken(secret, raw, expectedType string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != expectedType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
