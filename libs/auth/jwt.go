package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrNotConfigured  = errors.New("no token verification key configured")
	ErrUnexpectedAlgo = errors.New("unexpected signing method")
)

const RoleAdmin = "admin"

// Claims are the token fields the booking API relies on. Subject becomes the acting user.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens signed either with a shared HS256 secret or with RS256 keys
// published on a JWKS endpoint.
type Verifier struct {
	secret []byte
	jwks   *JWKSClient
}

// NewVerifier returns nil when neither a secret nor a JWKS client is given, which callers
// treat as "auth disabled".
func NewVerifier(secret string, jwks *JWKSClient) *Verifier {
	if secret == "" && jwks == nil {
		return nil
	}
	return &Verifier{secret: []byte(secret), jwks: jwks}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	if v == nil {
		return nil, ErrNotConfigured
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, v.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *Verifier) key(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, ErrNotConfigured
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, ErrNotConfigured
		}
		kid, _ := token.Header["kid"].(string)
		return v.jwks.Get(kid)
	default:
		return nil, ErrUnexpectedAlgo
	}
}

// SignHS256 issues a token for local tooling and tests.
func SignHS256(subject, role string, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", ErrNotConfigured
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
