package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token roles.  Admin tokens are issued at login/registration, device tokens
// when a device confirms it has been paired.
const (
	RoleAdmin  = "admin"
	RoleDevice = "device"
)

// ErrInvalidToken is returned for every verification failure.  The wrapped
// cause is meant for logs only; callers must not surface it to clients.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by a session token.  Subject is a user id for admin tokens
// and a device id for device tokens; Org is the owning organization.
type Claims struct {
	Org  string `json:"org"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed session token along with its expiry.
type Token struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenIssuer signs and verifies HS256 session tokens with a server-held
// secret.  It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer.  now may be nil, in which case time.Now is
// used; tests pass a fixed clock.
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue builds and signs a token binding subject to org.
func (i *TokenIssuer) Issue(subject, org, role string) (Token, error) {
	iat := i.now().UTC()
	exp := iat.Add(i.ttl)
	claims := Claims{
		Org:  org,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Token: signed, Exp: exp}, nil
}

// Verify parses raw and returns its claims.  Only HS256 is accepted, so
// tokens signed with "none" or another algorithm are rejected before the key
// is ever consulted.  Expiry is mandatory.
func (i *TokenIssuer) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Subject == "" || claims.Org == "" {
		return Claims{}, fmt.Errorf("%w: missing subject or org", ErrInvalidToken)
	}
	return claims, nil
}
