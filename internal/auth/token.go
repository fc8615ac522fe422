package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "learnhub"

var (
	// ErrTokenExpired indicates a well-formed token past its expiry. Callers
	// may treat it as a hint to run the refresh flow.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers every other decode failure: bad signature,
	// malformed payload, wrong algorithm.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the signed payload embedded in access and refresh tokens. The
// subject carries the account id; everything else is a routing hint, never
// proof of current validity — the resolver re-checks the database.
type Claims struct {
	Kind             Kind   `json:"kind"`
	Role             string `json:"role"`
	Email            string `json:"email,omitempty"`
	RegistrationType string `json:"registrationType,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims builds the claim bundle for an account.
func NewClaims(accountID string, kind Kind, role Role, email, registrationType string) Claims {
	return Claims{
		Kind:             kind,
		Role:             string(role),
		Email:            email,
		RegistrationType: registrationType,
		RegisteredClaims: jwt.RegisteredClaims{Subject: accountID},
	}
}

// Codec signs and verifies bearer tokens. It is pure: no I/O, no database
// access, and a swappable clock so expiry behaviour is testable.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewCodec constructs a Codec. Secrets must be distinct and non-empty;
// LoadConfig enforces that before this is ever called.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// AccessTTL exposes the configured access-token horizon.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL exposes the configured refresh-token horizon.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs cl with the access secret at the access horizon.
func (c *Codec) IssueAccessToken(cl Claims) (string, error) {
	return c.issue(cl, c.accessSecret, c.accessTTL)
}

// IssueRefreshToken signs cl with the refresh secret at the refresh horizon.
func (c *Codec) IssueRefreshToken(cl Claims) (string, error) {
	return c.issue(cl, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) issue(cl Claims, secret []byte, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	cl.Issuer = tokenIssuer
	cl.IssuedAt = jwt.NewNumericDate(now)
	cl.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	return token.SignedString(secret)
}

// DecodeAccess verifies an access token and returns its claims.
func (c *Codec) DecodeAccess(token string) (*Claims, error) {
	return c.decode(token, c.accessSecret)
}

// DecodeRefresh verifies a refresh token and returns its claims.
func (c *Codec) DecodeRefresh(token string) (*Claims, error) {
	return c.decode(token, c.refreshSecret)
}

func (c *Codec) decode(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	cl, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return cl, nil
}
