package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 30 * time.Minute

var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// TokenConfig is the immutable signing configuration for a TokenCodec.
type TokenConfig struct {
	Secret    []byte
	TTL       time.Duration
	Algorithm string
}

// Claims are the facts carried inside an access token.
type Claims struct {
	Subject   int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// TokenCodec signs and verifies stateless access tokens with an HMAC algorithm.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	method jwt.SigningMethod
	now    func() time.Time
}

type CodecOption func(*TokenCodec)

// WithClock replaces the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(cfg TokenConfig, opts ...CodecOption) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	c := &TokenCodec{secret: secret, ttl: ttl, method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime applied by Issue.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue builds claims for the subject starting now and signs them.
func (c *TokenCodec) Issue(subject int64, username string) (string, Claims, error) {
	now := c.now().UTC().Truncate(time.Second)
	claims := Claims{
		Subject:   subject,
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	token, err := c.Encode(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Encode signs the given claims. Timestamps are carried with second precision.
func (c *TokenCodec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.Subject, 10),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Username: claims.Username,
	})
	return token.SignedString(c.secret)
}

// Decode verifies signature, algorithm and expiry. Any failure yields
// (nil, false); callers cannot tell an expired token from a forged one.
func (c *TokenCodec) Decode(tokenString string) (*Claims, bool) {
	parsed := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	subject, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil {
		return nil, false
	}
	claims := &Claims{
		Subject:   subject,
		Username:  parsed.Username,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, true
}
