package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	unsubscribeAudience = "digest-unsubscribe"
	defaultUnsubTTL     = 90 * 24 * time.Hour
)

// UnsubscribeTokens issues and verifies the signed tokens carried by
// unsubscribe links in digest emails
type UnsubscribeTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// UnsubscribeTokensConfig holds token settings
type UnsubscribeTokensConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// NewUnsubscribeTokens creates a token issuer. An empty secret disables issuing.
func NewUnsubscribeTokens(cfg UnsubscribeTokensConfig) *UnsubscribeTokens {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultUnsubTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "contractsonly"
	}
	return &UnsubscribeTokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
}

// Issue returns a signed token naming the subscriber
func (u *UnsubscribeTokens) Issue(subscriberID string) (string, error) {
	if len(u.secret) == 0 {
		return "", ErrUnsubscribeNotConfigured
	}
	now := u.now()
	claims := jwt.RegisteredClaims{
		Subject:   subscriberID,
		Issuer:    u.issuer,
		Audience:  jwt.ClaimStrings{unsubscribeAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("signing unsubscribe token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the subscriber ID it names
func (u *UnsubscribeTokens) Parse(token string) (string, error) {
	if len(u.secret) == 0 {
		return "", ErrUnsubscribeNotConfigured
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return u.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(unsubscribeAudience),
		jwt.WithIssuer(u.issuer),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrUnsubscribeTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidUnsubscribeToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidUnsubscribeToken
	}
	return claims.Subject, nil
}
