// Package token signs activation requests into self-contained JWTs and
// verifies them back. The token is the durable state for pending
// multi-party requests: everything needed to reconstruct the request
// travels inside it.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"warden/internal/domain"
)

// Converter maps the privilege-identifier type to and from its wire form.
type Converter[T domain.PrivilegeID] interface {
	Encode(id T) string
	Decode(s string) (T, error)
}

// GrantIDConverter is the production converter for the GrantID union.
type GrantIDConverter struct{}

func (GrantIDConverter) Encode(id domain.GrantID) string {
	return id.String()
}

func (GrantIDConverter) Decode(s string) (domain.GrantID, error) {
	return domain.ParseGrantID(s)
}

type Config struct {
	// Issuer is embedded in and required of every token.
	Issuer string
	// MaxValidity caps how long a token stays usable; the token never
	// outlives the request's end time regardless.
	MaxValidity time.Duration
	Now         func() time.Time
}

// Signer implements the activation token round trip with HMAC-SHA256.
type Signer[T domain.PrivilegeID] struct {
	key       []byte
	issuer    string
	converter Converter[T]
	validity  time.Duration
	now       func() time.Time
}

func NewSigner[T domain.PrivilegeID](key []byte, converter Converter[T], cfg Config) (*Signer[T], error) {
	if len(key) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	if converter == nil {
		return nil, errors.New("converter is required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "warden"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Signer[T]{
		key:       key,
		issuer:    issuer,
		converter: converter,
		validity:  cfg.MaxValidity,
		now:       now,
	}, nil
}

type requestClaims struct {
	jwt.RegisteredClaims
	ActivationID  string   `json:"act_id"`
	Reviewers     []string `json:"reviewers,omitempty"`
	Privilege     string   `json:"privilege"`
	Justification string   `json:"justification"`
	StartTime     int64    `json:"start_time"`
	EndTime       int64    `json:"end_time"`
}

func (s *Signer[T]) Sign(_ context.Context, request domain.ActivationRequest[T]) (domain.ActivationToken, error) {
	now := s.now()
	expiry := request.EndTime
	if s.validity > 0 {
		if capped := now.Add(s.validity); capped.Before(expiry) {
			expiry = capped
		}
	}
	if !expiry.After(now) {
		return domain.ActivationToken{}, fmt.Errorf("%w: request already ended", domain.ErrInvalidRequest)
	}

	claims := requestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   request.RequestingUser.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		ActivationID:  request.ID.String(),
		Reviewers:     request.Reviewers.Strings(),
		Privilege:     s.converter.Encode(request.Privilege),
		Justification: request.Justification,
		StartTime:     request.StartTime.Unix(),
		EndTime:       request.EndTime.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return domain.ActivationToken{}, fmt.Errorf("sign activation token: %w", err)
	}
	return domain.ActivationToken{Token: signed, ExpiryTime: expiry}, nil
}

// Verify reconstructs the request carried by the token. It fails closed:
// tampering, a wrong signer, or an elapsed expiry all yield access denied,
// never a request.
func (s *Signer[T]) Verify(_ context.Context, tokenString string) (domain.ActivationRequest[T], error) {
	var zero domain.ActivationRequest[T]

	var claims requestClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return zero, &domain.DeniedError{Code: "TOKEN_INVALID", Err: fmt.Errorf("%w: %w", domain.ErrAccessDenied, err)}
	}

	id, err := domain.ParseActivationID(claims.ActivationID)
	if err != nil {
		return zero, &domain.DeniedError{Code: "TOKEN_MALFORMED", Err: fmt.Errorf("%w: %w", domain.ErrAccessDenied, err)}
	}
	user, err := domain.ParsePrincipal(claims.Subject)
	if err != nil {
		return zero, &domain.DeniedError{Code: "TOKEN_MALFORMED", Err: fmt.Errorf("%w: %w", domain.ErrAccessDenied, err)}
	}
	reviewers := domain.NewPrincipalSet()
	for _, raw := range claims.Reviewers {
		principal, err := domain.ParsePrincipal(raw)
		if err != nil {
			return zero, &domain.DeniedError{Code: "TOKEN_MALFORMED", Err: fmt.Errorf("%w: %w", domain.ErrAccessDenied, err)}
		}
		reviewers.Add(principal)
	}
	privilege, err := s.converter.Decode(claims.Privilege)
	if err != nil {
		return zero, &domain.DeniedError{Code: "TOKEN_MALFORMED", Err: fmt.Errorf("%w: %w", domain.ErrAccessDenied, err)}
	}

	return domain.ActivationRequest[T]{
		ID:             id,
		RequestingUser: user,
		Reviewers:      reviewers,
		Privilege:      privilege,
		Justification:  claims.Justification,
		StartTime:      time.Unix(claims.StartTime, 0).UTC(),
		EndTime:        time.Unix(claims.EndTime, 0).UTC(),
	}, nil
}
