package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "heliseats"

// Claims is the payload of an access token. Passenger tokens carry the
// verified phone number or email in Contact.
type Claims struct {
	Role    domain.Role `json:"role"`
	Contact string      `json:"contact,omitempty"`
	jwt.RegisteredClaims
}

// Policy verifies bearer tokens. Admin and passenger tokens are signed with
// separate secrets so one can never stand in for the other.
type Policy struct {
	secrets map[domain.Role][]byte
	now     func() time.Time
}

func NewPolicy(adminSecret, passengerSecret string) *Policy {
	return &Policy{
		secrets: map[domain.Role][]byte{
			domain.RoleAdmin:     []byte(adminSecret),
			domain.RolePassenger: []byte(passengerSecret),
		},
		now: time.Now,
	}
}

// Verify checks raw against the secret of the expected role and returns the
// caller it identifies. Every failure is a NotAuthenticated error.
func (p *Policy) Verify(raw string, role domain.Role) (domain.Principal, error) {
	secret, ok := p.secrets[role]
	if !ok || len(secret) == 0 {
		return domain.Principal{}, domain.NotAuthenticated("unsupported role")
	}
	if raw == "" {
		return domain.Principal{}, domain.NotAuthenticated("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.NotAuthenticated("token expired")
		}
		return domain.Principal{}, domain.NotAuthenticated("invalid token")
	}
	if claims.Role != role {
		return domain.Principal{}, domain.NotAuthenticated("token role mismatch")
	}

	principal := domain.Principal{Role: claims.Role, Subject: claims.Subject}
	if role == domain.RolePassenger {
		contact, err := domain.ParseContact(claims.Contact)
		if err != nil {
			return domain.Principal{}, domain.NotAuthenticated("token carries no valid contact")
		}
		principal.Contact = contact
		if principal.Subject == "" {
			principal.Subject = contact.Value
		}
	}
	return principal, nil
}

// Issue signs a token for principal valid for ttl.
func (p *Policy) Issue(principal domain.Principal, ttl time.Duration) (string, time.Time, error) {
	secret, ok := p.secrets[principal.Role]
	if !ok || len(secret) == 0 {
		return "", time.Time{}, fmt.Errorf("cannot issue token for role %q", principal.Role)
	}
	now := p.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:    principal.Role,
		Contact: principal.Contact.Value,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principal.ActorID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}
