package domain

import (
	"regexp"
	"strings"
)

type ContactKind string

const (
	ContactPhone ContactKind = "phone"
	ContactEmail ContactKind = "email"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Contact is a verified phone number or email address. The kind is fixed
// when the value enters the system and is never re-derived later.
type Contact struct {
	Kind  ContactKind `json:"kind"`
	Value string      `json:"value"`
}

func PhoneContact(v string) (Contact, error) {
	v = strings.TrimSpace(v)
	if !phonePattern.MatchString(v) {
		return Contact{}, Validation("invalid phone number")
	}
	return Contact{Kind: ContactPhone, Value: v}, nil
}

func EmailContact(v string) (Contact, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !emailPattern.MatchString(v) {
		return Contact{}, Validation("invalid email address")
	}
	return Contact{Kind: ContactEmail, Value: v}, nil
}

// ParseContact classifies a raw identity coming from a verified token.
func ParseContact(raw string) (Contact, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return EmailContact(raw)
	}
	return PhoneContact(raw)
}

func (c Contact) IsZero() bool { return c.Value == "" }

func (c Contact) Equal(o Contact) bool {
	return c.Kind == o.Kind && c.Value == o.Value
}

func (c Contact) String() string { return c.Value }

func ValidPhone(v string) bool { return phonePattern.MatchString(v) }

func ValidEmail(v string) bool { return emailPattern.MatchString(v) }
