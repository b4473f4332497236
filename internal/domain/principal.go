package domain

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RolePassenger Role = "PASSENGER"
	RoleSystem    Role = "SYSTEM"
)

// Principal is the verified caller handed over by the access policy.
// Passengers carry their contact; admins carry a username in Subject.
type Principal struct {
	Role    Role
	Subject string
	Contact Contact
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) IsPassenger() bool { return p.Role == RolePassenger && !p.Contact.IsZero() }

func (p Principal) ActorID() string {
	if p.Role == RolePassenger {
		return p.Contact.Value
	}
	return p.Subject
}
