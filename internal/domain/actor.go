package domain

// Role is the single role the identity provider attaches to an actor.
type Role string

const (
	RoleOrganization Role = "organization"
	RoleVolunteer    Role = "volunteer"
	RoleAdmin        Role = "admin"
)

// ParseRole validates a role claim from a verified token.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOrganization, RoleVolunteer, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidInput
}

// Actor is the authenticated caller of an operation, as yielded by the
// external identity provider.
type Actor struct {
	ID   string
	Role Role
}

// CanManage reports whether the actor may run lifecycle operations on an
// opportunity owned by ownerID.
func (a Actor) CanManage(ownerID string) bool {
	return a.Role == RoleAdmin || (a.Role == RoleOrganization && a.ID == ownerID)
}

// TokenVerifier verifies a bearer token and yields the actor it identifies.
type TokenVerifier interface {
	Verify(token string) (Actor, error)
}
