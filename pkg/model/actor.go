package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Owns(b *Booking) bool {
	return b != nil && a.ID != "" && a.ID == b.UserID
}

// CanMutate is the owner-or-admin rule shared by update and delete.
func (a Actor) CanMutate(b *Booking) bool {
	return a.IsAdmin() || a.Owns(b)
}
