package domain

// Role is the staff role carried by an access token.
type Role string

const (
	RoleKitchen  Role = "kitchen"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleKitchen, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}
