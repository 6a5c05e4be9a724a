package model

// Roles carried in the access token's role claim.
const (
	RoleGuest = "GUEST"
	RoleAdmin = "ADMIN"
)

// Actor is the authenticated caller of a ledger operation.  Guests may
// only act on bookings they own; admins may act on any booking.  A zero
// Actor is used for anonymous payment-link submissions.
type Actor struct {
	UserID uint64
	Role   string
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Owns reports whether the actor may act on a booking owned by userID.
func (a Actor) Owns(userID uint64) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == userID)
}
