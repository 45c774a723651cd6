package models

// User represents a consumer-app member who redeems free drinks.
type User struct {
	BaseModel
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `gorm:"uniqueIndex" json:"phone"`
	DisplayName   string `json:"display_name"`
	PointsBalance int    `json:"points_balance"`
}

// StaffRole is the closed set of dashboard roles.
type StaffRole string

const (
	// RoleCgiAdmin is the platform operator; full access, exempt from the void time limit.
	RoleCgiAdmin StaffRole = "cgi_admin"
	// RoleVenueOwner manages their own venues.
	RoleVenueOwner StaffRole = "venue_owner"
	// RoleVenueStaff operates the dashboard for assigned venues.
	RoleVenueStaff StaffRole = "venue_staff"
)

// Valid reports whether the role is one of the known values.
func (r StaffRole) Valid() bool {
	switch r {
	case RoleCgiAdmin, RoleVenueOwner, RoleVenueStaff:
		return true
	}
	return false
}

// Staff represents a dashboard account (admin, owner or venue staff).
type Staff struct {
	BaseModel
	Email        string    `gorm:"uniqueIndex" json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         StaffRole `json:"role"`
	Venues       []Venue   `gorm:"many2many:staff_venues" json:"venues,omitempty"`
}
