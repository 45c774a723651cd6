package services

import (
	"github.com/google/uuid"

	"github.com/example/comegetit/internal/models"
)

// Actor is the authenticated dashboard identity a mutation runs as.
type Actor struct {
	ID       uuid.UUID
	Role     models.StaffRole
	VenueIDs []uuid.UUID
}

// IsAdmin reports whether the actor is a platform admin.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleCgiAdmin
}

// ManagesVenue reports whether the actor may act on the venue's records.
func (a Actor) ManagesVenue(venueID uuid.UUID) bool {
	switch a.Role {
	case models.RoleCgiAdmin:
		return true
	case models.RoleVenueOwner, models.RoleVenueStaff:
		for _, id := range a.VenueIDs {
			if id == venueID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
