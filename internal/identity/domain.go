package identity

import (
	"time"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Admin is an admin account row. Accounts are created and mutated by an
// external user-management process; this service only reads them to resolve
// bearer tokens.
type Admin struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsSuperadmin bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity strips the credential fields for downstream consumption.
func (a Admin) Identity() shared.Identity {
	return shared.Identity{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		IsSuperadmin: a.IsSuperadmin,
	}
}
