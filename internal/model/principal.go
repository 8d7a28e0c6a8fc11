package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleBackdesk UserRole = "BACKDESK"
	UserRoleAgent    UserRole = "AGENT"
	UserRoleViewer   UserRole = "VIEWER"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

// CanEditContracts reports whether the principal may create contracts and
// change their status.
func (p Principal) CanEditContracts() bool {
	switch p.Role {
	case UserRoleAdmin, UserRoleBackdesk, UserRoleAgent:
		return true
	default:
		return false
	}
}

// CanAssignCommission reports whether the principal may capture commissions.
func (p Principal) CanAssignCommission() bool {
	return p.Role == UserRoleAdmin || p.Role == UserRoleBackdesk
}
