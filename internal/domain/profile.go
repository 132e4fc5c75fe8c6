package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusBanned AccountStatus = "banned"
)

type AuthProvider string

const (
	ProviderEmail     AuthProvider = "email"
	ProviderFederated AuthProvider = "federated"
)

// Profile is the platform-owned record for an identity. The identity
// provider is authoritative for "the account exists"; the profile carries
// role and status and is only ever merge-written, never replaced.
type Profile struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone,omitempty"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	AuthProvider AuthProvider  `json:"auth_provider"`
	CreatedAt    time.Time     `json:"created_at"`
	RestoredAt   *time.Time    `json:"restored_at,omitempty"`
}

func (p *Profile) Banned() bool {
	return p.Status == StatusBanned
}
