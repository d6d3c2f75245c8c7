package model

import "time"

// User is an account holder.  Every user founds exactly one organization at
// registration, so OrgID is minted together with the user and never changes.
//
// Fields:
//
//	ID           – "user-" prefixed uuid.
//	Email        – unique, normalized to lower case.
//	PasswordHash – bcrypt hash; the plain password is never stored.
//	OrgID        – "org-" prefixed uuid of the user's organization.
//	Company      – display name of the organization.
//	Plan         – plan tier, "free" at creation.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	OrgID        string    `json:"org_id"`
	Company      string    `json:"company"`
	Plan         string    `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultPlan is assigned to every new account.
const DefaultPlan = "free"

// DefaultCompany names the organization when registration omits it.
const DefaultCompany = "My Company"
