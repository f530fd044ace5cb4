package model

import "time"

// User represents a row of the `user` table joined with nothing.  The
// personal details live in `user_info` under the same id.
//
// Fields:
//
//	ID          : UUID primary key shared with user_info.
//	Email       : unique address, stored lower-cased.
//	PasswordHash: bcrypt hash (column `password`).
//	RoleID      : role level; see ResolveRole.
//	Active      : false once an administrator deactivated the account.
type User struct {
	ID           string // user.id
	Email        string // user.email
	PasswordHash string // user.password
	Phone        string // user.phone
	Address      string // user.address
	RoleID       int    // user.role_id (references role.level)
	Active       bool   // user.active
}

// NewUser is the registration payload after the password was hashed.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        string
	Address      string
}

// Profile is the public view of a user returned by login and /profile.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleLevel int    `json:"level"`
	RoleName  string `json:"role_name"`
}

// Membership is a campaign a user joined.
type Membership struct {
	CampaignID string    `json:"campaign_id"`
	JoinedDate time.Time `json:"joined_date"`
}

// UserActivity is the administrator's view of one user.
type UserActivity struct {
	UserID    string       `json:"user_id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Phone     string       `json:"phone"`
	CreatedAt time.Time    `json:"created_at"`
	Campaigns []Membership `json:"campaigns"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored, only its SHA‑256 hash.
type RefreshToken struct {
	ID         string    // refresh_tokens.id
	UserID     string    // refresh_tokens.user_id
	TokenHash  string    // refresh_tokens.token
	ExpiryTime time.Time // refresh_tokens.expiry_time
	Revoked    bool      // refresh_tokens.revoked
}

// PasswordResetToken models `password_reset_tokens`.  UsedAt is set once
// the token was redeemed; a used token never validates again.
type PasswordResetToken struct {
	ID         string     // password_reset_tokens.id
	UserID     string     // password_reset_tokens.user_id
	TokenHash  string     // password_reset_tokens.token
	ExpiryTime time.Time  // password_reset_tokens.expiry_time
	UsedAt     *time.Time // password_reset_tokens.used_at (nullable)
}
