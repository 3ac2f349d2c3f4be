package types

import "time"

// Session is one row of the append-only token ledger. A row is created each
// time a login issues a token and is only ever mutated by revocation.
type Session struct {
	// ID is the unique identifier of the session row.
	ID int64 `json:"id" db:"id"`

	// Username is the account the token was issued to.
	Username string `json:"username" db:"username"`

	// Token is the exact signed token string as handed to the client.
	// Lookups match on this string; the ledger enforces no uniqueness.
	Token string `json:"-" db:"token"`

	// CreatedAt is when the token was recorded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Revoked marks the token invalid ahead of its expiry. The transition
	// is one-way; a revoked session is never un-revoked and never deleted.
	Revoked bool `json:"revoked" db:"revoked"`
}
