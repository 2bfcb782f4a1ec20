package models

import "time"

// User is the credential side of an account. Profile attributes are read and
// written through profile.UserProfile.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	FullName  string    `db:"full_name"`
	Salt      []byte    `db:"salt"`
	Verifier  []byte    `db:"master_key_verifier"`
	CreatedAt time.Time `db:"created_at"`
}
