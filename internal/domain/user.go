package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the view of the user the realtime core works with.
func (u *User) Identity() UserIdentity {
	return UserIdentity{ID: u.ID, Username: u.Username}
}

// UserIdentity is an authenticated user as seen by a live connection.
// It does not change for the lifetime of the connection.
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PublicUser is the part of a user record other users may see.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}
