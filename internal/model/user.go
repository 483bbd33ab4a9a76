// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. Go favours composition over inheritance.
package model

import "time"

// User is an account created the first time someone signs in.
//
// ExternalID is the opaque identity issued by the identity provider
// ("github:<id>"). It is UNIQUE in storage so one external identity maps to
// exactly one account. Username is nil until the user claims one; it is also
// UNIQUE, enforced by the database rather than by application code.
type User struct {
	ID         string    `json:"id"         db:"id"`
	ExternalID string    `json:"-"          db:"external_id"`
	FirstName  string    `json:"firstName"  db:"first_name"`
	LastName   string    `json:"lastName"   db:"last_name"`
	Email      string    `json:"email"      db:"email"`
	AvatarURL  string    `json:"avatarUrl"  db:"avatar_url"`
	Bio        string    `json:"bio"        db:"bio"`
	Username   *string   `json:"username"   db:"username"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}

// HasUsername reports whether the user has claimed a username.
func (u *User) HasUsername() bool {
	return u != nil && u.Username != nil && *u.Username != ""
}

// DisplayName is "First Last", falling back to the username.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" && u.HasUsername() {
		return *u.Username
	}
	return name
}

// ProfileUpdate carries the editable profile fields. A nil Username leaves
// the current username untouched.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Bio       string
	AvatarURL string
	Username  *string
}

// PublicProfile is everything the public profile page renders.
type PublicProfile struct {
	User        *User        `json:"user"`
	Links       []Link       `json:"links"`
	SocialLinks []SocialLink `json:"socialLinks"`
}
