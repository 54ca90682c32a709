package models

import "time"

// User is a row of the users table. Fields not requested in a partial read
// are left at their zero value.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserField names a selectable users column.
type UserField string

const (
	UserFieldID           UserField = "id"
	UserFieldUsername     UserField = "username"
	UserFieldEmail        UserField = "email"
	UserFieldPasswordHash UserField = "password_hash"
	UserFieldCreatedAt    UserField = "created"
)

var AllUserFields = []UserField{UserFieldID, UserFieldUsername, UserFieldEmail, UserFieldPasswordHash, UserFieldCreatedAt}

func (f UserField) Valid() bool {
	for _, v := range AllUserFields {
		if f == v {
			return true
		}
	}
	return false
}

// UserUpdate carries the profile fields to write; nil fields are left alone.
type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether u sets nothing.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.PasswordHash == nil
}
