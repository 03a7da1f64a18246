package model

import (
	"errors"
	"fmt"
	"time"
)

// BirthdayFormat is the textual date format used for birthdays in request
// bodies. It corresponds to DD-MM-YYYY, e.g. "25-12-1990".
const BirthdayFormat = "02-01-2006"

// ErrNoSearchCriteria is returned by the contact search when none of the
// supported filters was supplied. It is distinct from an empty result set:
// an executed filter that matches nothing yields an empty slice and no error.
var ErrNoSearchCriteria = errors.New("no search criteria given")

// ErrMalformedBirthday is returned when a birthday string cannot be parsed
// as DD-MM-YYYY. Use errors.Is to test for it; the concrete parse failure is
// wrapped alongside.
var ErrMalformedBirthday = errors.New("malformed birthday")

// Contact is the data structure for a person that a user knows. Every
// contact belongs to exactly one user and is only ever visible through that
// user's identity. All fields except Id and UserId are optional.
type Contact struct {
	Id        int64      `json:"id"                   db:"id"`
	FirstName *string    `json:"first_name,omitempty" db:"first_name"`
	LastName  *string    `json:"last_name,omitempty"  db:"last_name"`
	Email     *string    `json:"email,omitempty"      db:"email"`
	Phone     *string    `json:"phone,omitempty"      db:"phone"`
	Birthday  *time.Time `json:"birthday,omitempty"   db:"birthday"`
	UserId    int64      `json:"-"                    db:"user_id"`
}

// User is the authentication principal that owns contacts.
// The password hash and the stored refresh token never leave the service.
type User struct {
	Id           int64     `json:"id"               db:"id"`
	Username     string    `json:"username"         db:"username"`
	Email        string    `json:"email"            db:"email"`
	PasswordHash string    `json:"-"                db:"password_hash"`
	CreatedAt    time.Time `json:"created_at"       db:"created_at"`
	Avatar       *string   `json:"avatar,omitempty" db:"avatar"`
	RefreshToken *string   `json:"-"                db:"refresh_token"`
	Confirmed    bool      `json:"confirmed"        db:"confirmed"`
}

// ParseBirthday converts a DD-MM-YYYY string into a calendar date in UTC.
// The empty string is malformed, just like any other unparsable text.
func ParseBirthday(s string) (time.Time, error) {
	t, err := time.ParseInLocation(BirthdayFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedBirthday, err)
	}
	return t, nil
}
