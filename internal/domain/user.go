// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrEmailInvalid    = errors.New("email invalid")
	ErrUserIDInvalid   = errors.New("user id invalid")
)

type UserID string

// Valid reports whether id can name a user and its personal room.
func (id UserID) Valid() bool {
	return id != "" && len(id) <= MaxUserIDLen
}

type User struct {
	ID        UserID    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	About     string    `json:"about"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"createdAt"`
}

const DefaultAbout = "Hey there! I am using Chat."

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username, email string) (*User, error) {
	u := &User{
		ID:        UserID(uuid.NewString()),
		About:     DefaultAbout,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, ErrEmailInvalid
	}
	u.Email = strings.ToLower(email)
	return u, nil
}

func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}

// Friend is the public card of a user shown in friend lists.
type Friend struct {
	ID       UserID `json:"_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
