package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailAlreadyTaken = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the public view of a user handed back to clients.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}
