package domain

import "time"

// User is an account that can sign in and receive bearer tokens.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose hash
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the request body for password sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse is returned after a successful sign-in.
type SignInResponse struct {
	Auth  bool   `json:"auth"`
	Token string `json:"token"`
}
