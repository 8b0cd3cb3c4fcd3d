package entity

import (
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
)

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Role         constants.Role `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
