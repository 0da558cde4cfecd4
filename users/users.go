package users

import (
	"fmt"
	"strings"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents the role of a portal user
type RoleType string

const (
	RoleAdmin RoleType = "admin" // Can manage users, QR credentials and read feedback
)

type User struct {
	ID           string    `json:"id,omitempty" bson:"_id"`                    // Unique identifier for the user
	Name         string    `json:"name,omitempty" bson:"name"`                 // Display name
	Email        string    `json:"email,omitempty" bson:"email"`               // User's email address, unique
	PasswordHash string    `json:"-" bson:"passwordHash"`                      // Hashed version of the user's password - never serialize
	Role         RoleType  `json:"role,omitempty" bson:"role"`                 // Role of the user
	CreatedAt    time.Time `json:"createdAt,omitempty" bson:"createdAt"`       // Date and time when the user was created
	LastLogin    time.Time `json:"lastLogin,omitempty" bson:"lastLogin"`       // Last time the user logged in
	Blocked      bool      `json:"blocked,omitempty" bson:"blocked,omitempty"` // Blocked, has the user been blocked from logging in
}

// NormaliseEmail lower-cases and trims an email address for lookups
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
