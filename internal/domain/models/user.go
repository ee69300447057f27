package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:user"`
	Permissions  string    // comma separated permission names
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PermissionList splits the stored permission string.
func (u *User) PermissionList() []string {
	if u.Permissions == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(u.Permissions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
