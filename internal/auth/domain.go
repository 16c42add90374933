// Package auth authenticates users and resolves bearer tokens into sessions.
package auth

import (
	"fmt"
	"time"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// User is an account scoped to a tenant and home branch.
type User struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	BranchID     int64     `json:"branch_id"`
	DisplayID    string    `json:"display_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStatusActive is the only status allowed to log in.
const UserStatusActive = "ACTIVE"

// ErrAccountDisabled rejects logins for non-active accounts.
var ErrAccountDisabled = fmt.Errorf("auth: account disabled: %w", shared.ErrInvalidCredentials)
