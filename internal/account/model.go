// Package account holds the tutors who own lessons and students in remote mode.
package account

import (
	"strings"
	"time"

	"tutor-service/internal/currency"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID        uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Email     string        `bun:"email,unique,notnull" json:"email"`
	Password  string        `bun:"password,notnull" json:"-"`
	Name      string        `bun:"name,notnull" json:"name"`
	Currency  currency.Code `bun:"currency,notnull" json:"currency"`
	CreatedAt time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// UpdateRequest changes the profile; absent fields are left untouched
type UpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Currency *string `json:"currency" validate:"omitempty,notblank"`
}

// NormalizeEmail makes emails comparable: trimmed and lower case
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
