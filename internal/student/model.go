package student

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID         uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	OwnerID    uuid.UUID       `bun:"owner_id,type:uuid,notnull" json:"ownerId"`
	Name       string          `bun:"name,notnull" json:"name"`
	HourlyRate decimal.Decimal `bun:"hourly_rate,type:numeric,notnull" json:"hourlyRate"`
	Email      *string         `bun:"email" json:"email,omitempty"`
	Phone      *string         `bun:"phone" json:"phone,omitempty"`
	Notes      *string         `bun:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// SameName compares names the way uniqueness is enforced: trimmed, ignoring case
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (s *Student) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = optional(s.Email)
	s.Phone = optional(s.Phone)
	s.Notes = optional(s.Notes)

	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !s.HourlyRate.IsPositive():
		return fmt.Errorf("%w: hourlyRate must be greater than 0", ErrInvalidInput)
	}
	return nil
}

// optional trims v and drops it when nothing is left
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type CreateRequest struct {
	Name       string          `json:"name" validate:"notblank,max=200"`
	HourlyRate decimal.Decimal `json:"hourlyRate" validate:"required,gt=0"`
	Email      *string         `json:"email" validate:"omitempty,len=0|email"`
	Phone      *string         `json:"phone" validate:"omitempty,max=50"`
	Notes      *string         `json:"notes" validate:"omitempty,max=2000"`
}

// Patch is a partial update. Nil fields are left untouched; an empty
// email, phone or notes clears the field.
type Patch struct {
	Name       *string          `json:"name" validate:"omitempty,notblank,max=200"`
	HourlyRate *decimal.Decimal `json:"hourlyRate" validate:"omitempty,gt=0"`
	Email      *string          `json:"email" validate:"omitempty,len=0|email"`
	Phone      *string          `json:"phone" validate:"omitempty,max=50"`
	Notes      *string          `json:"notes" validate:"omitempty,max=2000"`

	UpdatedAt time.Time `json:"-"`
}

func (p Patch) Validate() error {
	switch {
	case p.Name != nil && strings.TrimSpace(*p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case p.HourlyRate != nil && !p.HourlyRate.IsPositive():
		return fmt.Errorf("%w: hourlyRate must be greater than 0", ErrInvalidInput)
	}
	return nil
}

func (p Patch) Apply(s *Student) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.HourlyRate != nil {
		s.HourlyRate = *p.HourlyRate
	}
	if p.Email != nil {
		s.Email = optional(p.Email)
	}
	if p.Phone != nil {
		s.Phone = optional(p.Phone)
	}
	if p.Notes != nil {
		s.Notes = optional(p.Notes)
	}

	s.UpdatedAt = p.UpdatedAt
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
}

func SortByName(students []Student) {
	slices.SortStableFunc(students, func(a, b Student) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// Filter keeps students whose name contains query, ignoring case. A blank query keeps all.
func Filter(students []Student, query string) []Student {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return students
	}

	out := []Student{}
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	return out
}
