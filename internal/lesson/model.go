package lesson

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"tutor-service/internal/calendar"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Lesson is one taught session. Income is derived, never stored.
type Lesson struct {
	bun.BaseModel `bun:"table:lessons,alias:l"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	OwnerID     uuid.UUID       `bun:"owner_id,type:uuid,notnull" json:"ownerId"`
	StudentName string          `bun:"student_name,notnull" json:"studentName"`
	HourlyRate  decimal.Decimal `bun:"hourly_rate,type:numeric,notnull" json:"hourlyRate"`
	Duration    decimal.Decimal `bun:"duration,type:numeric,notnull" json:"duration"`
	Date        calendar.Date   `bun:"date,type:date,notnull" json:"date"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Income is HourlyRate × Duration, unrounded
func (l Lesson) Income() decimal.Decimal {
	return l.HourlyRate.Mul(l.Duration)
}

func (l *Lesson) Validate() error {
	l.StudentName = strings.TrimSpace(l.StudentName)

	switch {
	case l.StudentName == "":
		return fmt.Errorf("%w: studentName is required", ErrInvalidInput)
	case !l.HourlyRate.IsPositive():
		return fmt.Errorf("%w: hourlyRate must be greater than 0", ErrInvalidInput)
	case !l.Duration.IsPositive():
		return fmt.Errorf("%w: duration must be greater than 0", ErrInvalidInput)
	case l.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	return nil
}

type CreateRequest struct {
	StudentName string          `json:"studentName" validate:"notblank"`
	HourlyRate  decimal.Decimal `json:"hourlyRate" validate:"required,gt=0"`
	Duration    decimal.Decimal `json:"duration" validate:"required,gt=0"`
	Date        calendar.Date   `json:"date" validate:"required"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	StudentName *string          `json:"studentName" validate:"omitempty,notblank"`
	HourlyRate  *decimal.Decimal `json:"hourlyRate" validate:"omitempty,gt=0"`
	Duration    *decimal.Decimal `json:"duration" validate:"omitempty,gt=0"`
	Date        *calendar.Date   `json:"date"`

	// UpdatedAt is stamped by the service
	UpdatedAt time.Time `json:"-"`
}

func (p Patch) Validate() error {
	switch {
	case p.StudentName != nil && strings.TrimSpace(*p.StudentName) == "":
		return fmt.Errorf("%w: studentName is required", ErrInvalidInput)
	case p.HourlyRate != nil && !p.HourlyRate.IsPositive():
		return fmt.Errorf("%w: hourlyRate must be greater than 0", ErrInvalidInput)
	case p.Duration != nil && !p.Duration.IsPositive():
		return fmt.Errorf("%w: duration must be greater than 0", ErrInvalidInput)
	case p.Date != nil && p.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	return nil
}

// Apply merges the patch into l and bumps UpdatedAt
func (p Patch) Apply(l *Lesson) {
	if p.StudentName != nil {
		l.StudentName = strings.TrimSpace(*p.StudentName)
	}
	if p.HourlyRate != nil {
		l.HourlyRate = *p.HourlyRate
	}
	if p.Duration != nil {
		l.Duration = *p.Duration
	}
	if p.Date != nil {
		l.Date = *p.Date
	}

	l.UpdatedAt = p.UpdatedAt
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
}

// SortNewestFirst orders by date descending, then by creation time descending
func SortNewestFirst(lessons []Lesson) {
	slices.SortStableFunc(lessons, func(a, b Lesson) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// SortByStudent orders by student name ignoring case; lessons of one student keep their order
func SortByStudent(lessons []Lesson) {
	slices.SortStableFunc(lessons, func(a, b Lesson) int {
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	})
}
