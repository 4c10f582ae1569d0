// Package income derives income figures from lessons. Nothing here is
// stored; every figure is recomputed from the current lesson list.
package income

import (
	"cmp"
	"slices"
	"time"

	"tutor-service/internal/calendar"
	"tutor-service/internal/lesson"

	"github.com/shopspring/decimal"
)

type WeeklyIncome struct {
	WeekStart   time.Time       `json:"weekStart"`
	WeekEnd     time.Time       `json:"weekEnd"`
	Label       string          `json:"label"`
	Income      decimal.Decimal `json:"income"`
	LessonCount int             `json:"lessonCount"`
	Lessons     []lesson.Lesson `json:"lessons"`
}

type MonthlyIncome struct {
	Month       string          `json:"month"` // YYYY-MM
	Year        int             `json:"year"`
	MonthName   string          `json:"monthName"`
	Income      decimal.Decimal `json:"income"`
	LessonCount int             `json:"lessonCount"`
	Lessons     []lesson.Lesson `json:"lessons"`
}

// LessonIncome is hourly rate × duration with no rounding
func LessonIncome(l lesson.Lesson) decimal.Decimal {
	return l.Income()
}

// TotalIncome sums every lesson
func TotalIncome(lessons []lesson.Lesson) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lessons {
		total = total.Add(LessonIncome(l))
	}
	return total
}

// PeriodIncome sums the lessons dated within [start, end], whole days inclusive
func PeriodIncome(lessons []lesson.Lesson, start, end time.Time) decimal.Decimal {
	return TotalIncome(inPeriod(lessons, start, end))
}

// MonthlyIncomeFor sums the calendar month containing ref
func MonthlyIncomeFor(lessons []lesson.Lesson, ref time.Time) decimal.Decimal {
	start, end := calendar.MonthRange(ref)
	return PeriodIncome(lessons, start, end)
}

// WeeklyIncomeFor sums the Monday-start week containing ref
func WeeklyIncomeFor(lessons []lesson.Lesson, ref time.Time) decimal.Decimal {
	start, end := calendar.WeekRange(ref)
	return PeriodIncome(lessons, start, end)
}

func CurrentMonthIncome(lessons []lesson.Lesson, now time.Time) decimal.Decimal {
	return MonthlyIncomeFor(lessons, now)
}

func CurrentWeekIncome(lessons []lesson.Lesson, now time.Time) decimal.Decimal {
	return WeeklyIncomeFor(lessons, now)
}

// GroupByMonth keys lessons by the "YYYY-MM" of their date
func GroupByMonth(lessons []lesson.Lesson) map[string][]lesson.Lesson {
	grouped := make(map[string][]lesson.Lesson)
	for _, l := range lessons {
		key := calendar.MonthKey(l.Date.Time())
		grouped[key] = append(grouped[key], l)
	}
	return grouped
}

// MonthlyBreakdown returns one record per month that has lessons, most
// recent month first. Lessons within a month are in ascending date order.
func MonthlyBreakdown(lessons []lesson.Lesson) []MonthlyIncome {
	grouped := GroupByMonth(lessons)

	out := make([]MonthlyIncome, 0, len(grouped))
	for key, monthLessons := range grouped {
		first := monthLessons[0].Date
		sortByDate(monthLessons)

		out = append(out, MonthlyIncome{
			Month:       key,
			Year:        first.Year,
			MonthName:   first.Month.String(),
			Income:      TotalIncome(monthLessons),
			LessonCount: len(monthLessons),
			Lessons:     monthLessons,
		})
	}

	slices.SortFunc(out, func(a, b MonthlyIncome) int {
		return cmp.Compare(b.Month, a.Month)
	})
	return out
}

// WeeklyBreakdown summarizes the Monday-start week containing ref
func WeeklyBreakdown(lessons []lesson.Lesson, ref time.Time) WeeklyIncome {
	start, end := calendar.WeekRange(ref)
	weekLessons := inPeriod(lessons, start, end)
	sortByDate(weekLessons)

	return WeeklyIncome{
		WeekStart:   start,
		WeekEnd:     end,
		Label:       calendar.FormatRange(start, end),
		Income:      TotalIncome(weekLessons),
		LessonCount: len(weekLessons),
		Lessons:     weekLessons,
	}
}

// inPeriod returns a new slice, so callers may reorder it
func inPeriod(lessons []lesson.Lesson, start, end time.Time) []lesson.Lesson {
	out := []lesson.Lesson{}
	for _, l := range lessons {
		if calendar.InRange(l.Date.Time(), start, end) {
			out = append(out, l)
		}
	}
	return out
}

func sortByDate(lessons []lesson.Lesson) {
	slices.SortStableFunc(lessons, func(a, b lesson.Lesson) int {
		return a.Date.Compare(b.Date)
	})
}
