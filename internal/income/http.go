package income

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tutor-service/common/httputil"
	"tutor-service/internal/calendar"
	"tutor-service/internal/currency"
	"tutor-service/internal/lesson"
	"tutor-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// LessonSource lists the acting owner's lessons
type LessonSource interface {
	ListLessons(ctx context.Context) ([]lesson.Lesson, error)
}

// CurrencyResolver picks the display currency for the acting owner
type CurrencyResolver func(ctx context.Context) currency.Code

// FixedCurrency always answers code
func FixedCurrency(code currency.Code) CurrencyResolver {
	return func(context.Context) currency.Code { return code }
}

type Summary struct {
	Date        calendar.Date    `json:"date"`
	Currency    currency.Code    `json:"currency"`
	Total       decimal.Decimal  `json:"total"`
	Week        decimal.Decimal  `json:"week"`
	Month       decimal.Decimal  `json:"month"`
	WeekLabel   string           `json:"weekLabel"`
	LessonCount int              `json:"lessonCount"`
	Formatted   FormattedSummary `json:"formatted"`
}

type FormattedSummary struct {
	Total string `json:"total"`
	Week  string `json:"week"`
	Month string `json:"month"`
}

type Handler struct {
	lessons  LessonSource
	currency CurrencyResolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(lessons LessonSource, resolver CurrencyResolver, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if resolver == nil {
		resolver = FixedCurrency(currency.Default)
	}
	return &Handler{
		lessons:  lessons,
		currency: resolver,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/income", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)
		r.Get("/monthly", h.GetMonthly)
		r.Get("/weekly", h.GetWeekly)
	})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.referenceDate(w, r)
	if !ok {
		return
	}
	lessons, ok := h.loadLessons(w, r)
	if !ok {
		return
	}

	code := h.currency(r.Context())
	at := ref.Time()
	weekStart, weekEnd := calendar.WeekRange(at)

	summary := Summary{
		Date:        ref,
		Currency:    code,
		Total:       TotalIncome(lessons),
		Week:        WeeklyIncomeFor(lessons, at),
		Month:       MonthlyIncomeFor(lessons, at),
		WeekLabel:   calendar.FormatRange(weekStart, weekEnd),
		LessonCount: len(lessons),
	}
	summary.Formatted = FormattedSummary{
		Total: currency.Format(summary.Total, code),
		Week:  currency.Format(summary.Week, code),
		Month: currency.Format(summary.Month, code),
	}

	h.metrics.RecordIncomeViewed(r.Context(), "summary")
	httputil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	lessons, ok := h.loadLessons(w, r)
	if !ok {
		return
	}

	h.metrics.RecordIncomeViewed(r.Context(), "monthly")
	httputil.RespondWithJSON(w, http.StatusOK, MonthlyBreakdown(lessons))
}

func (h *Handler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.referenceDate(w, r)
	if !ok {
		return
	}
	lessons, ok := h.loadLessons(w, r)
	if !ok {
		return
	}

	h.metrics.RecordIncomeViewed(r.Context(), "weekly")
	httputil.RespondWithJSON(w, http.StatusOK, WeeklyBreakdown(lessons, ref.Time()))
}

// referenceDate reads ?date=YYYY-MM-DD, defaulting to today
func (h *Handler) referenceDate(w http.ResponseWriter, r *http.Request) (calendar.Date, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return calendar.DateOf(h.now()), true
	}

	d, err := calendar.ParseDate(raw)
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return calendar.Date{}, false
	}
	return d, true
}

func (h *Handler) loadLessons(w http.ResponseWriter, r *http.Request) ([]lesson.Lesson, bool) {
	lessons, err := h.lessons.ListLessons(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load lessons for income", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return lessons, true
}
