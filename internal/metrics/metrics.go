package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business counters of the tutor service
type Metrics struct {
	lessonsRecorded metric.Int64Counter
	lessonsChanged  metric.Int64Counter
	studentsAdded   metric.Int64Counter
	studentsChanged metric.Int64Counter
	duplicateNames  metric.Int64Counter
	incomeViewed    metric.Int64Counter
	accountsCreated metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.lessonsRecorded, err = meter.Int64Counter(
		"tutor_service.lessons.recorded",
		metric.WithDescription("Total number of lessons recorded"),
		metric.WithUnit("{lesson}"),
	)
	if err != nil {
		return nil, err
	}

	m.lessonsChanged, err = meter.Int64Counter(
		"tutor_service.lessons.changed",
		metric.WithDescription("Lessons updated or deleted"),
		metric.WithUnit("{lesson}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsAdded, err = meter.Int64Counter(
		"tutor_service.students.added",
		metric.WithDescription("Total number of students added"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsChanged, err = meter.Int64Counter(
		"tutor_service.students.changed",
		metric.WithDescription("Students updated or deleted"),
		metric.WithUnit("{student}"),
	)
	if err != nil {
		return nil, err
	}

	m.duplicateNames, err = meter.Int64Counter(
		"tutor_service.students.duplicate_name_rejected",
		metric.WithDescription("Student writes rejected because the name is taken"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.incomeViewed, err = meter.Int64Counter(
		"tutor_service.income.viewed",
		metric.WithDescription("Income summaries served, by view"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.accountsCreated, err = meter.Int64Counter(
		"tutor_service.accounts.created",
		metric.WithDescription("Total number of tutor accounts registered"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordLessonRecorded(ctx context.Context) {
	if m != nil && m.lessonsRecorded != nil {
		m.lessonsRecorded.Add(ctx, 1)
	}
}

// RecordLessonChanged takes "update" or "delete"
func (m *Metrics) RecordLessonChanged(ctx context.Context, op string) {
	if m != nil && m.lessonsChanged != nil {
		m.lessonsChanged.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m *Metrics) RecordStudentAdded(ctx context.Context) {
	if m != nil && m.studentsAdded != nil {
		m.studentsAdded.Add(ctx, 1)
	}
}

func (m *Metrics) RecordStudentChanged(ctx context.Context, op string) {
	if m != nil && m.studentsChanged != nil {
		m.studentsChanged.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m *Metrics) RecordDuplicateName(ctx context.Context) {
	if m != nil && m.duplicateNames != nil {
		m.duplicateNames.Add(ctx, 1)
	}
}

// RecordIncomeViewed takes "summary", "monthly" or "weekly"
func (m *Metrics) RecordIncomeViewed(ctx context.Context, view string) {
	if m != nil && m.incomeViewed != nil {
		m.incomeViewed.Add(ctx, 1, metric.WithAttributes(attribute.String("view", view)))
	}
}

func (m *Metrics) RecordAccountCreated(ctx context.Context) {
	if m != nil && m.accountsCreated != nil {
		m.accountsCreated.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing.
// The returned Metrics will safely ignore all Record* calls.
func NewMock() *Metrics {
	return &Metrics{}
}
