package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

// Breakdown splits revenue between workshop services and part sales.
type Breakdown struct {
	Services decimal.Decimal `json:"services"`
	Parts    decimal.Decimal `json:"parts"`
	Total    decimal.Decimal `json:"total"`
}

// Summary is the admin dashboard headline: revenue today, this month, and
// all time.
type Summary struct {
	Today     Breakdown `json:"today"`
	ThisMonth Breakdown `json:"this_month"`
	AllTime   Breakdown `json:"all_time"`
}

// MonthPoint is one month in the revenue chart series.
type MonthPoint struct {
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	Services decimal.Decimal `json:"services"`
	Parts    decimal.Decimal `json:"parts"`
	Total    decimal.Decimal `json:"total"`
}

// Service computes revenue reports for the admin dashboard. Service revenue
// counts completed appointments by their appointment date; parts revenue
// counts paid orders by their payment date.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a revenue service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("revenue repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Summary reports today's, this month's, and all-time revenue.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	today, err := s.breakdown(ctx, dayStart, time.Time{})
	if err != nil {
		return nil, err
	}
	month, err := s.breakdown(ctx, monthStart, time.Time{})
	if err != nil {
		return nil, err
	}
	all, err := s.breakdown(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &Summary{Today: today, ThisMonth: month, AllTime: all}, nil
}

// MonthlySeries returns per-month revenue for the trailing months, oldest
// first, with zero-valued months filled in so charts stay contiguous.
func (s *Service) MonthlySeries(ctx context.Context, months int) ([]MonthPoint, error) {
	if months <= 0 || months > 36 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "months must be between 1 and 36")
	}

	now := s.now().UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -months, 0)

	orders, err := s.repo.PaidOrders(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paid orders")
	}
	appointments, err := s.repo.CompletedAppointments(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed appointments")
	}

	type bucket struct {
		services decimal.Decimal
		parts    decimal.Decimal
	}
	buckets := make(map[string]*bucket, months)
	keyFor := func(t time.Time) string {
		return t.UTC().Format("2006-01")
	}

	series := make([]MonthPoint, 0, months)
	for cursor := start; cursor.Before(end); cursor = cursor.AddDate(0, 1, 0) {
		buckets[keyFor(cursor)] = &bucket{}
		series = append(series, MonthPoint{Year: cursor.Year(), Month: cursor.Month()})
	}

	for _, order := range orders {
		if order.PaidAt == nil {
			continue
		}
		if b, ok := buckets[keyFor(*order.PaidAt)]; ok {
			b.parts = b.parts.Add(order.TotalPrice)
		}
	}
	for _, appointment := range appointments {
		if b, ok := buckets[keyFor(appointment.AppointmentDate)]; ok {
			b.services = b.services.Add(appointmentTotal(appointment))
		}
	}

	for i := range series {
		key := fmt.Sprintf("%04d-%02d", series[i].Year, int(series[i].Month))
		b := buckets[key]
		series[i].Services = b.services
		series[i].Parts = b.parts
		series[i].Total = b.services.Add(b.parts)
	}
	return series, nil
}

func (s *Service) breakdown(ctx context.Context, from, to time.Time) (Breakdown, error) {
	orders, err := s.repo.PaidOrders(ctx, from, to)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paid orders")
	}
	appointments, err := s.repo.CompletedAppointments(ctx, from, to)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed appointments")
	}

	parts := decimal.Zero
	for _, order := range orders {
		parts = parts.Add(order.TotalPrice)
	}
	services := decimal.Zero
	for _, appointment := range appointments {
		services = services.Add(appointmentTotal(appointment))
	}

	return Breakdown{Services: services, Parts: parts, Total: services.Add(parts)}, nil
}

func appointmentTotal(appointment models.Appointment) decimal.Decimal {
	total := decimal.Zero
	for _, svc := range appointment.Services {
		total = total.Add(svc.Price)
	}
	return total
}
