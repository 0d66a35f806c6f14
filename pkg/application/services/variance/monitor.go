package variance

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// Monitor compares cumulative actuals with the cumulative forecast after each closed week
type Monitor struct {
	policy entities.VariancePolicy
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a variance monitor for one season's thresholds
func NewMonitor(policy entities.VariancePolicy, opts ...Option) *Monitor {
	m := &Monitor{
		policy: policy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Pct returns |actual − forecast| ÷ forecast. A zero forecast yields 0 when nothing sold, else 1.
func Pct(forecastCumulative, actualCumulative entities.Quantity) decimal.Decimal {
	if forecastCumulative == 0 {
		if actualCumulative == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(1)
	}
	diff := decimal.NewFromInt(int64(actualCumulative - forecastCumulative)).Abs()
	return diff.Div(decimal.NewFromInt(int64(forecastCumulative)))
}

// Check classifies the cumulative variance through a week
func (m *Monitor) Check(week entities.Week, forecastCumulative, actualCumulative entities.Quantity) entities.VarianceEvent {
	event := entities.VarianceEvent{
		Week:               week,
		ForecastCumulative: forecastCumulative,
		ActualCumulative:   actualCumulative,
		VariancePct:        Pct(forecastCumulative, actualCumulative),
		Action:             entities.ActionNone,
		CheckedAt:          m.now(),
	}

	switch {
	case m.policy.Boundary.Crosses(event.VariancePct, m.policy.Threshold):
		event.Action = entities.ActionReforecastTriggered
	case m.policy.ReviewThreshold.IsPositive() && m.policy.Boundary.Crosses(event.VariancePct, m.policy.ReviewThreshold):
		event.Action = entities.ActionEscalatedForReview
	}

	level := slog.LevelDebug
	if event.Action != entities.ActionNone {
		level = slog.LevelInfo
	}
	m.logger.Log(context.Background(), level, "variance checked",
		"week", week,
		"forecast_cumulative", forecastCumulative,
		"actual_cumulative", actualCumulative,
		"variance_pct", event.VariancePct.StringFixed(4),
		"action", event.Action.String())
	return event
}

// Cumulative is the forecast and actual totals through a week, restricted to reporting stores
type Cumulative struct {
	Forecast        entities.Quantity
	Actual          entities.Quantity
	ReportingStores int
	MissingStores   []entities.StoreID
}

// Accumulate sums actuals and the current forecast for weeks 1..through.
// Weeks a re-forecast has locked read back as actuals, so variance already absorbed by a
// re-forecast does not trigger again. Stores without a record for the closed week are listed
// as missing and their forecast for that week is excluded, so a data gap is not read as a
// sales shortfall.
func Accumulate(forecast *entities.DemandForecast, actuals []entities.ActualsRecord, through entities.Week) Cumulative {
	var out Cumulative
	if forecast == nil {
		return out
	}

	reported := make(map[entities.StoreID]map[entities.Week]bool)
	for _, r := range actuals {
		if r.Week > through {
			continue
		}
		if _, ok := forecast.Store(r.StoreID); !ok {
			continue
		}
		if reported[r.StoreID] == nil {
			reported[r.StoreID] = make(map[entities.Week]bool)
		}
		reported[r.StoreID][r.Week] = true
		out.Actual += r.Units
	}

	for _, s := range forecast.Stores {
		for w := entities.Week(1); w <= through; w++ {
			if reported[s.StoreID][w] {
				out.Forecast += s.WeekQty(w)
			} else if w == through {
				out.MissingStores = append(out.MissingStores, s.StoreID)
			}
		}
	}

	out.ReportingStores = len(forecast.Stores) - len(out.MissingStores)
	return out
}
