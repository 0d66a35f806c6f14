package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vsinha/seasonplan/pkg/application/dto"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
)

// Formats accepted by NewRenderer
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Renderer writes planning results in one output format
type Renderer struct {
	format string
	w      io.Writer
}

// NewRenderer creates a renderer for the given format
func NewRenderer(w io.Writer, format string) (*Renderer, error) {
	switch format {
	case FormatText, FormatJSON:
		return &Renderer{format: format, w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// PlanReport is the pre-season output: the initial forecast and allocation plan
type PlanReport struct {
	Status   *dto.SeasonStatus        `json:"status"`
	Forecast *entities.DemandForecast `json:"forecast,omitempty"`
	Plan     *entities.AllocationPlan `json:"plan,omitempty"`
}

// SimulationReport is the output of a full replayed season
type SimulationReport struct {
	PlanReport
	Weeks   []*dto.SubmitResult     `json:"weeks"`
	Summary *entities.SeasonSummary `json:"summary,omitempty"`
}

// WritePlan renders the pre-season plan
func (r *Renderer) WritePlan(report *PlanReport) error {
	if r.format == FormatJSON {
		return r.writeJSON(report)
	}
	r.writeStatus(report.Status)
	r.writeForecast(report.Forecast)
	r.writePlan(report.Plan)
	return nil
}

// WriteSimulation renders a replayed season
func (r *Renderer) WriteSimulation(report *SimulationReport) error {
	if r.format == FormatJSON {
		return r.writeJSON(report)
	}
	r.writeStatus(report.Status)
	r.writeForecast(report.Forecast)
	r.writePlan(report.Plan)
	r.writeWeeks(report.Weeks)
	r.writeSummary(report.Summary)
	return nil
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func (r *Renderer) writeStatus(s *dto.SeasonStatus) {
	if s == nil {
		return
	}
	fmt.Fprintf(r.w, "Season %s (%s)\n", s.SeasonID, s.Category)
	fmt.Fprintf(r.w, "======================\n\n")
	fmt.Fprintf(r.w, "Phase: %s\n", s.Phase)
	fmt.Fprintf(r.w, "Week: %d of %d\n", s.CurrentWeek, s.Weeks)
	if s.PendingApproval != entities.ApprovalNone {
		fmt.Fprintf(r.w, "Pending approval: %s\n", s.PendingApproval)
	}
	if s.BlockedReason != "" {
		fmt.Fprintf(r.w, "Blocked: %s\n", s.BlockedReason)
	}
	if s.AbortReason != "" {
		fmt.Fprintf(r.w, "Aborted: %s\n", s.AbortReason)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) writeForecast(f *entities.DemandForecast) {
	if f == nil {
		return
	}
	fmt.Fprintf(r.w, "Forecast v%d (%s): %d units over %d weeks\n\n", f.Version, f.Reason, f.CategoryTotal, f.Weeks)

	fmt.Fprintf(r.w, "%-10s %-8s %-10s\n", "Cluster", "Share", "Units")
	fmt.Fprintf(r.w, "%-10s %-8s %-10s\n", "----------", "--------", "----------")
	for _, c := range f.Clusters {
		fmt.Fprintf(r.w, "%-10s %-8s %-10d\n", c.ClusterID, c.Share.StringFixed(4), c.Total)
	}
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "%-10s %-10s %-8s %-10s\n", "Store", "Cluster", "Factor", "Units")
	fmt.Fprintf(r.w, "%-10s %-10s %-8s %-10s\n", "----------", "----------", "--------", "----------")
	for _, s := range f.Stores {
		fmt.Fprintf(r.w, "%-10s %-10s %-8s %-10d\n", s.StoreID, s.ClusterID, s.Factor.StringFixed(4), s.SeasonTotal)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) writePlan(p *entities.AllocationPlan) {
	if p == nil {
		return
	}
	fmt.Fprintf(r.w, "Allocation plan v%d\n", p.Version)
	fmt.Fprintf(r.w, "Manufacturing order: %d\n", p.ManufacturingOrder)
	fmt.Fprintf(r.w, "Initial shipments: %d\n", p.TotalInitialShipments())
	fmt.Fprintf(r.w, "Holdback: %d (%s)\n", p.Holdback, p.HoldbackPct.StringFixed(4))
	if p.Scaled {
		fmt.Fprintf(r.w, "Shipments rescaled to honor holdback bounds\n")
	}
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "%-10s %-10s\n", "Store", "Shipment")
	fmt.Fprintf(r.w, "%-10s %-10s\n", "----------", "----------")
	for _, s := range p.InitialShipments {
		fmt.Fprintf(r.w, "%-10s %-10d\n", s.StoreID, s.Quantity)
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) writeWeeks(weeks []*dto.SubmitResult) {
	if len(weeks) == 0 {
		return
	}
	fmt.Fprintf(r.w, "%-6s %-10s %-10s %-9s %-22s %-9s %-8s\n",
		"Week", "Forecast", "Actual", "Variance", "Action", "Shipped", "Short")
	fmt.Fprintf(r.w, "%-6s %-10s %-10s %-9s %-22s %-9s %-8s\n",
		"------", "----------", "----------", "---------", "----------------------", "---------", "--------")
	for _, w := range weeks {
		var shipped, short entities.Quantity
		if w.Cycle != nil {
			shipped = w.Cycle.TotalShipped()
			for _, s := range w.Cycle.Shortfalls {
				short += s.ShortQty
			}
		}
		fmt.Fprintf(r.w, "%-6d %-10d %-10d %-9s %-22s %-9d %-8d\n",
			w.Week,
			w.Variance.ForecastCumulative,
			w.Variance.ActualCumulative,
			w.Variance.VariancePct.StringFixed(4),
			w.Variance.Action,
			shipped,
			short)
		if w.Reforecast != nil {
			fmt.Fprintf(r.w, "       re-forecast v%d (%s): %d units\n", w.Reforecast.Version, w.Reforecast.Reason, w.Reforecast.CategoryTotal)
		}
		if w.Markdown != nil {
			fmt.Fprintf(r.w, "       markdown: %s\n", w.Markdown.Reason)
		}
		if len(w.DataGaps) > 0 {
			fmt.Fprintf(r.w, "       missing actuals: %v\n", w.DataGaps)
		}
		for _, o := range w.Oversold {
			fmt.Fprintf(r.w, "       oversold: %s by %d units\n", o.StoreID, o.Quantity)
		}
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) writeSummary(s *entities.SeasonSummary) {
	if s == nil {
		return
	}
	fmt.Fprintf(r.w, "Season summary\n")
	fmt.Fprintf(r.w, "  Units sold: %d of %d made\n", s.UnitsSold, s.ManufacturingOrder)
	fmt.Fprintf(r.w, "  Sell-through: %s\n", s.SellThrough.StringFixed(4))
	fmt.Fprintf(r.w, "  Initial forecast: %d (error %s)\n", s.InitialForecast, s.ForecastError.StringFixed(4))
	fmt.Fprintf(r.w, "  Re-forecasts: %d\n", s.Reforecasts)
	fmt.Fprintf(r.w, "  Markdown depth: %s\n", s.MarkdownDepth.StringFixed(2))
	fmt.Fprintf(r.w, "  Remaining holdback: %d\n", s.RemainingHoldback)
	fmt.Fprintf(r.w, "  Ending on hand: %d\n", s.EndingOnHand)
	if s.ShortfallUnits > 0 {
		fmt.Fprintf(r.w, "  Shortfall units: %d\n", s.ShortfallUnits)
	}
}
