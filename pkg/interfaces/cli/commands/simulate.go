package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/seasonplan/pkg/application/dto"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/seasonplan/pkg/interfaces/cli/output"
)

type simulateOptions struct {
	actualsFile    string
	approveOrder   int64
	markdownDepth  string
	stopAfterWeeks int
}

func newSimulateCommand(global *globalOptions) *cobra.Command {
	inputs := &inputFlags{}
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a season from weekly actuals",
		Long: `simulate starts a season and submits each week of the actuals file in order.
Approval gates are released automatically: the manufacturing order with --approve-order
(0 accepts the recommendation) and the markdown with --markdown-depth (empty accepts it).`,
		Example: `  seasonplan simulate -c season.yaml --actuals actuals.csv
  seasonplan simulate -c season.yaml --approve-order 9000 --markdown-depth 0.15 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := output.NewRenderer(cmd.OutOrStdout(), global.format)
			if err != nil {
				return err
			}
			var depth *decimal.Decimal
			if opts.markdownDepth != "" {
				d, err := decimal.NewFromString(opts.markdownDepth)
				if err != nil {
					return fmt.Errorf("invalid --markdown-depth %q: %w", opts.markdownDepth, err)
				}
				depth = &d
			}

			s, err := inputs.load(global.logger(cmd))
			if err != nil {
				return err
			}
			actualsPath := firstNonEmpty(opts.actualsFile, s.file.Data.Actuals)
			if actualsPath == "" {
				return fmt.Errorf("no actuals file: pass --actuals or set data.actuals")
			}
			weeks, err := csv.NewLoader().LoadActuals(actualsPath)
			if err != nil {
				return fmt.Errorf("error loading actuals: %w", err)
			}
			if opts.stopAfterWeeks > 0 && opts.stopAfterWeeks < len(weeks) {
				weeks = weeks[:opts.stopAfterWeeks]
			}

			report, runErr := simulate(cmd, s, weeks, entities.Quantity(opts.approveOrder), depth)
			if report != nil {
				if err := renderer.WriteSimulation(report); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	inputs.register(cmd)
	cmd.Flags().StringVar(&opts.actualsFile, "actuals", "", "Path to the weekly actuals CSV file (overrides data.actuals)")
	cmd.Flags().Int64Var(&opts.approveOrder, "approve-order", 0, "Approved manufacturing order, 0 accepts the recommendation")
	cmd.Flags().StringVar(&opts.markdownDepth, "markdown-depth", "", "Approved markdown depth, empty accepts the recommendation")
	cmd.Flags().IntVar(&opts.stopAfterWeeks, "weeks", 0, "Submit only the first N weeks of actuals")
	return cmd
}

// simulate drives one season through its actuals. The report covers every week that
// completed, also when a later step fails.
func simulate(cmd *cobra.Command, s *session, weeks []csv.WeekActuals, order entities.Quantity, depth *decimal.Decimal) (*output.SimulationReport, error) {
	ctx := cmd.Context()
	orch := s.orchestrator

	id, err := orch.StartSeason(ctx, s.season)
	if id == "" {
		return nil, err
	}
	report := &output.SimulationReport{}
	defer func() {
		report.Status, _ = orch.GetStatus(id)
		report.Forecast, _ = orch.GetForecast(id)
		report.Plan, _ = orch.GetAllocationPlan(id)
		report.Summary, _ = orch.GetSummary(id)
	}()
	if err != nil {
		return report, err
	}

	status, err := orch.GetStatus(id)
	if err != nil {
		return report, err
	}
	if status.PendingApproval == entities.ApprovalManufacturingOrder {
		if _, err := orch.ApproveManufacturingOrder(ctx, id, order); err != nil {
			return report, err
		}
	}

	for _, week := range weeks {
		result, err := orch.SubmitActuals(ctx, id, week.Week, week.Units)
		if result != nil {
			report.Weeks = append(report.Weeks, result)
		}
		if err != nil {
			return report, fmt.Errorf("week %d: %w", week.Week, err)
		}
		if result.Markdown == nil || !result.DeferredCycle {
			continue
		}

		approved := result.Markdown.RecommendedDepth
		if depth != nil {
			approved = *depth
		}
		resumed, err := orch.ApproveMarkdown(ctx, id, approved, "approved from simulate")
		if err != nil {
			return report, fmt.Errorf("week %d markdown: %w", week.Week, err)
		}
		mergeApproval(result, resumed)
	}
	return report, nil
}

// mergeApproval folds the steps released by a markdown approval into the checkpoint week
func mergeApproval(week, approval *dto.SubmitResult) {
	week.Markdown = approval.Markdown
	week.Reforecast = approval.Reforecast
	week.RevisedPlan = approval.RevisedPlan
	week.Cycle = approval.Cycle
	week.Phase = approval.Phase
	week.DeferredCycle = false
	if approval.Summary != nil {
		week.Summary = approval.Summary
	}
}
