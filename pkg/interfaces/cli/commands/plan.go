package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/seasonplan/pkg/interfaces/cli/output"
)

func newPlanCommand(global *globalOptions) *cobra.Command {
	inputs := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Produce the pre-season forecast and allocation plan",
		Example: `  seasonplan plan --config season.yaml --stores stores.csv --history history.csv
  seasonplan plan -c season.yaml -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := output.NewRenderer(cmd.OutOrStdout(), global.format)
			if err != nil {
				return err
			}
			s, err := inputs.load(global.logger(cmd))
			if err != nil {
				return err
			}

			orch := s.orchestrator
			id, startErr := orch.StartSeason(cmd.Context(), s.season)
			if id == "" {
				return startErr
			}

			report := &output.PlanReport{}
			if report.Status, err = orch.GetStatus(id); err != nil {
				return err
			}
			report.Forecast, _ = orch.GetForecast(id)
			report.Plan, _ = orch.GetAllocationPlan(id)
			if err := renderer.WritePlan(report); err != nil {
				return err
			}
			return startErr
		},
	}
	inputs.register(cmd)
	return cmd
}
