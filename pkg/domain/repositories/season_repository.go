package repositories

import "github.com/vsinha/seasonplan/pkg/domain/entities"

// SeasonRepository persists the append-only history of a season.
// Forecast and plan versions are never overwritten.
type SeasonRepository interface {
	SaveForecast(forecast *entities.DemandForecast) error
	GetForecasts(seasonID entities.SeasonID) ([]*entities.DemandForecast, error)

	SavePlan(plan *entities.AllocationPlan) error
	GetPlans(seasonID entities.SeasonID) ([]*entities.AllocationPlan, error)

	AppendActuals(seasonID entities.SeasonID, records []entities.ActualsRecord) error
	GetActuals(seasonID entities.SeasonID) ([]entities.ActualsRecord, error)

	AppendVariance(seasonID entities.SeasonID, event entities.VarianceEvent) error
	GetVarianceHistory(seasonID entities.SeasonID) ([]entities.VarianceEvent, error)

	SaveMarkdown(seasonID entities.SeasonID, decision entities.MarkdownDecision) error
	GetMarkdowns(seasonID entities.SeasonID) ([]entities.MarkdownDecision, error)
}
