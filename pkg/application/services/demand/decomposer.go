package demand

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/seasonplan/pkg/application/services/shared"
	"github.com/vsinha/seasonplan/pkg/domain/entities"
	"github.com/vsinha/seasonplan/pkg/domain/services"
)

// Decomposer turns a category season total into per-store weekly demand.
// It holds no season state; every call works from its inputs alone.
type Decomposer struct {
	pool   *shared.WorkerPool
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Decomposer
type Option func(*Decomposer)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decomposer) { d.logger = logger }
}

// WithWorkerPool sets the pool used for per-store work
func WithWorkerPool(pool *shared.WorkerPool) Option {
	return func(d *Decomposer) { d.pool = pool }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(d *Decomposer) { d.now = now }
}

// NewDecomposer creates a decomposer with a core-sized worker pool
func NewDecomposer(opts ...Option) *Decomposer {
	d := &Decomposer{
		pool:   shared.NewWorkerPool(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Input is everything needed for a pre-season decomposition
type Input struct {
	SeasonID      entities.SeasonID
	CategoryTotal entities.Quantity
	Stores        []*entities.Store
	History       []*entities.HistoricalSale
	Policy        entities.DemandPolicy
}

// RedecomposeInput drives a re-forecast of the weeks that have not closed yet
type RedecomposeInput struct {
	Prior      *entities.DemandForecast
	Stores     []*entities.Store
	History    []*entities.HistoricalSale
	Actuals    []entities.ActualsRecord
	ClosedWeek entities.Week
	Reason     entities.ForecastReason
	Lift       decimal.Decimal // markdown demand lift, zero for variance re-forecasts
	Policy     entities.DemandPolicy
}

type storeFactor struct {
	store      *entities.Store
	historical decimal.Decimal
	attribute  decimal.Decimal
	factor     decimal.Decimal
}

type clusterShare struct {
	id              entities.ClusterID
	historicalShare decimal.Decimal
	share           decimal.Decimal
	stores          []storeFactor
}

type storeResult struct {
	factor    storeFactor
	clusterID entities.ClusterID
	total     entities.Quantity
	weekly    []entities.Quantity
}

// Decompose produces the initial forecast of a season
func (d *Decomposer) Decompose(ctx context.Context, in Input) (*entities.DemandForecast, error) {
	if err := validatePolicy(in.CategoryTotal, in.Policy); err != nil {
		return nil, err
	}
	assignment, err := AssignClusters(in.Stores, in.Policy.ClusterCount)
	if err != nil {
		return nil, err
	}

	prior := priorSalesByStore(in.History, in.Stores)
	shares, err := buildClusterShares(in.Stores, assignment, prior, in.Policy)
	if err != nil {
		return nil, err
	}

	weights := services.CurveWeights(in.Policy.Archetype, in.Policy.Weeks)
	results, err := d.distribute(ctx, in.CategoryTotal, shares, weights)
	if err != nil {
		return nil, err
	}

	forecast := d.assemble(in.SeasonID, 1, entities.ReasonInitial, in.Policy.Weeks, 0, decimal.Zero, shares, results)
	d.logger.Debug("demand decomposed",
		"season", in.SeasonID,
		"category_total", forecast.CategoryTotal,
		"clusters", len(forecast.Clusters),
		"stores", len(forecast.Stores))
	return forecast, nil
}

// Redecompose produces a new forecast version from a prior one.
// Clustering is reused; closed weeks are locked to actuals; the remaining demand is rescaled
// by the cumulative actual/forecast ratio (variance) or by 1+lift (markdown), and re-split by
// factors recomputed from history blended with actuals.
func (d *Decomposer) Redecompose(ctx context.Context, in RedecomposeInput) (*entities.DemandForecast, error) {
	if in.Prior == nil {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "prior forecast is required")
	}
	weeks := in.Prior.Weeks
	if in.ClosedWeek < 0 || int(in.ClosedWeek) > weeks {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "closed week %d outside season of %d weeks", in.ClosedWeek, weeks)
	}
	if in.Lift.IsNegative() {
		return nil, entities.NewPlanningError(entities.KindInvalidInput, "demand lift cannot be negative, got %s", in.Lift)
	}

	assignment := ClusterAssignment{ByStore: in.Prior.ClusterAssignments()}
	for _, c := range in.Prior.Clusters {
		assignment.Order = append(assignment.Order, c.ClusterID)
	}
	stores, err := priorMembers(in.Prior, in.Stores)
	if err != nil {
		return nil, err
	}

	actual := make(map[entities.StoreID]map[entities.Week]entities.Quantity)
	var actualCum, forecastCum entities.Quantity
	for _, r := range in.Actuals {
		if r.Week > in.ClosedWeek {
			continue
		}
		sf, ok := in.Prior.Store(r.StoreID)
		if !ok {
			continue
		}
		if actual[r.StoreID] == nil {
			actual[r.StoreID] = make(map[entities.Week]entities.Quantity)
		}
		actual[r.StoreID][r.Week] = r.Units
		actualCum += r.Units
		forecastCum += sf.WeekQty(r.Week)
	}

	ratio := decimal.NewFromInt(1)
	if in.Reason == entities.ReasonVariance && forecastCum > 0 {
		ratio = decimal.NewFromInt(int64(actualCum)).Div(decimal.NewFromInt(int64(forecastCum)))
		ratio = clamp(ratio, in.Policy.ReforecastMin, in.Policy.ReforecastMax)
	}
	multiplier := ratio.Mul(decimal.NewFromInt(1).Add(in.Lift))
	priorRemaining := in.Prior.RemainingTotal(in.ClosedWeek)
	remaining := entities.Quantity(decimal.NewFromInt(int64(priorRemaining)).Mul(multiplier).Round(0).IntPart())

	// blend prior-period sales with what the season has sold so far
	blended := priorSalesByStore(in.History, stores)
	for id, weeksSold := range actual {
		for _, units := range weeksSold {
			blended[id] += units
		}
	}
	shares, err := buildClusterShares(stores, assignment, blended, in.Policy)
	if err != nil {
		return nil, err
	}

	full := services.CurveWeights(in.Policy.Archetype, weeks)
	results, err := d.distribute(ctx, remaining, shares, full[in.ClosedWeek:])
	if err != nil {
		return nil, err
	}

	// prepend locked weeks; weeks without a reported actual keep the prior forecast
	for i := range results {
		r := &results[i]
		id := r.factor.store.ID
		sf, _ := in.Prior.Store(id)
		locked := make([]entities.Quantity, in.ClosedWeek, weeks)
		for w := entities.Week(1); w <= in.ClosedWeek; w++ {
			if units, ok := actual[id][w]; ok {
				locked[w-1] = units
			} else {
				locked[w-1] = sf.WeekQty(w)
			}
		}
		r.weekly = append(locked, r.weekly...)
		r.total = entities.SumQuantities(r.weekly)
	}

	forecast := d.assemble(in.Prior.SeasonID, in.Prior.Version+1, in.Reason, weeks, in.ClosedWeek, in.Lift, shares, results)
	d.logger.Info("demand re-forecast",
		"season", in.Prior.SeasonID,
		"version", forecast.Version,
		"reason", in.Reason.String(),
		"closed_week", in.ClosedWeek,
		"ratio", ratio.StringFixed(4),
		"lift", in.Lift.String(),
		"prior_remaining", priorRemaining,
		"remaining", remaining,
		"category_total", forecast.CategoryTotal)
	return forecast, nil
}

// BlendFactor combines a historical and attribute factor with the given historical weight
func BlendFactor(historical, attribute, weight decimal.Decimal) decimal.Decimal {
	return weight.Mul(historical).Add(decimal.NewFromInt(1).Sub(weight).Mul(attribute))
}

// distribute splits total over clusters and stores, then across weeks in parallel
func (d *Decomposer) distribute(
	ctx context.Context,
	total entities.Quantity,
	clusters []clusterShare,
	weights []decimal.Decimal,
) ([]storeResult, error) {
	shares := make([]decimal.Decimal, len(clusters))
	for i, c := range clusters {
		shares[i] = c.share
	}
	clusterTotals, err := services.RoundWithDrift(total, shares)
	if err != nil {
		return nil, entities.WrapPlanningError(entities.KindInvariantViolation, err, "cluster rounding failed")
	}

	var results []storeResult
	for i, c := range clusters {
		factors := make([]decimal.Decimal, len(c.stores))
		for j, s := range c.stores {
			factors[j] = s.factor
		}
		storeTotals, err := services.RoundWithDrift(clusterTotals[i], factors)
		if err != nil {
			return nil, entities.WrapPlanningError(entities.KindInvariantViolation, err, "store rounding failed in cluster %s", c.id)
		}
		for j, s := range c.stores {
			results = append(results, storeResult{factor: s, clusterID: c.id, total: storeTotals[j]})
		}
	}

	err = d.pool.ForEach(ctx, len(results), func(i int) error {
		results[i].weekly = services.Apportion(results[i].total, weights)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("weekly disaggregation interrupted: %w", err)
	}
	return results, nil
}

func (d *Decomposer) assemble(
	seasonID entities.SeasonID,
	version int,
	reason entities.ForecastReason,
	weeks int,
	locked entities.Week,
	lift decimal.Decimal,
	shares []clusterShare,
	results []storeResult,
) *entities.DemandForecast {
	forecast := &entities.DemandForecast{
		Version:     version,
		SeasonID:    seasonID,
		Reason:      reason,
		Weeks:       weeks,
		LockedWeeks: locked,
		DemandLift:  lift,
		Clusters:    make([]entities.ClusterForecast, 0, len(shares)),
		Stores:      make([]entities.StoreForecast, 0, len(results)),
		CreatedAt:   d.now(),
	}

	clusterTotals := make(map[entities.ClusterID]entities.Quantity)
	for _, r := range results {
		forecast.Stores = append(forecast.Stores, entities.StoreForecast{
			StoreID:          r.factor.store.ID,
			ClusterID:        r.clusterID,
			HistoricalFactor: r.factor.historical,
			AttributeFactor:  r.factor.attribute,
			Factor:           r.factor.factor,
			SeasonTotal:      r.total,
			Weekly:           r.weekly,
		})
		clusterTotals[r.clusterID] += r.total
		forecast.CategoryTotal += r.total
	}
	sort.Slice(forecast.Stores, func(i, j int) bool { return forecast.Stores[i].StoreID < forecast.Stores[j].StoreID })

	for _, c := range shares {
		members := make([]entities.StoreID, len(c.stores))
		for i, s := range c.stores {
			members[i] = s.store.ID
		}
		forecast.Clusters = append(forecast.Clusters, entities.ClusterForecast{
			ClusterID:       c.id,
			HistoricalShare: c.historicalShare,
			Share:           c.share,
			Total:           clusterTotals[c.id],
			Stores:          members,
		})
	}
	return forecast
}

// buildClusterShares computes cluster shares and blended store factors
func buildClusterShares(
	stores []*entities.Store,
	assignment ClusterAssignment,
	prior map[entities.StoreID]entities.Quantity,
	policy entities.DemandPolicy,
) ([]clusterShare, error) {
	byID := make(map[entities.StoreID]*entities.Store, len(stores))
	for _, s := range stores {
		byID[s.ID] = s
	}

	shares := make([]clusterShare, 0, len(assignment.Order))
	var totalPrior, totalSize int64
	clusterPrior := make([]int64, len(assignment.Order))
	clusterSize := make([]int64, len(assignment.Order))

	for i, id := range assignment.Order {
		share := clusterShare{id: id}
		var members []*entities.Store
		for _, storeID := range assignment.Members(id) {
			s, ok := byID[storeID]
			if !ok {
				return nil, entities.NewPlanningError(entities.KindInvalidInput, "store %s missing from reference data", storeID)
			}
			members = append(members, s)
			clusterPrior[i] += int64(prior[s.ID])
			clusterSize[i] += s.SizeSqFt
		}
		if len(members) == 0 {
			return nil, entities.NewPlanningError(entities.KindInvalidInput, "cluster %s has no stores", id)
		}
		share.stores = blendStoreFactors(members, prior, clusterPrior[i], clusterSize[i], policy.HistoricalWeight)
		totalPrior += clusterPrior[i]
		totalSize += clusterSize[i]
		shares = append(shares, share)
	}

	for i := range shares {
		switch {
		case totalPrior > 0:
			shares[i].historicalShare = ratioOf(clusterPrior[i], totalPrior)
		case totalSize > 0:
			shares[i].historicalShare = ratioOf(clusterSize[i], totalSize)
		}
		shares[i].share = shares[i].historicalShare
	}

	if len(policy.ClusterTargets) > 0 {
		for i := range shares {
			target, ok := policy.ClusterTargets[shares[i].id]
			if !ok {
				return nil, entities.NewPlanningError(entities.KindInvalidInput, "no share target configured for cluster %s", shares[i].id)
			}
			shares[i].share = target
		}
		if len(policy.ClusterTargets) != len(shares) {
			return nil, entities.NewPlanningError(entities.KindInvalidInput,
				"%d cluster targets configured for %d clusters", len(policy.ClusterTargets), len(shares))
		}
	}
	return shares, nil
}

// blendStoreFactors weights each member by history and attributes.
// A member without history, or a cluster without history, falls back to attributes only.
func blendStoreFactors(
	members []*entities.Store,
	prior map[entities.StoreID]entities.Quantity,
	clusterPrior, clusterSize int64,
	weight decimal.Decimal,
) []storeFactor {
	out := make([]storeFactor, len(members))
	sum := decimal.Zero
	for i, s := range members {
		f := storeFactor{store: s, historical: decimal.Zero}
		if clusterSize > 0 {
			f.attribute = ratioOf(s.SizeSqFt, clusterSize)
		} else {
			f.attribute = ratioOf(1, int64(len(members)))
		}
		if clusterPrior > 0 && prior[s.ID] > 0 {
			f.historical = ratioOf(int64(prior[s.ID]), clusterPrior)
			f.factor = BlendFactor(f.historical, f.attribute, weight)
		} else {
			f.factor = f.attribute
		}
		sum = sum.Add(f.factor)
		out[i] = f
	}

	if sum.IsPositive() && sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(entities.ShareTolerance) {
		for i := range out {
			out[i].factor = out[i].factor.Div(sum)
		}
	}
	return out
}

func priorSalesByStore(history []*entities.HistoricalSale, stores []*entities.Store) map[entities.StoreID]entities.Quantity {
	known := make(map[entities.StoreID]bool, len(stores))
	for _, s := range stores {
		known[s.ID] = true
	}
	out := make(map[entities.StoreID]entities.Quantity, len(stores))
	for _, h := range history {
		if known[h.StoreID] && h.Units > 0 {
			out[h.StoreID] += h.Units
		}
	}
	return out
}

func priorMembers(prior *entities.DemandForecast, stores []*entities.Store) ([]*entities.Store, error) {
	byID := make(map[entities.StoreID]*entities.Store, len(stores))
	for _, s := range stores {
		byID[s.ID] = s
	}
	out := make([]*entities.Store, 0, len(prior.Stores))
	for _, sf := range prior.Stores {
		s, ok := byID[sf.StoreID]
		if !ok {
			return nil, entities.NewPlanningError(entities.KindInvalidInput, "store %s missing from reference data", sf.StoreID)
		}
		cp := *s
		cp.ClusterID = sf.ClusterID
		out = append(out, &cp)
	}
	return out, nil
}

func validatePolicy(total entities.Quantity, policy entities.DemandPolicy) error {
	if total < 0 {
		return entities.NewPlanningError(entities.KindInvalidInput, "category total cannot be negative, got %d", total)
	}
	if policy.Weeks <= 0 {
		return entities.NewPlanningError(entities.KindInvalidInput, "season length must be positive, got %d", policy.Weeks)
	}
	return nil
}

func ratioOf(num, den int64) decimal.Decimal {
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
