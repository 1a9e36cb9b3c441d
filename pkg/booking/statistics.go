package booking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Summary holds the dashboard counters.
type Summary struct {
	VoyageCount               int64           `json:"voyageCount"`
	ReservationCount          int64           `json:"reservationCount"`
	UserCount                 int64           `json:"userCount"`
	TotalRevenue              decimal.Decimal `json:"totalRevenue"`
	ActiveUserCount           int64           `json:"activeUserCount"`
	ConfirmedReservationCount int64           `json:"confirmedReservationCount"`
	PendingReservationCount   int64           `json:"pendingReservationCount"`
}

// StatisticsAggregator derives the Summary from full scans of the stores.
type StatisticsAggregator struct {
	source StatisticsSource
}

// NewStatisticsAggregator wires a StatisticsAggregator.
func NewStatisticsAggregator(source StatisticsSource) (*StatisticsAggregator, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: statistics source dependency is nil", ErrInvalidServiceConfig)
	}
	return &StatisticsAggregator{source: source}, nil
}

// ComputeSummary runs the counting queries concurrently. Revenue is the sum of
// totalPrice over paid reservations.
func (aggregator *StatisticsAggregator) ComputeSummary(ctx context.Context) (Summary, error) {
	var summary Summary
	group, groupContext := errgroup.WithContext(ctx)
	count := func(target *int64, counter func(context.Context) (int64, error)) {
		group.Go(func() error {
			value, err := counter(groupContext)
			if err != nil {
				return err
			}
			*target = value
			return nil
		})
	}
	countStatus := func(status ReservationStatus) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			return aggregator.source.CountReservationsByStatus(ctx, status)
		}
	}
	count(&summary.VoyageCount, aggregator.source.CountVoyages)
	count(&summary.ReservationCount, aggregator.source.CountReservations)
	count(&summary.UserCount, aggregator.source.CountUsers)
	count(&summary.ActiveUserCount, aggregator.source.CountActiveUsers)
	count(&summary.ConfirmedReservationCount, countStatus(ReservationStatusConfirmed))
	count(&summary.PendingReservationCount, countStatus(ReservationStatusPending))
	group.Go(func() error {
		totals, err := aggregator.source.PaidReservationTotals(groupContext)
		if err != nil {
			return err
		}
		summary.TotalRevenue = decimal.Sum(decimal.Zero, totals...)
		return nil
	})
	if err := group.Wait(); err != nil {
		return Summary{}, WrapError("statistics", "summary", "compute", err)
	}
	return summary, nil
}
