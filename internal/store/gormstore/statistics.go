package gormstore

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

// Statistics count every row, soft-deleted ones included.

func (store *Store) CountVoyages(ctx context.Context) (int64, error) {
	return store.count(ctx, &Voyage{}, errorSubjectVoyage)
}

func (store *Store) CountReservations(ctx context.Context) (int64, error) {
	return store.count(ctx, &Reservation{}, errorSubjectReservation)
}

func (store *Store) CountReservationsByStatus(ctx context.Context, status booking.ReservationStatus) (int64, error) {
	return store.count(ctx, &Reservation{}, errorSubjectReservation, "status = ?", string(status))
}

func (store *Store) CountUsers(ctx context.Context) (int64, error) {
	return store.count(ctx, &User{}, errorSubjectUser)
}

func (store *Store) CountActiveUsers(ctx context.Context) (int64, error) {
	return store.count(ctx, &User{}, errorSubjectUser, "active = ?", true)
}

func (store *Store) PaidReservationTotals(ctx context.Context) ([]decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("payment_status = ?", string(booking.PaymentStatusPaid)).
		Pluck("total_price", &totals).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectStatistics, errorCodeSum, err)
	}
	return totals, nil
}

func (store *Store) count(ctx context.Context, model any, subject string, conditions ...any) (int64, error) {
	var total int64
	db := store.db.WithContext(ctx).Model(model)
	if len(conditions) > 0 {
		db = db.Where(conditions[0], conditions[1:]...)
	}
	if err := db.Count(&total).Error; err != nil {
		return 0, wrapStoreError(subject, errorCodeCount, err)
	}
	return total, nil
}
