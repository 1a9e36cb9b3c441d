package gormstore

import (
	"context"
	"errors"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

const (
	pgUniqueViolationCode   = "23505"
	pgCheckViolationCode    = "23514"
	pgInvalidTextCode       = "22P02"
	sqliteConstraintCode    = 19
	errorOperationStore     = "store"
	errorSubjectVoyage      = "voyage"
	errorSubjectReservation = "reservation"
	errorSubjectUser        = "user"
	errorSubjectStatistics  = "statistics"
	errorCodeCreate         = "create"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeCount          = "count"
	errorCodeUpdate         = "update"
	errorCodeUpdateStatus   = "update_status"
	errorCodeUpdatePayment  = "update_payment"
	errorCodeIncrement      = "increment"
	errorCodeDecrement      = "decrement"
	errorCodeResize         = "resize"
	errorCodeSum            = "sum"
)

// Store implements booking.Store and booking.StatisticsSource using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ booking.Store            = (*Store)(nil)
	_ booking.StatisticsSource = (*Store)(nil)
)

// IncrementReservedSeats is a single conditional UPDATE: the row changes only
// while the voyage is active and the new count fits the capacity.
func (store *Store) IncrementReservedSeats(ctx context.Context, voyageID booking.VoyageID, seats booking.PartySize) error {
	result := store.db.WithContext(ctx).
		Model(&Voyage{}).
		Where("id = ? AND active = ? AND reserved_count + ? <= total_capacity", voyageID.String(), true, seats.Int()).
		Updates(map[string]any{
			"reserved_count": gorm.Expr("reserved_count + ?", seats.Int()),
			"remaining":      gorm.Expr("total_capacity - reserved_count - ?", seats.Int()),
			"revision":       gorm.Expr("revision + 1"),
		})
	if isConstraintViolation(result.Error) {
		return wrapStoreError(errorSubjectVoyage, errorCodeIncrement, booking.ErrCapacityExceeded)
	}
	if result.Error != nil {
		return wrapStoreError(errorSubjectVoyage, errorCodeIncrement, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	voyage, err := store.GetVoyage(ctx, voyageID)
	if err != nil {
		return err
	}
	if !voyage.Active {
		return wrapStoreError(errorSubjectVoyage, errorCodeIncrement, booking.ErrVoyageInactive)
	}
	return wrapStoreError(errorSubjectVoyage, errorCodeIncrement, booking.ErrCapacityExceeded)
}

// DecrementReservedSeats releases seats, flooring the counter at zero.
func (store *Store) DecrementReservedSeats(ctx context.Context, voyageID booking.VoyageID, seats booking.PartySize) error {
	result := store.db.WithContext(ctx).
		Model(&Voyage{}).
		Where("id = ?", voyageID.String()).
		Updates(map[string]any{
			"reserved_count": gorm.Expr("CASE WHEN reserved_count < ? THEN 0 ELSE reserved_count - ? END", seats.Int(), seats.Int()),
			"remaining":      gorm.Expr("CASE WHEN reserved_count < ? THEN total_capacity ELSE total_capacity - reserved_count + ? END", seats.Int(), seats.Int()),
			"revision":       gorm.Expr("revision + 1"),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectVoyage, errorCodeDecrement, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectVoyage, errorCodeDecrement, booking.ErrVoyageNotFound)
	}
	return nil
}

// ResizeCapacity changes total capacity only when the reserved seats still fit.
func (store *Store) ResizeCapacity(ctx context.Context, voyageID booking.VoyageID, totalCapacity int) error {
	result := store.db.WithContext(ctx).
		Model(&Voyage{}).
		Where("id = ? AND reserved_count <= ?", voyageID.String(), totalCapacity).
		Updates(map[string]any{
			"total_capacity": totalCapacity,
			"remaining":      gorm.Expr("? - reserved_count", totalCapacity),
			"revision":       gorm.Expr("revision + 1"),
		})
	if isConstraintViolation(result.Error) {
		return wrapStoreError(errorSubjectVoyage, errorCodeResize, booking.ErrCapacityExceeded)
	}
	if result.Error != nil {
		return wrapStoreError(errorSubjectVoyage, errorCodeResize, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	if _, err := store.GetVoyage(ctx, voyageID); err != nil {
		return err
	}
	return wrapStoreError(errorSubjectVoyage, errorCodeResize, booking.ErrCapacityExceeded)
}

func (store *Store) CreateVoyage(ctx context.Context, voyage booking.Voyage) (booking.Voyage, error) {
	model := voyageModel(voyage)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeDuplicate, err)
		}
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeCreate, err)
	}
	return store.GetVoyage(ctx, voyage.ID)
}

func (store *Store) GetVoyage(ctx context.Context, voyageID booking.VoyageID) (booking.Voyage, error) {
	var model Voyage
	err := store.db.WithContext(ctx).Where("id = ?", voyageID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidText(err) {
			return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeGet, booking.ErrVoyageNotFound)
		}
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeGet, err)
	}
	voyage, err := mapVoyage(model)
	if err != nil {
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeInvalid, err)
	}
	return voyage, nil
}

// UpdateVoyage writes the descriptive columns. Capacity counters are owned by
// the conditional updates above and are never written here.
func (store *Store) UpdateVoyage(ctx context.Context, voyage booking.Voyage) (booking.Voyage, error) {
	result := store.db.WithContext(ctx).
		Model(&Voyage{}).
		Where("id = ?", voyage.ID.String()).
		Updates(map[string]any{
			"title":         voyage.Title,
			"description":   voyage.Description,
			"destination":   voyage.Destination,
			"city":          voyage.City,
			"country":       voyage.Country,
			"price":         voyage.Price,
			"duration_days": voyage.DurationDays,
			"departure_at":  voyage.DepartureAt.UTC(),
			"return_at":     voyage.ReturnAt.UTC(),
			"status":        string(voyage.Status),
			"revision":      gorm.Expr("revision + 1"),
		})
	if result.Error != nil {
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeUpdate, booking.ErrVoyageNotFound)
	}
	return store.GetVoyage(ctx, voyage.ID)
}

func (store *Store) SetVoyageActive(ctx context.Context, voyageID booking.VoyageID, active bool) (booking.Voyage, error) {
	result := store.db.WithContext(ctx).
		Model(&Voyage{}).
		Where("id = ?", voyageID.String()).
		Updates(map[string]any{
			"active":   active,
			"revision": gorm.Expr("revision + 1"),
		})
	if result.Error != nil && !isInvalidText(result.Error) {
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeUpdate, result.Error)
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return booking.Voyage{}, wrapStoreError(errorSubjectVoyage, errorCodeUpdate, booking.ErrVoyageNotFound)
	}
	return store.GetVoyage(ctx, voyageID)
}

func (store *Store) ListVoyages(ctx context.Context, plan query.Plan) ([]booking.Voyage, int64, error) {
	var count int64
	if err := store.db.WithContext(ctx).Model(&Voyage{}).Scopes(filtered(plan)).Count(&count).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectVoyage, errorCodeCount, err)
	}
	var rows []Voyage
	if err := store.db.WithContext(ctx).Scopes(filtered(plan), windowed(plan)).Find(&rows).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectVoyage, errorCodeList, err)
	}
	voyages := make([]booking.Voyage, 0, len(rows))
	for _, row := range rows {
		voyage, err := mapVoyage(row)
		if err != nil {
			return nil, 0, wrapStoreError(errorSubjectVoyage, errorCodeInvalid, err)
		}
		voyages = append(voyages, voyage)
	}
	return voyages, count, nil
}

func (store *Store) CreateReservation(ctx context.Context, reservation booking.Reservation) (booking.Reservation, error) {
	model := reservationModel(reservation)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeDuplicate, err)
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeCreate, err)
	}
	return store.GetReservation(ctx, reservation.ID)
}

func (store *Store) GetReservation(ctx context.Context, reservationID booking.ReservationID) (booking.Reservation, error) {
	var model Reservation
	err := store.db.WithContext(ctx).Where("id = ?", reservationID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isInvalidText(err) {
			return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, booking.ErrReservationNotFound)
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	reservation, err := mapReservation(model)
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservation, nil
}

func (store *Store) TransitionReservationStatus(ctx context.Context, reservationID booking.ReservationID, from booking.ReservationStatus, to booking.ReservationStatus) (booking.Reservation, error) {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", reservationID.String(), string(from)).
		Updates(map[string]any{
			"status":   string(to),
			"revision": gorm.Expr("revision + 1"),
		})
	if result.Error != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetReservation(ctx, reservationID); err != nil {
			return booking.Reservation{}, err
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, booking.ErrReservationStatusConflict)
	}
	return store.GetReservation(ctx, reservationID)
}

func (store *Store) UpdatePaymentStatus(ctx context.Context, reservationID booking.ReservationID, from booking.PaymentStatus, to booking.PaymentStatus) (booking.Reservation, error) {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND payment_status = ?", reservationID.String(), string(from)).
		Updates(map[string]any{
			"payment_status": string(to),
			"revision":       gorm.Expr("revision + 1"),
		})
	if result.Error != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdatePayment, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetReservation(ctx, reservationID); err != nil {
			return booking.Reservation{}, err
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeUpdatePayment, booking.ErrReservationStatusConflict)
	}
	return store.GetReservation(ctx, reservationID)
}

func (store *Store) ListReservations(ctx context.Context, plan query.Plan) ([]booking.Reservation, int64, error) {
	var count int64
	if err := store.db.WithContext(ctx).Model(&Reservation{}).Scopes(filtered(plan)).Count(&count).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectReservation, errorCodeCount, err)
	}
	var rows []Reservation
	if err := store.db.WithContext(ctx).Scopes(filtered(plan), windowed(plan)).Find(&rows).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	reservations, err := mapReservations(rows)
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservations, count, nil
}

func (store *Store) ListReservationsByUser(ctx context.Context, userID booking.UserID) ([]booking.Reservation, error) {
	var rows []Reservation
	err := store.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID.String(), true).
		Order("created_at DESC").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	reservations, err := mapReservations(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservations, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

// isInvalidText reports a Postgres cast failure, such as a malformed uuid in a lookup.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextCode
}
