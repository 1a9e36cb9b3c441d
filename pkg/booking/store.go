package booking

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

// CapacityStore applies atomic seat accounting to a single voyage row.
// Implementations must never read the counter, compute in memory, and write it back.
type CapacityStore interface {
	// IncrementReservedSeats adds seats only when the voyage is active and the
	// result stays within total capacity. It returns ErrVoyageNotFound,
	// ErrVoyageInactive or ErrCapacityExceeded when the condition does not hold.
	IncrementReservedSeats(ctx context.Context, voyageID VoyageID, seats PartySize) error
	// DecrementReservedSeats subtracts seats, floored at zero.
	DecrementReservedSeats(ctx context.Context, voyageID VoyageID, seats PartySize) error
	// ResizeCapacity sets total capacity unless it would drop below the reserved count.
	ResizeCapacity(ctx context.Context, voyageID VoyageID, totalCapacity int) error
}

// VoyageStore persists voyage listings.
type VoyageStore interface {
	CreateVoyage(ctx context.Context, voyage Voyage) (Voyage, error)
	GetVoyage(ctx context.Context, voyageID VoyageID) (Voyage, error)
	// UpdateVoyage writes descriptive fields; capacity counters are left untouched.
	UpdateVoyage(ctx context.Context, voyage Voyage) (Voyage, error)
	SetVoyageActive(ctx context.Context, voyageID VoyageID, active bool) (Voyage, error)
	ListVoyages(ctx context.Context, plan query.Plan) ([]Voyage, int64, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error)
	// TransitionReservationStatus moves status from -> to only if the stored status
	// still equals from; otherwise it returns ErrReservationStatusConflict.
	TransitionReservationStatus(ctx context.Context, reservationID ReservationID, from ReservationStatus, to ReservationStatus) (Reservation, error)
	// UpdatePaymentStatus follows the same compare-and-set contract for payment.
	UpdatePaymentStatus(ctx context.Context, reservationID ReservationID, from PaymentStatus, to PaymentStatus) (Reservation, error)
	ListReservations(ctx context.Context, plan query.Plan) ([]Reservation, int64, error)
	ListReservationsByUser(ctx context.Context, userID UserID) ([]Reservation, error)
}

// Store is the persistence contract used by Service.
type Store interface {
	CapacityStore
	VoyageStore
	ReservationStore
}

// StatisticsSource answers the read-only counting queries behind the summary.
type StatisticsSource interface {
	CountVoyages(ctx context.Context) (int64, error)
	CountReservations(ctx context.Context) (int64, error)
	CountReservationsByStatus(ctx context.Context, status ReservationStatus) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	PaidReservationTotals(ctx context.Context) ([]decimal.Decimal, error)
}
