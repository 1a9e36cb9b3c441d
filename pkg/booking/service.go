package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

// Service contains the reservation lifecycle and voyage catalog over a Store.
type Service struct {
	store  Store
	ledger *CapacityLedger
	nowFn  func() time.Time
	newID  func() string
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	ledger, err := NewCapacityLedger(store)
	if err != nil {
		return nil, err
	}
	service := &Service{store: store, ledger: ledger, nowFn: now, newID: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateReservation books seats on a voyage. Seats are claimed first; if the
// reservation record cannot be written afterwards the seats are released again.
func (service *Service) CreateReservation(ctx context.Context, actor Actor, input ReservationInput) (Reservation, error) {
	var created Reservation
	operationError := func() error {
		if _, err := NewPartySize(input.PartySize.Int()); err != nil {
			return err
		}
		voyage, err := service.store.GetVoyage(ctx, input.VoyageID)
		if err != nil {
			return err
		}
		if !voyage.Active {
			return ErrVoyageInactive
		}
		reservationID, err := NewReservationID(service.newID())
		if err != nil {
			return err
		}
		totalPrice := voyage.Price.Mul(decimal.NewFromInt(int64(input.PartySize)))
		if err := service.ledger.Reserve(ctx, voyage.ID, input.PartySize); err != nil {
			return err
		}
		now := service.nowFn().UTC()
		reservation := Reservation{
			ID:              reservationID,
			VoyageID:        voyage.ID,
			UserID:          actor.ID,
			PartySize:       input.PartySize,
			TotalPrice:      totalPrice,
			SpecialRequests: input.SpecialRequests,
			Phone:           input.Phone,
			Status:          ReservationStatusPending,
			PaymentStatus:   PaymentStatusPending,
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		created, err = service.store.CreateReservation(ctx, reservation)
		if err != nil {
			if releaseErr := service.ledger.Release(ctx, voyage.ID, input.PartySize); releaseErr != nil {
				return errors.Join(err, releaseErr)
			}
			return err
		}
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreateReservation,
		ActorID:       actor.ID,
		VoyageID:      input.VoyageID,
		ReservationID: created.ID,
		Seats:         input.PartySize,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return created, nil
}

// GetReservation returns a reservation to its owner or to a reservation manager.
func (service *Service) GetReservation(ctx context.Context, actor Actor, reservationID ReservationID) (Reservation, error) {
	reservation, err := service.store.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	if !actor.canAccess(reservation) {
		return Reservation{}, ErrForbidden
	}
	return reservation, nil
}

// ListMyReservations returns the actor's active reservations, newest first.
func (service *Service) ListMyReservations(ctx context.Context, actor Actor) ([]Reservation, error) {
	return service.store.ListReservationsByUser(ctx, actor.ID)
}

// ListReservations shapes params into a plan and returns one page of reservations.
func (service *Service) ListReservations(ctx context.Context, actor Actor, params url.Values) (Page[Reservation], error) {
	if !actor.CanManageReservations() {
		return Page[Reservation]{}, ErrForbidden
	}
	plan := query.Shape(ReservationSchema(), params)
	reservations, count, err := service.store.ListReservations(ctx, plan)
	if err != nil {
		return Page[Reservation]{}, err
	}
	return Page[Reservation]{
		Items:      reservations,
		Count:      count,
		Pagination: plan.Paginate(count),
		Plan:       plan,
	}, nil
}

// UpdateReservation applies allow-listed status and payment changes for
// reservation managers. Moving status to cancelled runs the cancellation
// protocol so seats are released.
func (service *Service) UpdateReservation(ctx context.Context, actor Actor, reservationID ReservationID, update ReservationUpdate) (Reservation, error) {
	if !actor.CanManageReservations() {
		return Reservation{}, ErrForbidden
	}
	if update.Status != nil && *update.Status == ReservationStatusCancelled {
		cancelled, err := service.CancelReservation(ctx, actor, reservationID)
		if err != nil || update.PaymentStatus == nil {
			return cancelled, err
		}
		return service.UpdateReservation(ctx, actor, reservationID, ReservationUpdate{PaymentStatus: update.PaymentStatus})
	}

	var updated Reservation
	var voyageID VoyageID
	operationError := func() error {
		reservation, err := service.store.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		voyageID = reservation.VoyageID
		updated = reservation
		if update.Status != nil && *update.Status != reservation.Status {
			if !reservation.Status.CanTransitionTo(*update.Status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, reservation.Status, *update.Status)
			}
			updated, err = service.store.TransitionReservationStatus(ctx, reservationID, reservation.Status, *update.Status)
			if err != nil {
				return err
			}
		}
		if update.PaymentStatus != nil && *update.PaymentStatus != updated.PaymentStatus {
			if !updated.PaymentStatus.CanTransitionTo(*update.PaymentStatus) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidPaymentTransition, updated.PaymentStatus, *update.PaymentStatus)
			}
			updated, err = service.store.UpdatePaymentStatus(ctx, reservationID, updated.PaymentStatus, *update.PaymentStatus)
			if err != nil {
				return err
			}
		}
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationUpdateReservation,
		ActorID:       actor.ID,
		VoyageID:      voyageID,
		ReservationID: reservationID,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return updated, nil
}

// CancelReservation claims the reservation with a conditional status flip and
// then releases its seats. If the release fails the flip is reverted. A
// voyage that no longer exists is skipped and the cancellation stands.
func (service *Service) CancelReservation(ctx context.Context, actor Actor, reservationID ReservationID) (Reservation, error) {
	var cancelled Reservation
	var seats PartySize
	var voyageID VoyageID
	operationError := func() error {
		for attempt := 0; attempt < maxCancelAttempts; attempt++ {
			reservation, err := service.store.GetReservation(ctx, reservationID)
			if err != nil {
				return err
			}
			if !actor.canAccess(reservation) {
				return ErrForbidden
			}
			if reservation.Status == ReservationStatusCancelled {
				return ErrAlreadyCancelled
			}
			seats = reservation.PartySize
			voyageID = reservation.VoyageID
			cancelled, err = service.store.TransitionReservationStatus(ctx, reservationID, reservation.Status, ReservationStatusCancelled)
			if errors.Is(err, ErrReservationStatusConflict) {
				continue
			}
			if err != nil {
				return err
			}
			releaseErr := service.ledger.Release(ctx, reservation.VoyageID, reservation.PartySize)
			if releaseErr == nil || errors.Is(releaseErr, ErrVoyageNotFound) {
				return nil
			}
			if _, revertErr := service.store.TransitionReservationStatus(ctx, reservationID, ReservationStatusCancelled, reservation.Status); revertErr != nil {
				return errors.Join(releaseErr, revertErr)
			}
			return releaseErr
		}
		return ErrReservationStatusConflict
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancelReservation,
		ActorID:       actor.ID,
		VoyageID:      voyageID,
		ReservationID: reservationID,
		Seats:         seats,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return cancelled, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
