package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type stubStore struct {
	mu           sync.Mutex
	voyages      map[VoyageID]Voyage
	reservations map[ReservationID]Reservation

	createReservationErr error
	decrementErr         error
	updateVoyageErr      error
	lastPlan             query.Plan
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		voyages:      make(map[VoyageID]Voyage),
		reservations: make(map[ReservationID]Reservation),
	}
}

func (store *stubStore) IncrementReservedSeats(_ context.Context, voyageID VoyageID, seats PartySize) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	voyage, ok := store.voyages[voyageID]
	if !ok {
		return ErrVoyageNotFound
	}
	if !voyage.Active {
		return ErrVoyageInactive
	}
	if voyage.ReservedCount+seats.Int() > voyage.TotalCapacity {
		return ErrCapacityExceeded
	}
	voyage.ReservedCount += seats.Int()
	store.voyages[voyageID] = voyage
	return nil
}

func (store *stubStore) DecrementReservedSeats(_ context.Context, voyageID VoyageID, seats PartySize) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.decrementErr != nil {
		return store.decrementErr
	}
	voyage, ok := store.voyages[voyageID]
	if !ok {
		return ErrVoyageNotFound
	}
	voyage.ReservedCount = max(voyage.ReservedCount-seats.Int(), 0)
	store.voyages[voyageID] = voyage
	return nil
}

func (store *stubStore) ResizeCapacity(_ context.Context, voyageID VoyageID, totalCapacity int) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	voyage, ok := store.voyages[voyageID]
	if !ok {
		return ErrVoyageNotFound
	}
	if totalCapacity < voyage.ReservedCount {
		return ErrCapacityExceeded
	}
	voyage.TotalCapacity = totalCapacity
	store.voyages[voyageID] = voyage
	return nil
}

func (store *stubStore) CreateVoyage(_ context.Context, voyage Voyage) (Voyage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.voyages[voyage.ID] = voyage
	return voyage, nil
}

func (store *stubStore) GetVoyage(_ context.Context, voyageID VoyageID) (Voyage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	voyage, ok := store.voyages[voyageID]
	if !ok {
		return Voyage{}, ErrVoyageNotFound
	}
	return voyage, nil
}

func (store *stubStore) UpdateVoyage(_ context.Context, voyage Voyage) (Voyage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.updateVoyageErr != nil {
		return Voyage{}, store.updateVoyageErr
	}
	current, ok := store.voyages[voyage.ID]
	if !ok {
		return Voyage{}, ErrVoyageNotFound
	}
	voyage.ReservedCount = current.ReservedCount
	voyage.TotalCapacity = current.TotalCapacity
	store.voyages[voyage.ID] = voyage
	return voyage, nil
}

func (store *stubStore) SetVoyageActive(_ context.Context, voyageID VoyageID, active bool) (Voyage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	voyage, ok := store.voyages[voyageID]
	if !ok {
		return Voyage{}, ErrVoyageNotFound
	}
	voyage.Active = active
	store.voyages[voyageID] = voyage
	return voyage, nil
}

func (store *stubStore) ListVoyages(_ context.Context, plan query.Plan) ([]Voyage, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.lastPlan = plan
	var voyages []Voyage
	for _, voyage := range store.voyages {
		if voyage.Active {
			voyages = append(voyages, voyage)
		}
	}
	return voyages, int64(len(voyages)), nil
}

func (store *stubStore) CreateReservation(_ context.Context, reservation Reservation) (Reservation, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.createReservationErr != nil {
		return Reservation{}, store.createReservationErr
	}
	store.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (store *stubStore) GetReservation(_ context.Context, reservationID ReservationID) (Reservation, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	reservation, ok := store.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	return reservation, nil
}

func (store *stubStore) TransitionReservationStatus(_ context.Context, reservationID ReservationID, from ReservationStatus, to ReservationStatus) (Reservation, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	reservation, ok := store.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	if reservation.Status != from {
		return Reservation{}, ErrReservationStatusConflict
	}
	reservation.Status = to
	store.reservations[reservationID] = reservation
	return reservation, nil
}

func (store *stubStore) UpdatePaymentStatus(_ context.Context, reservationID ReservationID, from PaymentStatus, to PaymentStatus) (Reservation, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	reservation, ok := store.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrReservationNotFound
	}
	if reservation.PaymentStatus != from {
		return Reservation{}, ErrReservationStatusConflict
	}
	reservation.PaymentStatus = to
	store.reservations[reservationID] = reservation
	return reservation, nil
}

func (store *stubStore) ListReservations(_ context.Context, plan query.Plan) ([]Reservation, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.lastPlan = plan
	reservations := make([]Reservation, 0, len(store.reservations))
	for _, reservation := range store.reservations {
		reservations = append(reservations, reservation)
	}
	return reservations, int64(len(reservations)), nil
}

func (store *stubStore) ListReservationsByUser(_ context.Context, userID UserID) ([]Reservation, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var reservations []Reservation
	for _, reservation := range store.reservations {
		if reservation.UserID == userID && reservation.Active {
			reservations = append(reservations, reservation)
		}
	}
	sort.Slice(reservations, func(left, right int) bool {
		return reservations[left].CreatedAt.After(reservations[right].CreatedAt)
	})
	return reservations, nil
}

func (store *stubStore) putVoyage(voyage Voyage) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.voyages[voyage.ID] = voyage
}

func (store *stubStore) mustVoyage(test *testing.T, voyageID VoyageID) Voyage {
	test.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	voyage, ok := store.voyages[voyageID]
	if !ok {
		test.Fatalf("voyage %s not stored", voyageID)
	}
	return voyage
}

// activeSeats sums party sizes of the voyage's non-cancelled reservations.
func (store *stubStore) activeSeats(voyageID VoyageID) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	total := 0
	for _, reservation := range store.reservations {
		if reservation.VoyageID == voyageID && reservation.Status != ReservationStatusCancelled {
			total += reservation.PartySize.Int()
		}
	}
	return total
}

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

func sequentialIDs(prefix string) func() string {
	var counter atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, counter.Add(1))
	}
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	options = append([]ServiceOption{WithIDGenerator(sequentialIDs("id"))}, options...)
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustVoyageID(test *testing.T, raw string) VoyageID {
	test.Helper()
	id, err := NewVoyageID(raw)
	if err != nil {
		test.Fatalf("voyage id: %v", err)
	}
	return id
}

func mustUserID(test *testing.T, raw string) UserID {
	test.Helper()
	id, err := NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return id
}

func mustPartySize(test *testing.T, raw int) PartySize {
	test.Helper()
	size, err := NewPartySize(raw)
	if err != nil {
		test.Fatalf("party size: %v", err)
	}
	return size
}

func newTestVoyage(test *testing.T, raw string, totalCapacity int, reservedCount int) Voyage {
	test.Helper()
	return Voyage{
		ID:            mustVoyageID(test, raw),
		Title:         "Aegean Islands",
		Destination:   "Greece",
		Price:         decimal.RequireFromString("120.50"),
		DurationDays:  7,
		DepartureAt:   fixedNow.AddDate(0, 1, 0),
		ReturnAt:      fixedNow.AddDate(0, 1, 7),
		TotalCapacity: totalCapacity,
		ReservedCount: reservedCount,
		Active:        true,
		Status:        VoyageStatusActive,
		CreatedBy:     mustUserID(test, "manager-1"),
		CreatedAt:     fixedNow,
	}
}

func customerActor(test *testing.T, raw string) Actor {
	test.Helper()
	return Actor{ID: mustUserID(test, raw), Role: RoleUser}
}

func managerActor(test *testing.T) Actor {
	test.Helper()
	return Actor{ID: mustUserID(test, "manager-1"), Role: RoleManager}
}
