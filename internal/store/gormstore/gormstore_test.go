package gormstore

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(test *testing.T) (*Store, *gorm.DB) {
	test.Helper()
	path := filepath.Join(test.TempDir(), "voyages.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	test.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		test.Fatalf("auto migrate: %v", err)
	}
	return New(db), db
}

func mustVoyageID(test *testing.T) booking.VoyageID {
	test.Helper()
	id, err := booking.NewVoyageID(uuid.NewString())
	if err != nil {
		test.Fatalf("voyage id: %v", err)
	}
	return id
}

func mustReservationID(test *testing.T) booking.ReservationID {
	test.Helper()
	id, err := booking.NewReservationID(uuid.NewString())
	if err != nil {
		test.Fatalf("reservation id: %v", err)
	}
	return id
}

func mustUserID(test *testing.T, raw string) booking.UserID {
	test.Helper()
	id, err := booking.NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return id
}

type voyageFixture struct {
	title         string
	description   string
	city          string
	price         string
	totalCapacity int
	reservedCount int
	active        bool
	createdAt     time.Time
}

func mustCreateVoyage(test *testing.T, store *Store, fixture voyageFixture) booking.Voyage {
	test.Helper()
	if fixture.title == "" {
		fixture.title = "Fjord Explorer"
	}
	if fixture.price == "" {
		fixture.price = "100"
	}
	if fixture.totalCapacity == 0 {
		fixture.totalCapacity = 10
	}
	if fixture.createdAt.IsZero() {
		fixture.createdAt = baseTime
	}
	voyage, err := store.CreateVoyage(context.Background(), booking.Voyage{
		ID:            mustVoyageID(test),
		Title:         fixture.title,
		Description:   fixture.description,
		Destination:   "Norway",
		City:          fixture.city,
		Country:       "NO",
		Price:         decimal.RequireFromString(fixture.price),
		DurationDays:  6,
		DepartureAt:   baseTime.AddDate(0, 1, 0),
		ReturnAt:      baseTime.AddDate(0, 1, 6),
		TotalCapacity: fixture.totalCapacity,
		ReservedCount: fixture.reservedCount,
		Active:        fixture.active,
		Status:        booking.VoyageStatusActive,
		CreatedBy:     mustUserID(test, "manager-1"),
		CreatedAt:     fixture.createdAt,
		UpdatedAt:     fixture.createdAt,
	})
	if err != nil {
		test.Fatalf("create voyage: %v", err)
	}
	return voyage
}

func mustCreateReservation(test *testing.T, store *Store, voyage booking.Voyage, userID string, seats int, requests string, createdAt time.Time) booking.Reservation {
	test.Helper()
	reservation, err := store.CreateReservation(context.Background(), booking.Reservation{
		ID:              mustReservationID(test),
		VoyageID:        voyage.ID,
		UserID:          mustUserID(test, userID),
		PartySize:       booking.PartySize(seats),
		TotalPrice:      voyage.Price.Mul(decimal.NewFromInt(int64(seats))),
		SpecialRequests: requests,
		Status:          booking.ReservationStatusPending,
		PaymentStatus:   booking.PaymentStatusPending,
		Active:          true,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	return reservation
}

func TestIncrementReservedSeatsIsConditional(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 10, reservedCount: 8, active: true})

	err := store.IncrementReservedSeats(context.Background(), voyage.ID, 3)
	if !errors.Is(err, booking.ErrCapacityExceeded) {
		test.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if err := store.IncrementReservedSeats(context.Background(), voyage.ID, 2); err != nil {
		test.Fatalf("increment: %v", err)
	}
	var row Voyage
	if err := db.Where("id = ?", voyage.ID.String()).Take(&row).Error; err != nil {
		test.Fatalf("load voyage: %v", err)
	}
	if row.ReservedCount != 10 || row.Remaining != 0 || row.Revision != 1 {
		test.Fatalf("expected reserved=10 remaining=0 revision=1, got %+v", row)
	}
}

func TestIncrementReservedSeatsDistinguishesFailures(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	inactive := mustCreateVoyage(test, store, voyageFixture{active: false})

	if err := store.IncrementReservedSeats(context.Background(), inactive.ID, 1); !errors.Is(err, booking.ErrVoyageInactive) {
		test.Fatalf("expected ErrVoyageInactive, got %v", err)
	}
	if err := store.IncrementReservedSeats(context.Background(), mustVoyageID(test), 1); !errors.Is(err, booking.ErrVoyageNotFound) {
		test.Fatalf("expected ErrVoyageNotFound, got %v", err)
	}
}

func TestConcurrentIncrementsNeverOverbook(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 7, active: true})

	var waitGroup sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for index := 0; index < 12; index++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			err := store.IncrementReservedSeats(context.Background(), voyage.ID, 2)
			if err != nil && !errors.Is(err, booking.ErrCapacityExceeded) {
				test.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	waitGroup.Wait()

	stored, err := store.GetVoyage(context.Background(), voyage.ID)
	if err != nil {
		test.Fatalf("get voyage: %v", err)
	}
	if admitted != 3 || stored.ReservedCount != 6 || stored.Remaining() != 1 {
		test.Fatalf("expected 3 admitted and 6 reserved, got %d admitted and %d reserved", admitted, stored.ReservedCount)
	}
}

func TestDecrementReservedSeatsFloorsAtZero(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 10, reservedCount: 2, active: true})

	if err := store.DecrementReservedSeats(context.Background(), voyage.ID, 5); err != nil {
		test.Fatalf("decrement: %v", err)
	}
	var row Voyage
	if err := db.Where("id = ?", voyage.ID.String()).Take(&row).Error; err != nil {
		test.Fatalf("load voyage: %v", err)
	}
	if row.ReservedCount != 0 || row.Remaining != 10 {
		test.Fatalf("expected reserved=0 remaining=10, got reserved=%d remaining=%d", row.ReservedCount, row.Remaining)
	}
	if err := store.DecrementReservedSeats(context.Background(), mustVoyageID(test), 1); !errors.Is(err, booking.ErrVoyageNotFound) {
		test.Fatalf("expected ErrVoyageNotFound, got %v", err)
	}
}

func TestResizeCapacity(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 10, reservedCount: 6, active: true})

	if err := store.ResizeCapacity(context.Background(), voyage.ID, 5); !errors.Is(err, booking.ErrCapacityExceeded) {
		test.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if err := store.ResizeCapacity(context.Background(), voyage.ID, 6); err != nil {
		test.Fatalf("resize: %v", err)
	}
	stored, err := store.GetVoyage(context.Background(), voyage.ID)
	if err != nil {
		test.Fatalf("get voyage: %v", err)
	}
	if stored.TotalCapacity != 6 || stored.Remaining() != 0 {
		test.Fatalf("unexpected voyage %+v", stored)
	}
	if err := store.ResizeCapacity(context.Background(), mustVoyageID(test), 6); !errors.Is(err, booking.ErrVoyageNotFound) {
		test.Fatalf("expected ErrVoyageNotFound, got %v", err)
	}
}

func TestReservedCountCheckConstraint(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 4, active: true})

	err := db.Exec("UPDATE voyages SET reserved_count = total_capacity + 1 WHERE id = ?", voyage.ID.String()).Error
	if err == nil {
		test.Fatalf("expected check constraint violation")
	}
	if !isConstraintViolation(err) {
		test.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestGetVoyageNotFound(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	_, err := store.GetVoyage(context.Background(), mustVoyageID(test))
	if !errors.Is(err, booking.ErrVoyageNotFound) {
		test.Fatalf("expected ErrVoyageNotFound, got %v", err)
	}
	var operationError booking.OperationError
	if !errors.As(err, &operationError) || operationError.Operation() != errorOperationStore {
		test.Fatalf("expected store OperationError, got %#v", err)
	}
}

func TestUpdateVoyageLeavesCountersAlone(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{totalCapacity: 10, reservedCount: 3, active: true})

	voyage.Title = "Fjord Explorer Deluxe"
	voyage.Price = decimal.RequireFromString("150.25")
	voyage.TotalCapacity = 99
	voyage.ReservedCount = 0
	updated, err := store.UpdateVoyage(context.Background(), voyage)
	if err != nil {
		test.Fatalf("update voyage: %v", err)
	}
	if updated.Title != "Fjord Explorer Deluxe" || !updated.Price.Equal(decimal.RequireFromString("150.25")) {
		test.Fatalf("descriptive fields not written: %+v", updated)
	}
	if updated.TotalCapacity != 10 || updated.ReservedCount != 3 {
		test.Fatalf("counters changed: total=%d reserved=%d", updated.TotalCapacity, updated.ReservedCount)
	}

	deactivated, err := store.SetVoyageActive(context.Background(), voyage.ID, false)
	if err != nil {
		test.Fatalf("deactivate: %v", err)
	}
	if deactivated.Active {
		test.Fatalf("expected inactive voyage")
	}
}

func TestTransitionReservationStatusIsCompareAndSet(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{active: true})
	reservation := mustCreateReservation(test, store, voyage, "customer-1", 2, "", baseTime)

	confirmed, err := store.TransitionReservationStatus(context.Background(), reservation.ID, booking.ReservationStatusPending, booking.ReservationStatusConfirmed)
	if err != nil {
		test.Fatalf("transition: %v", err)
	}
	if confirmed.Status != booking.ReservationStatusConfirmed {
		test.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	_, err = store.TransitionReservationStatus(context.Background(), reservation.ID, booking.ReservationStatusPending, booking.ReservationStatusCancelled)
	if !errors.Is(err, booking.ErrReservationStatusConflict) {
		test.Fatalf("expected ErrReservationStatusConflict, got %v", err)
	}
	_, err = store.TransitionReservationStatus(context.Background(), mustReservationID(test), booking.ReservationStatusPending, booking.ReservationStatusCancelled)
	if !errors.Is(err, booking.ErrReservationNotFound) {
		test.Fatalf("expected ErrReservationNotFound, got %v", err)
	}

	paid, err := store.UpdatePaymentStatus(context.Background(), reservation.ID, booking.PaymentStatusPending, booking.PaymentStatusPaid)
	if err != nil {
		test.Fatalf("update payment: %v", err)
	}
	if paid.PaymentStatus != booking.PaymentStatusPaid || !paid.TotalPrice.Equal(decimal.NewFromInt(200)) {
		test.Fatalf("unexpected reservation %+v", paid)
	}
}

func TestListReservationsShapesQuery(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	arctic := mustCreateVoyage(test, store, voyageFixture{title: "Arctic Lights", description: "aurora nights", active: true, totalCapacity: 50})
	desert := mustCreateVoyage(test, store, voyageFixture{title: "Sahara Crossing", description: "dunes", active: true, totalCapacity: 50})
	for index := 0; index < 4; index++ {
		mustCreateReservation(test, store, arctic, "customer-a", index+1, "", baseTime.Add(time.Duration(index)*time.Hour))
	}
	mustCreateReservation(test, store, desert, "customer-b", 1, "vegetarian meals", baseTime.Add(10*time.Hour))
	mustCreateReservation(test, store, desert, "customer-b", 5, "", baseTime.Add(11*time.Hour))

	plan := query.Shape(booking.ReservationSchema(), url.Values{"keyword": {"AURORA"}, "partySize[gte]": {"2"}, "limit": {"2"}})
	reservations, count, err := store.ListReservations(context.Background(), plan)
	if err != nil {
		test.Fatalf("list reservations: %v", err)
	}
	if count != 3 {
		test.Fatalf("expected 3 matches by related voyage text, got %d", count)
	}
	if len(reservations) != 2 || reservations[0].PartySize != 4 || reservations[1].PartySize != 3 {
		test.Fatalf("expected newest two arctic reservations first, got %+v", reservations)
	}

	ownText := query.Shape(booking.ReservationSchema(), url.Values{"keyword": {"vegetarian"}})
	matches, count, err := store.ListReservations(context.Background(), ownText)
	if err != nil {
		test.Fatalf("list reservations: %v", err)
	}
	if count != 1 || len(matches) != 1 || matches[0].VoyageID != desert.ID {
		test.Fatalf("expected the vegetarian request, got %d %+v", count, matches)
	}

	sorted := query.Shape(booking.ReservationSchema(), url.Values{"sort": {"partySize"}, "page": {"2"}, "limit": {"4"}})
	page, count, err := store.ListReservations(context.Background(), sorted)
	if err != nil {
		test.Fatalf("list reservations: %v", err)
	}
	if count != 6 || len(page) != 2 || page[0].PartySize != 4 || page[1].PartySize != 5 {
		test.Fatalf("unexpected second page %d %+v", count, page)
	}
}

func TestListReservationsKeywordEscapesWildcards(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{active: true})
	mustCreateReservation(test, store, voyage, "customer-c", 1, "100% vegan", baseTime)
	mustCreateReservation(test, store, voyage, "customer-c", 1, "100 vegan", baseTime.Add(time.Minute))

	plan := query.Shape(booking.ReservationSchema(), url.Values{"keyword": {"100%"}})
	_, count, err := store.ListReservations(context.Background(), plan)
	if err != nil {
		test.Fatalf("list reservations: %v", err)
	}
	if count != 1 {
		test.Fatalf("expected literal percent match only, got %d", count)
	}
}

func TestListVoyagesProjectionAndFilters(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	mustCreateVoyage(test, store, voyageFixture{title: "Budget Baltic", price: "300", city: "Riga", active: true, createdAt: baseTime})
	mustCreateVoyage(test, store, voyageFixture{title: "Premium Baltic", price: "1800", city: "Tallinn", active: true, createdAt: baseTime.Add(time.Hour)})
	mustCreateVoyage(test, store, voyageFixture{title: "Retired Baltic", price: "500", city: "Riga", active: false, createdAt: baseTime.Add(2 * time.Hour)})

	plan := query.Shape(booking.VoyageSchema(), url.Values{"price[lt]": {"1000"}, "fields": {"title,price"}}).Where(query.Equal("active", true))
	voyages, count, err := store.ListVoyages(context.Background(), plan)
	if err != nil {
		test.Fatalf("list voyages: %v", err)
	}
	if count != 1 || len(voyages) != 1 || voyages[0].Title != "Budget Baltic" {
		test.Fatalf("unexpected voyages %d %+v", count, voyages)
	}
	if voyages[0].City != "" || voyages[0].TotalCapacity != 0 {
		test.Fatalf("expected projected columns only, got %+v", voyages[0])
	}

	cities := query.Shape(booking.VoyageSchema(), url.Values{"city[in]": {"Riga,Tallinn"}, "keyword": {"baltic"}})
	_, count, err = store.ListVoyages(context.Background(), cities)
	if err != nil {
		test.Fatalf("list voyages: %v", err)
	}
	if count != 3 {
		test.Fatalf("expected all three baltic voyages without the active constraint, got %d", count)
	}
}

func TestListVoyagesProjectedRemainingSeats(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	mustCreateVoyage(test, store, voyageFixture{title: "Lofoten Light", totalCapacity: 10, reservedCount: 3, active: true})

	for _, fields := range []string{"remaining", "title,remaining"} {
		plan := query.Shape(booking.VoyageSchema(), url.Values{"fields": {fields}})
		voyages, _, err := store.ListVoyages(context.Background(), plan)
		if err != nil {
			test.Fatalf("fields=%s: list voyages: %v", fields, err)
		}
		if len(voyages) != 1 || voyages[0].Remaining() != 7 {
			test.Fatalf("fields=%s: expected 7 remaining seats, got %+v", fields, voyages)
		}
	}
}

func TestListReservationsByUserNewestFirst(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{active: true})
	older := mustCreateReservation(test, store, voyage, "customer-d", 1, "", baseTime)
	newer := mustCreateReservation(test, store, voyage, "customer-d", 1, "", baseTime.Add(time.Hour))
	hidden := mustCreateReservation(test, store, voyage, "customer-d", 1, "", baseTime.Add(2*time.Hour))
	mustCreateReservation(test, store, voyage, "customer-e", 1, "", baseTime)
	if err := db.Model(&Reservation{}).Where("id = ?", hidden.ID.String()).Update("active", false).Error; err != nil {
		test.Fatalf("soft delete: %v", err)
	}

	reservations, err := store.ListReservationsByUser(context.Background(), mustUserID(test, "customer-d"))
	if err != nil {
		test.Fatalf("list by user: %v", err)
	}
	if len(reservations) != 2 || reservations[0].ID != newer.ID || reservations[1].ID != older.ID {
		test.Fatalf("unexpected reservations %+v", reservations)
	}
}

func TestStatisticsQueries(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	voyage := mustCreateVoyage(test, store, voyageFixture{price: "49.99", active: true})
	mustCreateVoyage(test, store, voyageFixture{active: false})
	first := mustCreateReservation(test, store, voyage, "customer-f", 2, "", baseTime)
	second := mustCreateReservation(test, store, voyage, "customer-g", 1, "", baseTime)
	mustCreateReservation(test, store, voyage, "customer-h", 1, "", baseTime)
	for _, reservation := range []booking.Reservation{first, second} {
		if _, err := store.UpdatePaymentStatus(context.Background(), reservation.ID, booking.PaymentStatusPending, booking.PaymentStatusPaid); err != nil {
			test.Fatalf("update payment: %v", err)
		}
	}
	if _, err := store.TransitionReservationStatus(context.Background(), first.ID, booking.ReservationStatusPending, booking.ReservationStatusConfirmed); err != nil {
		test.Fatalf("confirm: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), booking.User{Name: "Ada", Email: "Ada@Example.com", Role: booking.RoleAdmin, Active: true}); err != nil {
		test.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), booking.User{Name: "Bo", Email: "bo@example.com", Role: booking.RoleUser, Active: false}); err != nil {
		test.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), booking.User{Name: "Ada Again", Email: "ada@example.com", Role: booking.RoleUser, Active: true}); err == nil {
		test.Fatalf("expected duplicate email rejection")
	}

	aggregator, err := booking.NewStatisticsAggregator(store)
	if err != nil {
		test.Fatalf("new aggregator: %v", err)
	}
	summary, err := aggregator.ComputeSummary(context.Background())
	if err != nil {
		test.Fatalf("compute summary: %v", err)
	}
	if summary.VoyageCount != 2 || summary.ReservationCount != 3 || summary.UserCount != 2 || summary.ActiveUserCount != 1 {
		test.Fatalf("unexpected counts %+v", summary)
	}
	if summary.ConfirmedReservationCount != 1 || summary.PendingReservationCount != 2 {
		test.Fatalf("unexpected status counts %+v", summary)
	}
	if !summary.TotalRevenue.Equal(decimal.RequireFromString("149.97")) {
		test.Fatalf("expected revenue 149.97, got %s", summary.TotalRevenue)
	}
}

func TestBookingServiceOverSQLite(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	service, err := booking.NewService(store, func() time.Time { return baseTime })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	manager := booking.Actor{ID: mustUserID(test, "manager-1"), Role: booking.RoleManager}
	customer := booking.Actor{ID: mustUserID(test, "customer-z"), Role: booking.RoleUser}

	voyage, err := service.CreateVoyage(context.Background(), manager, booking.VoyageInput{
		Title:         "Danube Delta",
		Destination:   "Romania",
		Price:         decimal.RequireFromString("210"),
		DurationDays:  4,
		DepartureAt:   baseTime.AddDate(0, 0, 10),
		ReturnAt:      baseTime.AddDate(0, 0, 14),
		TotalCapacity: 10,
	})
	if err != nil {
		test.Fatalf("create voyage: %v", err)
	}
	reservation, err := service.CreateReservation(context.Background(), customer, booking.ReservationInput{VoyageID: voyage.ID, PartySize: 4})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if _, err := service.CreateReservation(context.Background(), customer, booking.ReservationInput{VoyageID: voyage.ID, PartySize: 7}); !errors.Is(err, booking.ErrCapacityExceeded) {
		test.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if _, err := service.CancelReservation(context.Background(), customer, reservation.ID); err != nil {
		test.Fatalf("cancel reservation: %v", err)
	}
	if _, err := service.CancelReservation(context.Background(), customer, reservation.ID); !errors.Is(err, booking.ErrAlreadyCancelled) {
		test.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
	stored, err := service.GetVoyage(context.Background(), voyage.ID)
	if err != nil {
		test.Fatalf("get voyage: %v", err)
	}
	if stored.ReservedCount != 0 || stored.Remaining() != 10 {
		test.Fatalf("expected all seats released, got reserved=%d", stored.ReservedCount)
	}
}
