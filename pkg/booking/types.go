package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

// VoyageID identifies a voyage listing.
type VoyageID struct {
	value string
}

// ReservationID identifies a reservation.
type ReservationID struct {
	value string
}

// UserID identifies an account holder.
type UserID struct {
	value string
}

// NewVoyageID validates and normalizes a voyage id.
func NewVoyageID(raw string) (VoyageID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VoyageID{}, fmt.Errorf("%w: empty value", ErrInvalidVoyageID)
	}
	return VoyageID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id VoyageID) String() string {
	return id.value
}

// NewReservationID validates and normalizes a reservation id.
func NewReservationID(raw string) (ReservationID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ReservationID{}, fmt.Errorf("%w: empty value", ErrInvalidReservationID)
	}
	return ReservationID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ReservationID) String() string {
	return id.value
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// Role grants access to operations.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleManager    Role = "manager"
)

// ParseRole validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin, RoleManager:
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// Actor is the verified caller of an operation.
type Actor struct {
	ID   UserID
	Role Role
}

// CanManageReservations reports whether the actor may read and modify any reservation.
func (actor Actor) CanManageReservations() bool {
	return actor.Role == RoleAdmin || actor.Role == RoleManager
}

// CanManageCatalog reports whether the actor may create and retire voyages.
func (actor Actor) CanManageCatalog() bool {
	return actor.Role == RoleAdmin || actor.Role == RoleSuperAdmin || actor.Role == RoleManager
}

// CanViewStatistics reports whether the actor may read the summary counters.
func (actor Actor) CanViewStatistics() bool {
	return actor.CanManageCatalog()
}

func (actor Actor) canAccess(reservation Reservation) bool {
	return actor.CanManageReservations() || actor.ID == reservation.UserID
}

// PartySize is the number of seats held by one reservation.
type PartySize int

// NewPartySize validates a seat count.
func NewPartySize(raw int) (PartySize, error) {
	if raw < 1 {
		return 0, fmt.Errorf("%w: must be at least one", ErrInvalidPartySize)
	}
	return PartySize(raw), nil
}

// Int returns the seat count.
func (size PartySize) Int() int {
	return int(size)
}

// VoyageStatus describes where a voyage is in its schedule.
type VoyageStatus string

const (
	VoyageStatusActive    VoyageStatus = "active"
	VoyageStatusCompleted VoyageStatus = "completed"
	VoyageStatusCancelled VoyageStatus = "cancelled"
)

// ParseVoyageStatus validates a voyage status.
func ParseVoyageStatus(raw string) (VoyageStatus, error) {
	status := VoyageStatus(strings.TrimSpace(raw))
	switch status {
	case VoyageStatusActive, VoyageStatusCompleted, VoyageStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVoyageStatus, raw)
}

// ReservationStatus defines the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCancelled},
}

// ParseReservationStatus validates a reservation status.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	status := ReservationStatus(strings.TrimSpace(raw))
	switch status {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReservationStatus, raw)
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Cancelled is terminal.
func (status ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus is independent from ReservationStatus.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus]PaymentStatus{
	PaymentStatusPending: PaymentStatusPaid,
	PaymentStatusPaid:    PaymentStatusRefunded,
}

// ParsePaymentStatus validates a payment status.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.TrimSpace(raw))
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, raw)
}

// CanTransitionTo reports whether payment may move forward to next.
func (status PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentTransitions[status] == next
}

// Voyage is a bookable trip listing.
type Voyage struct {
	ID            VoyageID
	Title         string
	Description   string
	Destination   string
	City          string
	Country       string
	Price         decimal.Decimal
	DurationDays  int
	DepartureAt   time.Time
	ReturnAt      time.Time
	TotalCapacity int
	ReservedCount int
	Active        bool
	Status        VoyageStatus
	CreatedBy     UserID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining is the number of seats still available.
func (voyage Voyage) Remaining() int {
	remaining := voyage.TotalCapacity - voyage.ReservedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (voyage Voyage) validate() error {
	switch {
	case strings.TrimSpace(voyage.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidVoyage)
	case strings.TrimSpace(voyage.Destination) == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidVoyage)
	case voyage.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidVoyage)
	case voyage.TotalCapacity < 1:
		return fmt.Errorf("%w: total capacity must be at least one", ErrInvalidCapacity)
	case voyage.DurationDays < 1:
		return fmt.Errorf("%w: duration must be at least one day", ErrInvalidVoyage)
	case voyage.DepartureAt.IsZero() || voyage.ReturnAt.IsZero():
		return fmt.Errorf("%w: departure and return dates are required", ErrInvalidVoyage)
	case !voyage.ReturnAt.After(voyage.DepartureAt):
		return fmt.Errorf("%w: return date must be after departure date", ErrInvalidVoyage)
	}
	return nil
}

// VoyageInput carries the fields of a new listing.
type VoyageInput struct {
	Title         string
	Description   string
	Destination   string
	City          string
	Country       string
	Price         decimal.Decimal
	DurationDays  int
	DepartureAt   time.Time
	ReturnAt      time.Time
	TotalCapacity int
}

// VoyagePatch lists the optional changes to a voyage. Nil fields are left alone.
type VoyagePatch struct {
	Title         *string
	Description   *string
	Destination   *string
	City          *string
	Country       *string
	Price         *decimal.Decimal
	DurationDays  *int
	DepartureAt   *time.Time
	ReturnAt      *time.Time
	Status        *VoyageStatus
	TotalCapacity *int
}

func (patch VoyagePatch) apply(voyage Voyage) Voyage {
	if patch.Title != nil {
		voyage.Title = *patch.Title
	}
	if patch.Description != nil {
		voyage.Description = *patch.Description
	}
	if patch.Destination != nil {
		voyage.Destination = *patch.Destination
	}
	if patch.City != nil {
		voyage.City = *patch.City
	}
	if patch.Country != nil {
		voyage.Country = *patch.Country
	}
	if patch.Price != nil {
		voyage.Price = *patch.Price
	}
	if patch.DurationDays != nil {
		voyage.DurationDays = *patch.DurationDays
	}
	if patch.DepartureAt != nil {
		voyage.DepartureAt = *patch.DepartureAt
	}
	if patch.ReturnAt != nil {
		voyage.ReturnAt = *patch.ReturnAt
	}
	if patch.Status != nil {
		voyage.Status = *patch.Status
	}
	if patch.TotalCapacity != nil {
		voyage.TotalCapacity = *patch.TotalCapacity
	}
	return voyage
}

// Reservation is a booking of seats on a voyage.
type Reservation struct {
	ID              ReservationID
	VoyageID        VoyageID
	UserID          UserID
	PartySize       PartySize
	TotalPrice      decimal.Decimal
	SpecialRequests string
	Phone           string
	Status          ReservationStatus
	PaymentStatus   PaymentStatus
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReservationInput carries the caller-supplied fields of a new reservation.
type ReservationInput struct {
	VoyageID        VoyageID
	PartySize       PartySize
	SpecialRequests string
	Phone           string
}

// ReservationUpdate holds the allow-listed mutable reservation fields.
type ReservationUpdate struct {
	Status        *ReservationStatus
	PaymentStatus *PaymentStatus
}

// IsEmpty reports whether the update changes nothing.
func (update ReservationUpdate) IsEmpty() bool {
	return update.Status == nil && update.PaymentStatus == nil
}

// ParseReservationUpdate extracts the mutable fields from a submitted document.
// Fields outside the allow-list are dropped.
func ParseReservationUpdate(fields map[string]any) (ReservationUpdate, error) {
	var update ReservationUpdate
	if raw, ok := fields[fieldStatus]; ok {
		text, isString := raw.(string)
		if !isString {
			return ReservationUpdate{}, fmt.Errorf("%w: status must be a string", ErrInvalidReservationStatus)
		}
		status, err := ParseReservationStatus(text)
		if err != nil {
			return ReservationUpdate{}, err
		}
		update.Status = &status
	}
	if raw, ok := fields[fieldPaymentStatus]; ok {
		text, isString := raw.(string)
		if !isString {
			return ReservationUpdate{}, fmt.Errorf("%w: paymentStatus must be a string", ErrInvalidPaymentStatus)
		}
		status, err := ParsePaymentStatus(text)
		if err != nil {
			return ReservationUpdate{}, err
		}
		update.PaymentStatus = &status
	}
	return update, nil
}

// User is an account consulted for authorization and statistics.
type User struct {
	ID     UserID
	Name   string
	Email  string
	Role   Role
	Active bool
}

// Page is one window of a shaped list query.
type Page[T any] struct {
	Items      []T
	Count      int64
	Pagination query.Pagination
	Plan       query.Plan
}
