package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

// Field names match the query schema names so projections apply to them.

type voyageView struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Destination   string          `json:"destination"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	Price         decimal.Decimal `json:"price"`
	DurationDays  int             `json:"durationDays"`
	DepartureDate time.Time       `json:"departureDate"`
	ReturnDate    time.Time       `json:"returnDate"`
	TotalCapacity int             `json:"totalCapacity"`
	ReservedCount int             `json:"reservedCount"`
	Remaining     int             `json:"remaining"`
	Active        bool            `json:"active"`
	Status        string          `json:"status"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newVoyageView(voyage booking.Voyage) voyageView {
	return voyageView{
		ID:            voyage.ID.String(),
		Title:         voyage.Title,
		Description:   voyage.Description,
		Destination:   voyage.Destination,
		City:          voyage.City,
		Country:       voyage.Country,
		Price:         voyage.Price,
		DurationDays:  voyage.DurationDays,
		DepartureDate: voyage.DepartureAt,
		ReturnDate:    voyage.ReturnAt,
		TotalCapacity: voyage.TotalCapacity,
		ReservedCount: voyage.ReservedCount,
		Remaining:     voyage.Remaining(),
		Active:        voyage.Active,
		Status:        string(voyage.Status),
		CreatedBy:     voyage.CreatedBy.String(),
		CreatedAt:     voyage.CreatedAt,
		UpdatedAt:     voyage.UpdatedAt,
	}
}

type reservationView struct {
	ID              string          `json:"id"`
	Voyage          string          `json:"voyage"`
	User            string          `json:"user"`
	PartySize       int             `json:"partySize"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	SpecialRequests string          `json:"specialRequests"`
	Phone           string          `json:"phone"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"paymentStatus"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func newReservationView(reservation booking.Reservation) reservationView {
	return reservationView{
		ID:              reservation.ID.String(),
		Voyage:          reservation.VoyageID.String(),
		User:            reservation.UserID.String(),
		PartySize:       reservation.PartySize.Int(),
		TotalPrice:      reservation.TotalPrice,
		SpecialRequests: reservation.SpecialRequests,
		Phone:           reservation.Phone,
		Status:          string(reservation.Status),
		PaymentStatus:   string(reservation.PaymentStatus),
		Active:          reservation.Active,
		CreatedAt:       reservation.CreatedAt,
		UpdatedAt:       reservation.UpdatedAt,
	}
}

func newReservationViews(reservations []booking.Reservation) []reservationView {
	views := make([]reservationView, 0, len(reservations))
	for _, reservation := range reservations {
		views = append(views, newReservationView(reservation))
	}
	return views
}

type listResponse struct {
	Success          bool             `json:"success"`
	Result           int              `json:"result"`
	PaginationResult query.Pagination `json:"paginationResult"`
	Data             []map[string]any `json:"data"`
}

// projectPage renders views as documents restricted to the plan's projection.
func projectPage[T any](plan query.Plan, pagination query.Pagination, views []T) (listResponse, error) {
	documents := make([]map[string]any, 0, len(views))
	for _, view := range views {
		encoded, err := json.Marshal(view)
		if err != nil {
			return listResponse{}, err
		}
		var document map[string]any
		if err := json.Unmarshal(encoded, &document); err != nil {
			return listResponse{}, err
		}
		documents = append(documents, plan.Project(document))
	}
	return listResponse{
		Success:          true,
		Result:           len(documents),
		PaginationResult: pagination,
		Data:             documents,
	}, nil
}

type createVoyageRequest struct {
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	Destination   string          `json:"destination" binding:"required"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	Price         decimal.Decimal `json:"price"`
	DurationDays  int             `json:"durationDays"`
	DepartureDate time.Time       `json:"departureDate"`
	ReturnDate    time.Time       `json:"returnDate"`
	TotalCapacity int             `json:"totalCapacity"`
}

func (request createVoyageRequest) input() booking.VoyageInput {
	return booking.VoyageInput{
		Title:         request.Title,
		Description:   request.Description,
		Destination:   request.Destination,
		City:          request.City,
		Country:       request.Country,
		Price:         request.Price,
		DurationDays:  request.DurationDays,
		DepartureAt:   request.DepartureDate,
		ReturnAt:      request.ReturnDate,
		TotalCapacity: request.TotalCapacity,
	}
}

type updateVoyageRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Destination   *string          `json:"destination"`
	City          *string          `json:"city"`
	Country       *string          `json:"country"`
	Price         *decimal.Decimal `json:"price"`
	DurationDays  *int             `json:"durationDays"`
	DepartureDate *time.Time       `json:"departureDate"`
	ReturnDate    *time.Time       `json:"returnDate"`
	Status        *string          `json:"status"`
	TotalCapacity *int             `json:"totalCapacity"`
}

func (request updateVoyageRequest) patch() (booking.VoyagePatch, error) {
	patch := booking.VoyagePatch{
		Title:         request.Title,
		Description:   request.Description,
		Destination:   request.Destination,
		City:          request.City,
		Country:       request.Country,
		Price:         request.Price,
		DurationDays:  request.DurationDays,
		DepartureAt:   request.DepartureDate,
		ReturnAt:      request.ReturnDate,
		TotalCapacity: request.TotalCapacity,
	}
	if request.Status != nil {
		status, err := booking.ParseVoyageStatus(*request.Status)
		if err != nil {
			return booking.VoyagePatch{}, err
		}
		patch.Status = &status
	}
	return patch, nil
}

type createReservationRequest struct {
	Voyage          string `json:"voyage" binding:"required"`
	PartySize       int    `json:"partySize"`
	SpecialRequests string `json:"specialRequests"`
	Phone           string `json:"phone"`
}

func (request createReservationRequest) input() (booking.ReservationInput, error) {
	voyageID, err := booking.NewVoyageID(request.Voyage)
	if err != nil {
		return booking.ReservationInput{}, err
	}
	partySize, err := booking.NewPartySize(request.PartySize)
	if err != nil {
		return booking.ReservationInput{}, err
	}
	return booking.ReservationInput{
		VoyageID:        voyageID,
		PartySize:       partySize,
		SpecialRequests: request.SpecialRequests,
		Phone:           request.Phone,
	}, nil
}
