package gormstore

import (
	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

func voyageModel(voyage booking.Voyage) Voyage {
	return Voyage{
		ID:            voyage.ID.String(),
		Title:         voyage.Title,
		Description:   voyage.Description,
		Destination:   voyage.Destination,
		City:          voyage.City,
		Country:       voyage.Country,
		Price:         voyage.Price,
		DurationDays:  voyage.DurationDays,
		DepartureAt:   voyage.DepartureAt.UTC(),
		ReturnAt:      voyage.ReturnAt.UTC(),
		TotalCapacity: voyage.TotalCapacity,
		ReservedCount: voyage.ReservedCount,
		Remaining:     voyage.Remaining(),
		Active:        voyage.Active,
		Status:        string(voyage.Status),
		CreatedBy:     voyage.CreatedBy.String(),
		CreatedAt:     voyage.CreatedAt.UTC(),
		UpdatedAt:     voyage.UpdatedAt.UTC(),
	}
}

// mapVoyage converts a row, which may be partially projected, into a domain record.
func mapVoyage(row Voyage) (booking.Voyage, error) {
	voyageID, err := booking.NewVoyageID(row.ID)
	if err != nil {
		return booking.Voyage{}, err
	}
	createdBy, err := optionalUserID(row.CreatedBy)
	if err != nil {
		return booking.Voyage{}, err
	}
	return booking.Voyage{
		ID:            voyageID,
		Title:         row.Title,
		Description:   row.Description,
		Destination:   row.Destination,
		City:          row.City,
		Country:       row.Country,
		Price:         row.Price,
		DurationDays:  row.DurationDays,
		DepartureAt:   row.DepartureAt.UTC(),
		ReturnAt:      row.ReturnAt.UTC(),
		TotalCapacity: row.TotalCapacity,
		ReservedCount: row.ReservedCount,
		Active:        row.Active,
		Status:        booking.VoyageStatus(row.Status),
		CreatedBy:     createdBy,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}

func reservationModel(reservation booking.Reservation) Reservation {
	return Reservation{
		ID:              reservation.ID.String(),
		VoyageID:        reservation.VoyageID.String(),
		UserID:          reservation.UserID.String(),
		PartySize:       reservation.PartySize.Int(),
		TotalPrice:      reservation.TotalPrice,
		SpecialRequests: reservation.SpecialRequests,
		Phone:           reservation.Phone,
		Status:          string(reservation.Status),
		PaymentStatus:   string(reservation.PaymentStatus),
		Active:          reservation.Active,
		CreatedAt:       reservation.CreatedAt.UTC(),
		UpdatedAt:       reservation.UpdatedAt.UTC(),
	}
}

func mapReservation(row Reservation) (booking.Reservation, error) {
	reservationID, err := booking.NewReservationID(row.ID)
	if err != nil {
		return booking.Reservation{}, err
	}
	var voyageID booking.VoyageID
	if row.VoyageID != "" {
		if voyageID, err = booking.NewVoyageID(row.VoyageID); err != nil {
			return booking.Reservation{}, err
		}
	}
	userID, err := optionalUserID(row.UserID)
	if err != nil {
		return booking.Reservation{}, err
	}
	return booking.Reservation{
		ID:              reservationID,
		VoyageID:        voyageID,
		UserID:          userID,
		PartySize:       booking.PartySize(row.PartySize),
		TotalPrice:      row.TotalPrice,
		SpecialRequests: row.SpecialRequests,
		Phone:           row.Phone,
		Status:          booking.ReservationStatus(row.Status),
		PaymentStatus:   booking.PaymentStatus(row.PaymentStatus),
		Active:          row.Active,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}, nil
}

func mapReservations(rows []Reservation) ([]booking.Reservation, error) {
	reservations := make([]booking.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := mapReservation(row)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func mapUser(row User) (booking.User, error) {
	userID, err := booking.NewUserID(row.ID)
	if err != nil {
		return booking.User{}, err
	}
	role, err := booking.ParseRole(row.Role)
	if err != nil {
		return booking.User{}, err
	}
	return booking.User{
		ID:     userID,
		Name:   row.Name,
		Email:  row.Email,
		Role:   role,
		Active: row.Active,
	}, nil
}

// optionalUserID tolerates columns left out of a projection.
func optionalUserID(raw string) (booking.UserID, error) {
	if raw == "" {
		return booking.UserID{}, nil
	}
	return booking.NewUserID(raw)
}
