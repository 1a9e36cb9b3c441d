package booking

const (
	operationCreateReservation = "create_reservation"
	operationUpdateReservation = "update_reservation"
	operationCancelReservation = "cancel_reservation"
	operationCreateVoyage      = "create_voyage"
	operationUpdateVoyage      = "update_voyage"
	operationDeactivateVoyage  = "deactivate_voyage"
	operationReserveSeats      = "reserve_seats"
	operationReleaseSeats      = "release_seats"
	operationResizeCapacity    = "resize_capacity"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	fieldStatus        = "status"
	fieldPaymentStatus = "paymentStatus"

	// Cancellation re-reads after a lost conditional flip; a second loss means
	// another writer keeps moving the reservation.
	maxCancelAttempts = 3
)
