package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const internalErrorMessage = "internal server error"

// publicErrors are the failures whose message is safe to return to callers.
var publicErrors = []error{
	booking.ErrVoyageNotFound,
	booking.ErrReservationNotFound,
	booking.ErrForbidden,
	booking.ErrVoyageInactive,
	booking.ErrCapacityExceeded,
	booking.ErrAlreadyCancelled,
	booking.ErrReservationStatusConflict,
	booking.ErrInvalidStatusTransition,
	booking.ErrInvalidPaymentTransition,
	booking.ErrInvalidVoyageID,
	booking.ErrInvalidReservationID,
	booking.ErrInvalidPartySize,
	booking.ErrInvalidReservationStatus,
	booking.ErrInvalidPaymentStatus,
	booking.ErrInvalidVoyageStatus,
	booking.ErrInvalidVoyage,
	booking.ErrInvalidCapacity,
}

func statusForKind(kind booking.ErrorKind) int {
	switch kind {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindValidationFailed, booking.KindVoyageInactive, booking.KindCapacityExceeded, booking.KindAlreadyCancelled:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	for _, candidate := range publicErrors {
		if errors.Is(err, candidate) {
			return candidate.Error()
		}
	}
	return internalErrorMessage
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	kind := booking.KindOf(err)
	if kind == booking.KindInternal {
		handler.logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, errorResponse(string(kind), internalErrorMessage))
		return
	}
	ctx.JSON(statusForKind(kind), errorResponse(string(kind), publicMessage(err)))
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
