package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

type httpHandler struct {
	service    BookingService
	statistics StatisticsProvider
	logger     *zap.Logger
}

func (handler *httpHandler) handleListVoyages(ctx *gin.Context) {
	page, err := handler.service.ListVoyages(ctx.Request.Context(), ctx.Request.URL.Query())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	views := make([]voyageView, 0, len(page.Items))
	for _, voyage := range page.Items {
		views = append(views, newVoyageView(voyage))
	}
	respondPage(handler, ctx, page.Plan, page.Pagination, views)
}

func (handler *httpHandler) handleGetVoyage(ctx *gin.Context) {
	voyageID, err := booking.NewVoyageID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	voyage, err := handler.service.GetVoyage(ctx.Request.Context(), voyageID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newVoyageView(voyage)})
}

func (handler *httpHandler) handleCreateVoyage(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	var request createVoyageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected voyage JSON body"))
		return
	}
	voyage, err := handler.service.CreateVoyage(ctx.Request.Context(), actor, request.input())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": newVoyageView(voyage)})
}

func (handler *httpHandler) handleUpdateVoyage(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	voyageID, err := booking.NewVoyageID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request updateVoyageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected voyage JSON body"))
		return
	}
	patch, err := request.patch()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	voyage, err := handler.service.UpdateVoyage(ctx.Request.Context(), actor, voyageID, patch)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newVoyageView(voyage)})
}

func (handler *httpHandler) handleDeactivateVoyage(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	voyageID, err := booking.NewVoyageID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	voyage, err := handler.service.DeactivateVoyage(ctx.Request.Context(), actor, voyageID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newVoyageView(voyage)})
}

func (handler *httpHandler) handleMyReservations(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	reservations, err := handler.service.ListMyReservations(ctx.Request.Context(), actor)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	views := newReservationViews(reservations)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "result": len(views), "data": views})
}

func (handler *httpHandler) handleListReservations(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	page, err := handler.service.ListReservations(ctx.Request.Context(), actor, ctx.Request.URL.Query())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	respondPage(handler, ctx, page.Plan, page.Pagination, newReservationViews(page.Items))
}

func (handler *httpHandler) handleCreateReservation(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	var request createReservationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected reservation JSON body"))
		return
	}
	input, err := request.input()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.service.CreateReservation(ctx.Request.Context(), actor, input)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": newReservationView(reservation)})
}

func (handler *httpHandler) handleGetReservation(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	reservationID, err := booking.NewReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.service.GetReservation(ctx.Request.Context(), actor, reservationID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newReservationView(reservation)})
}

func (handler *httpHandler) handleUpdateReservation(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	reservationID, err := booking.NewReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var fields map[string]any
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected reservation JSON body"))
		return
	}
	update, err := booking.ParseReservationUpdate(fields)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.service.UpdateReservation(ctx.Request.Context(), actor, reservationID, update)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newReservationView(reservation)})
}

func (handler *httpHandler) handleCancelReservation(ctx *gin.Context) {
	actor, _ := actorFrom(ctx)
	reservationID, err := booking.NewReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reservation, err := handler.service.CancelReservation(ctx.Request.Context(), actor, reservationID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": newReservationView(reservation)})
}

func (handler *httpHandler) handleStatistics(ctx *gin.Context) {
	summary, err := handler.statistics.ComputeSummary(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func respondPage[T any](handler *httpHandler, ctx *gin.Context, plan query.Plan, pagination query.Pagination, views []T) {
	response, err := projectPage(plan, pagination, views)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}
