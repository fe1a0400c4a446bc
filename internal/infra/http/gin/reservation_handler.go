package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	reservationapp "venuecal/internal/app/handlers/reservations"
	"venuecal/internal/app/queries"
	"venuecal/internal/domain/reservation"
)

const idempotencyHeader = "Idempotency-Key"

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createReservationRequest struct {
	Date      string                     `json:"date"`
	StartTime string                     `json:"start_time"`
	EndTime   string                     `json:"end_time"`
	Details   *reservation.DetailsRecord `json:"details"`
}

type updateReservationRequest struct {
	Date      *string                    `json:"date"`
	StartTime *string                    `json:"start_time"`
	EndTime   *string                    `json:"end_time"`
	Details   *reservation.DetailsRecord `json:"details"`
}

type checkRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ExcludeID string `json:"exclude_id"`
}

func (h ReservationHandler) List(c *gin.Context) {
	query := reservationapp.ListReservationsQuery{
		Date: c.Query("date"),
		From: c.Query("date_from"),
		To:   c.Query("date_to"),
	}
	result, err := queries.Ask[reservationapp.ListReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	query := reservationapp.GetReservationQuery{ID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[reservationapp.GetReservationQuery, *dto.Reservation](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	cmd := reservationapp.CreateReservationCommand{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	if req.Details != nil {
		cmd.Details = *req.Details
	}
	result, err := commands.Dispatch[reservationapp.CreateReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) Update(c *gin.Context) {
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	cmd := reservationapp.UpdateReservationCommand{
		ID:              strings.TrimSpace(c.Param("id")),
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Details:         req.Details,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[reservationapp.UpdateReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Delete(c *gin.Context) {
	cmd := reservationapp.DeleteReservationCommand{ID: strings.TrimSpace(c.Param("id"))}
	if _, err := commands.Dispatch[reservationapp.DeleteReservationCommand, *reservationapp.DeleteReservationResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteByEvent serves DELETE /reservations?event_id=E.
func (h ReservationHandler) DeleteByEvent(c *gin.Context) {
	cmd := reservationapp.ReleaseEventSlotsCommand{EventID: strings.TrimSpace(c.Query("event_id"))}
	if _, err := commands.Dispatch[reservationapp.ReleaseEventSlotsCommand, *dto.ReleaseResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ReservationHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	query := reservationapp.CheckAvailabilityQuery{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		ExcludeID: req.ExcludeID,
	}
	result, err := queries.Ask[reservationapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ReservationHTTP = ReservationHandler{}
