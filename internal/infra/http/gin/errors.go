package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/queries"
	"venuecal/internal/app/session"
	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Field     string            `json:"field,omitempty"`
	Conflicts []dto.Reservation `json:"conflicts,omitempty"`
}

// respondWithError maps application errors onto status codes. Store failures never leak
// their cause to the client.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status, body := classify(err)
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed", "status", status, "error", err, "path", c.FullPath())
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		verr     *reservation.ValidationError
		conflict *reservation.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorResponse{Error: conflict.Message, Conflicts: dto.MapReservations(conflict.Conflicts)}
	case errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, venueevent.ErrEventNotFound),
		errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, venueevent.ErrInvalidStatus),
		errors.Is(err, session.ErrNoStart),
		errors.Is(err, session.ErrDifferentDay),
		errors.Is(err, session.ErrNothingSelected):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, session.ErrDayBusy),
		errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, middleware.ErrReadOnly):
		return http.StatusServiceUnavailable, errorResponse{Error: "the schedule is read-only right now"}
	case reservation.IsStore(err):
		return http.StatusServiceUnavailable, errorResponse{Error: reservation.StoreUnavailableMessage}
	case errors.Is(err, commands.ErrNilBus), errors.Is(err, queries.ErrNilBus):
		return http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func badRequest(c *gin.Context, logger *slog.Logger, err error) {
	respondWithError(c, logger, &reservation.ValidationError{Field: "body", Message: "is not valid JSON: " + err.Error()})
}
