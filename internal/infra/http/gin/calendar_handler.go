package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"venuecal/internal/app/dto"
	calendarapp "venuecal/internal/app/handlers/calendar"
	"venuecal/internal/app/queries"
)

type CalendarHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CalendarHandler) Calendar(c *gin.Context) {
	query := calendarapp.GetCalendarQuery{From: c.Query("date_from"), To: c.Query("date_to")}
	if query.From == "" {
		query.From = c.Query("date")
	}
	result, err := queries.Ask[calendarapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ CalendarHTTP = CalendarHandler{}
