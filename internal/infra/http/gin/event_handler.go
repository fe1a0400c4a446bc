package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/dto"
	eventapp "venuecal/internal/app/handlers/events"
	"venuecal/internal/app/queries"
)

type EventHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type saveEventRequest struct {
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Location  string   `json:"location"`
	Capacity  int      `json:"capacity"`
	Status    string   `json:"status"`
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Program   []string `json:"program"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type reconcileRequest struct {
	From string `json:"date_from"`
	To   string `json:"date_to"`
}

func (h EventHandler) List(c *gin.Context) {
	result, err := queries.Ask[eventapp.ListEventsQuery, dto.EventCollection](c.Request.Context(), h.Queries, eventapp.ListEventsQuery{Status: c.Query("status")})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h EventHandler) Get(c *gin.Context) {
	query := eventapp.GetEventQuery{ID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[eventapp.GetEventQuery, *dto.Event](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h EventHandler) Put(c *gin.Context) {
	var req saveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	cmd := eventapp.SaveEventCommand{
		ID:              strings.TrimSpace(c.Param("id")),
		Title:           req.Title,
		Type:            req.Type,
		Location:        req.Location,
		Capacity:        req.Capacity,
		Status:          req.Status,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Program:         req.Program,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[eventapp.SaveEventCommand, *dto.Event](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h EventHandler) Delete(c *gin.Context) {
	cmd := eventapp.DeleteEventCommand{ID: strings.TrimSpace(c.Param("id"))}
	if _, err := commands.Dispatch[eventapp.DeleteEventCommand, *eventapp.DeleteEventResult](c.Request.Context(), h.Commands, cmd); err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h EventHandler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	cmd := eventapp.ChangeEventStatusCommand{ID: strings.TrimSpace(c.Param("id")), Status: req.Status}
	result, err := commands.Dispatch[eventapp.ChangeEventStatusCommand, *dto.Event](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h EventHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	cmd := eventapp.ReconcileCommand{From: req.From, To: req.To}
	result, err := commands.Dispatch[eventapp.ReconcileCommand, *dto.ReconcileReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ EventHTTP = EventHandler{}
