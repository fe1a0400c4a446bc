package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"venuecal/internal/app/dto"
	"venuecal/internal/app/middleware"
	"venuecal/internal/app/session"
	"venuecal/internal/domain/reservation"
)

var errSessionNotFound = errors.New("session not found or expired")

// SessionStore keeps interactive booking sessions in memory until they go idle.
type SessionStore struct {
	items *cache.Cache
	idle  time.Duration
	open  func() *session.Session
}

func NewSessionStore(idle time.Duration, open func() *session.Session) *SessionStore {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &SessionStore{items: cache.New(idle, idle/2), idle: idle, open: open}
}

func (s *SessionStore) create() (string, *session.Session) {
	id := uuid.NewString()
	sess := s.open()
	s.items.Set(id, sess, s.idle)
	return id, sess
}

// get returns the session and extends its lifetime.
func (s *SessionStore) get(id string) (*session.Session, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, errSessionNotFound
	}
	sess := v.(*session.Session)
	s.items.Set(id, sess, s.idle)
	return sess, nil
}

func (s *SessionStore) drop(id string) {
	s.items.Delete(id)
}

type SessionHandler struct {
	Store       *SessionStore
	Invalidator middleware.Invalidator
	Logger      *slog.Logger
}

type pickRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type submitRequest struct {
	Details *reservation.DetailsRecord `json:"details"`
}

func (h SessionHandler) Open(c *gin.Context) {
	id, sess := h.Store.create()
	c.JSON(http.StatusCreated, dto.MapSession(id, sess.Snapshot()))
}

func (h SessionHandler) Get(c *gin.Context) {
	id, sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapSession(id, sess.Snapshot()))
}

func (h SessionHandler) PickStart(c *gin.Context) {
	h.pick(c, (*session.Session).PickStart)
}

func (h SessionHandler) PickEnd(c *gin.Context) {
	h.pick(c, (*session.Session).PickEnd)
}

func (h SessionHandler) Submit(c *gin.Context) {
	id, sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	if req.Details == nil {
		respondWithError(c, h.Logger, &reservation.ValidationError{Field: "details", Message: "is required"})
		return
	}
	details, err := reservation.DecodeDetails(*req.Details)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	booked, snap, err := sess.Submit(c.Request.Context(), details)
	if h.Invalidator != nil {
		h.Invalidator.Invalidate()
	}
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	out := dto.MapSession(id, snap)
	r := dto.MapReservation(*booked)
	out.Booked = &r
	c.JSON(http.StatusCreated, out)
}

func (h SessionHandler) Reset(c *gin.Context) {
	id, sess, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapSession(id, sess.Reset()))
}

func (h SessionHandler) Close(c *gin.Context) {
	id, sess, ok := h.lookup(c)
	if !ok {
		return
	}
	sess.Reset()
	h.Store.drop(id)
	c.Status(http.StatusNoContent)
}

func (h SessionHandler) pick(c *gin.Context, fn func(*session.Session, context.Context, session.Instant) (session.Snapshot, error)) {
	id, sess, ok := h.lookup(c)
	if !ok {
		return
	}
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.Logger, err)
		return
	}
	snap, err := fn(sess, c.Request.Context(), session.Instant{Date: strings.TrimSpace(req.Date), Time: strings.TrimSpace(req.Time)})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapSession(id, snap))
}

func (h SessionHandler) lookup(c *gin.Context) (string, *session.Session, bool) {
	id := strings.TrimSpace(c.Param("id"))
	sess, err := h.Store.get(id)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return "", nil, false
	}
	return id, sess, true
}

var _ SessionHTTP = SessionHandler{}
