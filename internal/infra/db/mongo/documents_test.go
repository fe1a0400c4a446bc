package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuecal/internal/domain/reservation"
	"venuecal/internal/domain/venueevent"
)

func TestReservationDocumentKeepsDetails(t *testing.T) {
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	r := reservation.Reservation{
		ID:        "r1",
		Date:      "2025-05-02",
		StartTime: "12:00",
		EndTime:   "23:00",
		Details:   reservation.FestivalDetails{EventID: "f1", EventTitle: "Summer fest", Program: []string{"Opening", "Headliner"}},
		CreatedAt: at,
		UpdatedAt: at,
	}
	doc := newReservationDocument(r)
	assert.Equal(t, "f1", doc.Details.EventID)

	back := doc.toDomain()
	assert.Equal(t, r, back)
}

func TestReservationDocumentWithoutKindStillScans(t *testing.T) {
	doc := reservationDocument{ID: "r2", Date: "2025-05-02", StartTime: "09:00", EndTime: "10:00"}
	r := doc.toDomain()
	assert.Nil(t, r.Details)
	assert.Equal(t, "09:00-10:00", r.Interval())
	assert.True(t, r.CreatedAt.IsZero())
}

func TestEventDocumentRoundTripsStatus(t *testing.T) {
	e := &venueevent.Event{ID: "e1", Title: "Talk", Status: venueevent.StatusActive, Date: "2025-05-02", Start: "10:00", End: "11:00"}
	got := newEventDocument(e).toDomain()
	require.NotNil(t, got)
	assert.Equal(t, venueevent.StatusActive, got.Status)
	assert.Equal(t, "10:00", got.Start)

	bad := eventDocument{ID: "e2", Status: "postponed"}
	assert.Equal(t, venueevent.StatusDraft, bad.toDomain().Status)
}
