package reservation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDetails(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		field   string
	}{
		{name: "missing", details: nil, field: "details"},
		{name: "event without id", details: EventDetails{EventTitle: "Gig"}, field: "details.event_id"},
		{name: "festival without title", details: FestivalDetails{EventID: "e1"}, field: "details.event_title"},
		{name: "manual without contact", details: ManualDetails{RequesterName: "Ana"}, field: "details.contact"},
		{name: "other without kind", details: OtherDetails{}, field: "details.kind"},
		{name: "valid event", details: EventDetails{EventID: "e1", EventTitle: "Gig"}},
		{name: "valid manual", details: ManualDetails{RequesterName: "Ana", Contact: "ana@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDetails(tt.details)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLinkedEventID(t *testing.T) {
	assert.Equal(t, "e1", LinkedEventID(EventDetails{EventID: "e1"}))
	assert.Equal(t, "f1", LinkedEventID(FestivalDetails{EventID: "f1"}))
	assert.Empty(t, LinkedEventID(ManualDetails{RequesterName: "Ana"}))
	assert.Empty(t, LinkedEventID(nil))
}

func TestDecodeDetailsKeepsUnknownKinds(t *testing.T) {
	d, err := DecodeDetails(DetailsRecord{Kind: "maintenance", Label: "Floor polish", Attributes: map[string]string{"crew": "B"}})
	require.NoError(t, err)
	other, ok := d.(OtherDetails)
	require.True(t, ok)
	assert.Equal(t, Kind("maintenance"), other.Kind())
	assert.Equal(t, "Floor polish", other.Title())
	assert.Equal(t, "B", other.Attributes["crew"])

	rec := EncodeDetails(other)
	assert.Equal(t, "maintenance", rec.Kind)
}

func TestDecodeDetailsFestivalProgram(t *testing.T) {
	d, err := DecodeDetails(DetailsRecord{Kind: "festival", EventID: "f1", EventTitle: "Summer", Program: []string{"Opening", "Headliner"}})
	require.NoError(t, err)
	fest, ok := d.(FestivalDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"Opening", "Headliner"}, fest.Program)
	assert.Equal(t, "f1", LinkedEventID(fest))
}

func TestDecodeDetailsRequiresKind(t *testing.T) {
	_, err := DecodeDetails(DetailsRecord{})
	assert.True(t, IsValidation(err))
}

func TestPatchApply(t *testing.T) {
	base := manual("r1", "2025-03-10", "10:00", "11:00", "Ana")
	end := "12:00"
	got := Patch{EndTime: &end}.Apply(base)
	assert.Equal(t, "10:00", got.StartTime)
	assert.Equal(t, "12:00", got.EndTime)
	assert.Equal(t, base.Details, got.Details)
	assert.True(t, Patch{}.Empty())
}
