package reservation

import (
	"fmt"
	"strings"
)

// Kind discriminates the Details variants.
type Kind string

const (
	KindEvent    Kind = "event"
	KindFestival Kind = "festival"
	KindManual   Kind = "manual"
)

// Details classifies a reservation's origin and carries its payload.
// The set of variants is closed; use a type switch over the concrete types.
type Details interface {
	Kind() Kind
	Title() string
	details()
}

// EventDetails marks a reservation held on behalf of an upstream event.
type EventDetails struct {
	EventID    string
	EventTitle string
	EventType  string
	Location   string
	Capacity   int
}

func (EventDetails) Kind() Kind      { return KindEvent }
func (d EventDetails) Title() string { return d.EventTitle }
func (EventDetails) details()        {}

// FestivalDetails is the calendar hold of a festival. Program items ride along as
// payload and never get reservations of their own.
type FestivalDetails struct {
	EventID    string
	EventTitle string
	Location   string
	Capacity   int
	Program    []string
}

func (FestivalDetails) Kind() Kind      { return KindFestival }
func (d FestivalDetails) Title() string { return d.EventTitle }
func (FestivalDetails) details()        {}

// ManualDetails is a booking entered directly by a person.
type ManualDetails struct {
	RequesterName string
	Contact       string
	Notes         string
}

func (ManualDetails) Kind() Kind { return KindManual }
func (d ManualDetails) Title() string {
	return "Booking for " + d.RequesterName
}
func (ManualDetails) details() {}

// OtherDetails keeps kinds this engine does not interpret.
type OtherDetails struct {
	Name       Kind
	Label      string
	Attributes map[string]string
}

func (d OtherDetails) Kind() Kind { return d.Name }
func (d OtherDetails) Title() string {
	if d.Label != "" {
		return d.Label
	}
	return string(d.Name)
}
func (OtherDetails) details() {}

// LinkedEventID returns the owning event id for event-linked variants.
func LinkedEventID(d Details) string {
	switch v := d.(type) {
	case EventDetails:
		return v.EventID
	case FestivalDetails:
		return v.EventID
	case ManualDetails, OtherDetails, nil:
		return ""
	default:
		panic(fmt.Sprintf("reservation: unknown details variant %T", d))
	}
}

func ValidateDetails(d Details) error {
	switch v := d.(type) {
	case nil:
		return &ValidationError{Field: "details", Message: "is required"}
	case EventDetails:
		if strings.TrimSpace(v.EventID) == "" {
			return &ValidationError{Field: "details.event_id", Message: "is required"}
		}
		if strings.TrimSpace(v.EventTitle) == "" {
			return &ValidationError{Field: "details.event_title", Message: "is required"}
		}
	case FestivalDetails:
		if strings.TrimSpace(v.EventID) == "" {
			return &ValidationError{Field: "details.event_id", Message: "is required"}
		}
		if strings.TrimSpace(v.EventTitle) == "" {
			return &ValidationError{Field: "details.event_title", Message: "is required"}
		}
	case ManualDetails:
		if strings.TrimSpace(v.RequesterName) == "" {
			return &ValidationError{Field: "details.requester_name", Message: "is required"}
		}
		if strings.TrimSpace(v.Contact) == "" {
			return &ValidationError{Field: "details.contact", Message: "is required"}
		}
	case OtherDetails:
		if strings.TrimSpace(string(v.Name)) == "" {
			return &ValidationError{Field: "details.kind", Message: "is required"}
		}
	default:
		return &ValidationError{Field: "details.kind", Message: fmt.Sprintf("unsupported variant %T", d)}
	}
	return nil
}

// DetailsRecord is the flat persisted and wire form of Details.
type DetailsRecord struct {
	Kind          string            `json:"kind" bson:"kind"`
	EventID       string            `json:"event_id,omitempty" bson:"event_id,omitempty"`
	EventTitle    string            `json:"event_title,omitempty" bson:"event_title,omitempty"`
	EventType     string            `json:"event_type,omitempty" bson:"event_type,omitempty"`
	Location      string            `json:"location,omitempty" bson:"location,omitempty"`
	Capacity      int               `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Program       []string          `json:"program,omitempty" bson:"program,omitempty"`
	RequesterName string            `json:"requester_name,omitempty" bson:"requester_name,omitempty"`
	Contact       string            `json:"contact,omitempty" bson:"contact,omitempty"`
	Notes         string            `json:"notes,omitempty" bson:"notes,omitempty"`
	Label         string            `json:"label,omitempty" bson:"label,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

func EncodeDetails(d Details) DetailsRecord {
	switch v := d.(type) {
	case EventDetails:
		return DetailsRecord{Kind: string(KindEvent), EventID: v.EventID, EventTitle: v.EventTitle, EventType: v.EventType, Location: v.Location, Capacity: v.Capacity}
	case FestivalDetails:
		return DetailsRecord{Kind: string(KindFestival), EventID: v.EventID, EventTitle: v.EventTitle, EventType: string(KindFestival), Location: v.Location, Capacity: v.Capacity, Program: append([]string(nil), v.Program...)}
	case ManualDetails:
		return DetailsRecord{Kind: string(KindManual), RequesterName: v.RequesterName, Contact: v.Contact, Notes: v.Notes}
	case OtherDetails:
		return DetailsRecord{Kind: string(v.Name), Label: v.Label, Attributes: copyAttributes(v.Attributes)}
	case nil:
		return DetailsRecord{}
	default:
		panic(fmt.Sprintf("reservation: unknown details variant %T", d))
	}
}

func DecodeDetails(rec DetailsRecord) (Details, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(rec.Kind))) {
	case "":
		return nil, &ValidationError{Field: "details.kind", Message: "is required"}
	case KindEvent:
		return EventDetails{EventID: rec.EventID, EventTitle: rec.EventTitle, EventType: rec.EventType, Location: rec.Location, Capacity: rec.Capacity}, nil
	case KindFestival:
		return FestivalDetails{EventID: rec.EventID, EventTitle: rec.EventTitle, Location: rec.Location, Capacity: rec.Capacity, Program: append([]string(nil), rec.Program...)}, nil
	case KindManual:
		return ManualDetails{RequesterName: rec.RequesterName, Contact: rec.Contact, Notes: rec.Notes}, nil
	default:
		return OtherDetails{Name: Kind(rec.Kind), Label: rec.Label, Attributes: copyAttributes(rec.Attributes)}, nil
	}
}

func copyAttributes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
