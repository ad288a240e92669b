package domain

import (
	"slices"
	"time"
)

// EventStatus is the moderation state of a community event.
type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventApproved EventStatus = "approved"
	EventRejected EventStatus = "rejected"
)

// Community event types.
const (
	EventTypeSport          = "Sport"
	EventTypeFoodBank       = "Food Bank"
	EventTypeHealthySeminar = "Healthy Seminar"
)

// EventTypes lists the accepted event types.
var EventTypes = []string{EventTypeSport, EventTypeFoodBank, EventTypeHealthySeminar}

// IsValidEventType reports whether t is an accepted event type.
func IsValidEventType(t string) bool {
	return slices.Contains(EventTypes, t)
}

// Creator kinds recorded on events.
const (
	CreatedByUser  = "user"
	CreatedByAdmin = "admin"
)

// Event is a community event. Time is kept as the organiser entered it.
type Event struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Time          string      `json:"time"`
	Type          string      `json:"type"`
	Suburb        string      `json:"suburb"`
	Address       string      `json:"address"`
	Lat           float64     `json:"lat"`
	Lng           float64     `json:"lng"`
	Description   string      `json:"description"`
	Status        EventStatus `json:"status"`
	OrganizerID   *string     `json:"organizer_id,omitempty"`
	CreatedBy     string      `json:"created_by"`
	BookingsCount int         `json:"bookings_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// EventFilter narrows an event listing.
type EventFilter struct {
	Status EventStatus
	Suburb string
	Type   string
}

// Booking is a user's place at an event.
type Booking struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
