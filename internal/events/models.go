package events

import "time"

// EventType identifies the kind of behavioral event recorded by the
// collection layer.
type EventType string

const (
	EventTypePageView        EventType = "pageview"
	EventTypeClick           EventType = "click"
	EventTypeScroll          EventType = "scroll"
	EventTypeFieldBlur       EventType = "field_blur"
	EventTypeFieldError      EventType = "field_error"
	EventTypeFormSubmit      EventType = "form_submit"
	EventTypeFormAbandonment EventType = "form_abandonment"
)

// Constants for unknown or default values
const (
	UnknownElement = "Unknown Element"
	UnknownCountry = "__unknown_country__"
)

// Event represents a single recorded user interaction. Events are created
// by the collection layer and never mutated afterwards; they are removed
// only by an operator-driven bulk delete.
type Event struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string    `gorm:"index;size:64;not null" json:"session_id"`
	UserID       string    `gorm:"index" json:"user_id"`
	EventType    EventType `gorm:"index;not null" json:"event_type"`
	PageURL      string    `gorm:"index;not null" json:"page_url"`
	ElementID    string    `json:"element_id"`
	ElementText  string    `json:"element_text"`
	ElementClass string    `json:"element_class"`
	UserAgent    string    `json:"user_agent"`
	Country      string    `gorm:"index" json:"country"`
	Metadata     string    `gorm:"type:text" json:"metadata"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
}

// ElementKey returns the grouping key used by click aggregation: element
// text when present, element id otherwise, a fixed placeholder when both
// are empty.
func (e Event) ElementKey() string {
	if e.ElementText != "" {
		return e.ElementText
	}
	if e.ElementID != "" {
		return e.ElementID
	}
	return UnknownElement
}
