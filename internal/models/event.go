package models

import "time"

// EventRecord is a single row of the website event log.
type EventRecord struct {
	WebsiteID       string    `json:"website_id"`
	EventName       string    `json:"event_name"`
	EventID         string    `json:"event_id"`
	ReceivedAt      time.Time `json:"received_at"`
	IdentityPresent bool      `json:"identity_signal_present"`
}

// EventSummary is the per-event-type view of a window of records.
type EventSummary struct {
	EventName    string
	LastReceived time.Time
	// IdentityPresent is true when any record in the window carried the signal.
	IdentityPresent bool
}

// DuplicateGroup describes an event id seen more than once in a window.
type DuplicateGroup struct {
	EventID      string
	Count        int
	LastReceived time.Time
}
