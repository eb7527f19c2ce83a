// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Event is a scheduled happening users can register for.
type Event struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	// DescriptionHTML is the rendered form of Description. It is not stored.
	DescriptionHTML string       `json:"description_html,omitempty"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         *time.Time   `json:"end_time"`
	UserID          int64        `json:"user_id"`
	User            *UserSummary `json:"user,omitempty"`
	AttendeesCount  int          `json:"attendees_count"`
	Attendees       []Attendee   `json:"attendees,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// OwnedBy reports whether userID created the event.
func (e *Event) OwnedBy(userID int64) bool {
	return e.UserID == userID
}

// Attendee is one user's registration for an event.
type Attendee struct {
	ID        int64        `json:"id"`
	EventID   int64        `json:"event_id"`
	UserID    int64        `json:"user_id"`
	User      *UserSummary `json:"user,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
