// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pagebuilder/internal/markdown"
	"pagebuilder/internal/models"
	"pagebuilder/internal/store"
)

// EventRepository persists events. Lookups return (nil, nil) when the
// event does not exist.
type EventRepository interface {
	List(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, e *models.Event) (*models.Event, error)
	Update(ctx context.Context, e *models.Event) (*models.Event, error)
	Delete(ctx context.Context, id int64) error
}

// AttendeeRepository persists event registrations.
type AttendeeRepository interface {
	ListByEvent(ctx context.Context, eventID int64) ([]models.Attendee, error)
	FindByID(ctx context.Context, id int64) (*models.Attendee, error)
	Register(ctx context.Context, eventID, userID int64) (*models.Attendee, error)
	Delete(ctx context.Context, id int64) error
}

var (
	_ EventRepository    = (*store.EventStore)(nil)
	_ AttendeeRepository = (*store.AttendeeStore)(nil)
)

// Events groups the event and attendee endpoints. Any authenticated user
// may create events and register; only owners may change their events or
// cancel their own registrations.
type Events struct {
	events    EventRepository
	attendees AttendeeRepository
	now       func() time.Time
}

// NewEvents creates the event handler group.
func NewEvents(events EventRepository, attendees AttendeeRepository) *Events {
	return &Events{events: events, attendees: attendees, now: time.Now}
}

// optional distinguishes an absent JSON field from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// eventRequest is the body of event create and update. Update applies only
// the fields present in the body.
type eventRequest struct {
	Name        optional[string] `json:"name"`
	Description optional[string] `json:"description"`
	StartTime   optional[string] `json:"start_time"`
	EndTime     optional[string] `json:"end_time"`
}

// apply validates req and copies the present fields onto e. create
// enforces the fields required for a new event and a future start time.
func (req eventRequest) apply(e *models.Event, create bool, now time.Time) fieldErrors {
	errs := fieldErrors{}

	if req.Name.Set || create {
		var name string
		if req.Name.Value != nil {
			name = *req.Name.Value
		}
		if msg := validateEventName(name); msg != "" {
			errs.add("name", msg)
		} else {
			e.Name = name
		}
	}

	if req.Description.Set {
		e.Description = nil
		if req.Description.Value != nil {
			desc := markdown.StripTags(*req.Description.Value)
			if msg := validateEventDescription(desc); msg != "" {
				errs.add("description", msg)
			} else if desc != "" {
				e.Description = &desc
			}
		}
	}

	if req.StartTime.Set || create {
		switch {
		case req.StartTime.Value == nil || *req.StartTime.Value == "":
			errs.add("start_time", "The start time field is required.")
		default:
			start, ok := parseTime(*req.StartTime.Value)
			switch {
			case !ok:
				errs.add("start_time", "The start time is not a valid date.")
			case create && !start.After(now):
				errs.add("start_time", "The start time must be a date after now.")
			default:
				e.StartTime = start
			}
		}
	}

	if req.EndTime.Set {
		e.EndTime = nil
		if req.EndTime.Value != nil && *req.EndTime.Value != "" {
			end, ok := parseTime(*req.EndTime.Value)
			if !ok {
				errs.add("end_time", "The end time is not a valid date.")
			} else {
				e.EndTime = &end
			}
		}
	}

	// Checked against the merged event so a start moved past an existing
	// end is caught too.
	if _, bad := errs["start_time"]; !bad && e.EndTime != nil && !e.EndTime.After(e.StartTime) {
		if _, bad := errs["end_time"]; !bad {
			errs.add("end_time", "The end time must be a date after start time.")
		}
	}
	return errs
}

// render fills the HTML form of the description. A rendering failure leaves
// it empty.
func render(e *models.Event) {
	if e.Description == nil || *e.Description == "" {
		return
	}
	html, err := markdown.ToHTML(*e.Description)
	if err != nil {
		slog.Warn("render event description failed", "event_id", e.ID, "error", err)
		return
	}
	e.DescriptionHTML = html
}

// find loads an event or writes 404.
func (h *Events) find(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id, ok := idParam(w, r, "event")
	if !ok {
		return nil, false
	}
	e, err := h.events.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if e == nil {
		writeMessage(w, http.StatusNotFound, "Event not found.")
		return nil, false
	}
	return e, true
}

// List returns all events, latest first.
func (h *Events) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	for i := range events {
		render(&events[i])
	}
	writeJSON(w, http.StatusOK, events)
}

// Show returns one event with its owner and attendees.
func (h *Events) Show(w http.ResponseWriter, r *http.Request) {
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	attendees, err := h.attendees.ListByEvent(r.Context(), e.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.Attendees = attendees
	render(e)
	writeJSON(w, http.StatusOK, e)
}

// Create creates an event owned by the caller.
func (h *Events) Create(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if !decode(w, r, &req) {
		return
	}
	e := &models.Event{UserID: who.UserID}
	if errs := req.apply(e, true, h.now()); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	created, err := h.events.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("event created", "event_id", created.ID, "user_id", who.UserID)
	render(created)
	writeJSON(w, http.StatusCreated, created)
}

// Update changes the fields present in the body. Only the owner may update.
func (h *Events) Update(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	if !e.OwnedBy(who.UserID) {
		writeMessage(w, http.StatusForbidden, "You are not authorized to update this event.")
		return
	}
	var req eventRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := req.apply(e, false, h.now()); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	updated, err := h.events.Update(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(updated)
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes an event and its registrations. Only the owner may delete.
func (h *Events) Delete(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	if !e.OwnedBy(who.UserID) {
		writeMessage(w, http.StatusForbidden, "You are not authorized to delete this event.")
		return
	}
	if err := h.events.Delete(r.Context(), e.ID); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("event deleted", "event_id", e.ID, "user_id", who.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// --- Attendees ---

// AttendeesList returns the registrations of an event.
func (h *Events) AttendeesList(w http.ResponseWriter, r *http.Request) {
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	attendees, err := h.attendees.ListByEvent(r.Context(), e.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendees)
}

// AttendeeRegister registers the caller for an event.
func (h *Events) AttendeeRegister(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	a, err := h.attendees.Register(r.Context(), e.ID, who.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// AttendeeCancel removes the caller's own registration.
func (h *Events) AttendeeCancel(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	e, ok := h.find(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "attendee")
	if !ok {
		return
	}
	a, err := h.attendees.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil || a.EventID != e.ID {
		writeMessage(w, http.StatusNotFound, "Attendee not found for this event.")
		return
	}
	if a.UserID != who.UserID {
		writeMessage(w, http.StatusForbidden, "You are not authorized to remove this attendee.")
		return
	}
	if err := h.attendees.Delete(r.Context(), a.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
