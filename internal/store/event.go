// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pagebuilder/internal/models"
)

// eventSelect joins the owner and the attendee count onto every event row.
const eventSelect = `
	SELECT e.id, e.name, e.description, e.start_time, e.end_time, e.user_id,
		u.name, u.email,
		(SELECT COUNT(*) FROM attendees a WHERE a.event_id = e.id),
		e.created_at, e.updated_at
	FROM events e
	JOIN users u ON u.id = e.user_id`

// EventStore handles events.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new EventStore.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		e     models.Event
		owner models.UserSummary
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.StartTime, &e.EndTime, &e.UserID,
		&owner.Name, &owner.Email, &e.AttendeesCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	owner.ID = e.UserID
	e.User = &owner
	return &e, nil
}

// List returns all events, latest first, with owner and attendee count.
func (s *EventStore) List(ctx context.Context) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, eventSelect+` ORDER BY e.created_at DESC, e.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.User.Email = ""
		events = append(events, *e)
	}
	return events, rows.Err()
}

// FindByID retrieves an event with its owner. Returns nil if not found.
func (s *EventStore) FindByID(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

// Create inserts an event owned by e.UserID and returns it with its owner.
func (s *EventStore) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO events (user_id, name, description, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.UserID, e.Name, e.Description, e.StartTime, e.EndTime).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update overwrites the editable fields of an event.
func (s *EventStore) Update(ctx context.Context, e *models.Event) (*models.Event, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			name = $1, description = $2, start_time = $3, end_time = $4, updated_at = NOW()
		WHERE id = $5
	`, e.Name, e.Description, e.StartTime, e.EndTime, e.ID)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := affected(res); err != nil {
		return nil, fmt.Errorf("update event %d: %w", e.ID, err)
	}
	return s.FindByID(ctx, e.ID)
}

// Delete removes an event and its registrations.
func (s *EventStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}
