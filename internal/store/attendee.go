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

const attendeeSelect = `
	SELECT a.id, a.event_id, a.user_id, u.name, a.created_at, a.updated_at
	FROM attendees a
	JOIN users u ON u.id = a.user_id`

// AttendeeStore handles event registrations.
type AttendeeStore struct {
	db *sql.DB
}

// NewAttendeeStore creates a new AttendeeStore.
func NewAttendeeStore(db *sql.DB) *AttendeeStore {
	return &AttendeeStore{db: db}
}

func scanAttendee(row scanner) (*models.Attendee, error) {
	var a models.Attendee
	user := models.UserSummary{}
	if err := row.Scan(&a.ID, &a.EventID, &a.UserID, &user.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	user.ID = a.UserID
	a.User = &user
	return &a, nil
}

// ListByEvent returns the registrations of an event, latest first.
func (s *AttendeeStore) ListByEvent(ctx context.Context, eventID int64) ([]models.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, attendeeSelect+`
		WHERE a.event_id = $1
		ORDER BY a.created_at DESC, a.id DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	attendees := []models.Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, *a)
	}
	return attendees, rows.Err()
}

// FindByID retrieves a registration. Returns nil if not found.
func (s *AttendeeStore) FindByID(ctx context.Context, id int64) (*models.Attendee, error) {
	a, err := scanAttendee(s.db.QueryRowContext(ctx, attendeeSelect+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendee: %w", err)
	}
	return a, nil
}

// Register signs a user up for an event. A second registration of the same
// user fails with ErrAlreadyRegistered.
func (s *AttendeeStore) Register(ctx context.Context, eventID, userID int64) (*models.Attendee, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attendees (event_id, user_id) VALUES ($1, $2)
		RETURNING id
	`, eventID, userID).Scan(&id)
	switch pgCode(err) {
	case pgUniqueViolation:
		return nil, fmt.Errorf("register user %d for event %d: %w", userID, eventID, ErrAlreadyRegistered)
	case pgForeignKeyViolation:
		return nil, fmt.Errorf("register for event %d: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("register attendee: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Delete cancels a registration.
func (s *AttendeeStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete attendee %d: %w", id, err)
	}
	return nil
}
