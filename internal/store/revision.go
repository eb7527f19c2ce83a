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

// RevisionStore reads the structure snapshots written by
// StructureStore.Replace.
type RevisionStore struct {
	db *sql.DB
}

// NewRevisionStore creates a new RevisionStore backed by the given database.
func NewRevisionStore(db *sql.DB) *RevisionStore {
	return &RevisionStore{db: db}
}

// ListByTemplate returns the revisions of a template, newest first, without
// their section trees.
func (s *RevisionStore) ListByTemplate(ctx context.Context, templateID int64) ([]models.TemplateRevision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, structure_version, created_by, created_at
		FROM template_revisions
		WHERE template_id = $1
		ORDER BY structure_version DESC
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list template revisions: %w", err)
	}
	defer rows.Close()

	revisions := []models.TemplateRevision{}
	for rows.Next() {
		var r models.TemplateRevision
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.StructureVersion, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template revision: %w", err)
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}

// Find returns one revision of a template including its section tree.
// Returns nil if not found.
func (s *RevisionStore) Find(ctx context.Context, templateID int64, version int) (*models.TemplateRevision, error) {
	var (
		r        models.TemplateRevision
		sections []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, structure_version, sections, created_by, created_at
		FROM template_revisions
		WHERE template_id = $1 AND structure_version = $2
	`, templateID, version).Scan(&r.ID, &r.TemplateID, &r.StructureVersion, &sections, &r.CreatedBy, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template revision: %w", err)
	}
	if err := decodeJSON(sections, &r.Sections); err != nil {
		return nil, err
	}
	return &r, nil
}
