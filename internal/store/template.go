// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/models"
)

// templateColumns lists all columns for templates SELECTs.
const templateColumns = `id, name, handle, description, status, content, compiled,
	structure_version, published_at, created_at, updated_at, deleted_at`

// TemplateStore handles template metadata. Section trees live in
// StructureStore.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(row scanner) (*models.Template, error) {
	var (
		t        models.Template
		content  []byte
		compiled []byte
	)
	if err := row.Scan(
		&t.ID, &t.Name, &t.Handle, &t.Description, &t.Status, &content, &compiled,
		&t.StructureVersion, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		t.Content = content
	}
	if err := decodeJSON(compiled, &t.Compiled); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new template. The handle must not be taken by any
// template, including soft-deleted ones.
func (s *TemplateStore) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	status := t.Status
	if status == "" {
		status = models.TemplateStatusDraft
	}
	content, err := jsonValue(t.Content)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO templates (name, handle, description, status, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+templateColumns,
		t.Name, t.Handle, t.Description, status, content,
	)
	created, err := scanTemplate(row)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, fmt.Errorf("create template %q: %w", t.Handle, ErrDuplicateHandle)
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	return created, nil
}

// FindByID retrieves a live template by id. Returns nil if not found or
// soft-deleted.
func (s *TemplateStore) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// FindByHandle retrieves a live template by handle. Handles are
// case-sensitive. Returns nil if not found.
func (s *TemplateStore) FindByHandle(ctx context.Context, handle string) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates WHERE handle = $1 AND deleted_at IS NULL
	`, handle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by handle: %w", err)
	}
	return t, nil
}

// List returns live templates ordered by name. An empty status lists all.
func (s *TemplateStore) List(ctx context.Context, status models.TemplateStatus) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE deleted_at IS NULL AND ($1 = '' OR status = $1)
		ORDER BY name, id
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Update modifies a template's metadata and editor content.
func (s *TemplateStore) Update(ctx context.Context, t *models.Template) (*models.Template, error) {
	content, err := jsonValue(t.Content)
	if err != nil {
		return nil, err
	}

	updated, err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE templates SET
			name = $1, handle = $2, description = $3, content = $4, updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL
		RETURNING `+templateColumns,
		t.Name, t.Handle, t.Description, content, t.ID,
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("update template %d: %w", t.ID, ErrNotFound)
	case pgCode(err) == pgUniqueViolation:
		return nil, fmt.Errorf("update template %q: %w", t.Handle, ErrDuplicateHandle)
	case err != nil:
		return nil, fmt.Errorf("update template: %w", err)
	}
	return updated, nil
}

// SetStatus moves a template to another lifecycle status.
func (s *TemplateStore) SetStatus(ctx context.Context, id int64, status models.TemplateStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set template status: invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, status, id)
	if err != nil {
		return fmt.Errorf("set template status: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("set template status %d: %w", id, err)
	}
	return nil
}

// SavePublished stores the compiled output of a template and marks it
// published at the given time.
func (s *TemplateStore) SavePublished(ctx context.Context, id int64, blocks []models.CompiledBlock, at time.Time) error {
	if blocks == nil {
		blocks = []models.CompiledBlock{}
	}
	compiled, err := jsonValue(blocks)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET
			compiled = $1, status = 'published', published_at = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, compiled, at, id)
	if err != nil {
		return fmt.Errorf("save published template: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("save published template %d: %w", id, err)
	}
	return nil
}

// SoftDelete tombstones a template. Its sections stay in place and its
// handle stays reserved.
func (s *TemplateStore) SoftDelete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	return nil
}
