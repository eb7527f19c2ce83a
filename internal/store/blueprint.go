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

const blueprintColumns = `id, name, handle, category, status, working_schema, created_at, updated_at`

// BlueprintStore handles blueprints and their immutable versions.
type BlueprintStore struct {
	db *sql.DB
}

// NewBlueprintStore creates a new BlueprintStore.
func NewBlueprintStore(db *sql.DB) *BlueprintStore {
	return &BlueprintStore{db: db}
}

func scanBlueprint(row scanner) (*models.Blueprint, error) {
	var (
		b      models.Blueprint
		schema []byte
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Handle, &b.Category, &b.Status, &schema,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeJSON(schema, &b.WorkingSchema); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a blueprint.
func (s *BlueprintStore) Create(ctx context.Context, b *models.Blueprint) (*models.Blueprint, error) {
	schema, err := jsonValue(b.WorkingSchema)
	if err != nil {
		return nil, err
	}
	category, status := b.Category, b.Status
	if category == "" {
		category = "content"
	}
	if status == "" {
		status = "active"
	}

	created, err := scanBlueprint(s.db.QueryRowContext(ctx, `
		INSERT INTO blueprints (name, handle, category, status, working_schema)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+blueprintColumns,
		b.Name, b.Handle, category, status, schema,
	))
	if pgCode(err) == pgUniqueViolation {
		return nil, fmt.Errorf("create blueprint %q: %w", b.Handle, ErrDuplicateHandle)
	}
	if err != nil {
		return nil, fmt.Errorf("create blueprint: %w", err)
	}
	return created, nil
}

// FindByID retrieves a blueprint. Returns nil if not found.
func (s *BlueprintStore) FindByID(ctx context.Context, id int64) (*models.Blueprint, error) {
	b, err := scanBlueprint(s.db.QueryRowContext(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find blueprint: %w", err)
	}
	return b, nil
}

// FindByHandle retrieves a blueprint by handle. Returns nil if not found.
func (s *BlueprintStore) FindByHandle(ctx context.Context, handle string) (*models.Blueprint, error) {
	b, err := scanBlueprint(s.db.QueryRowContext(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE handle = $1`, handle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find blueprint by handle: %w", err)
	}
	return b, nil
}

// List returns all blueprints ordered by category and name.
func (s *BlueprintStore) List(ctx context.Context) ([]models.Blueprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	blueprints := []models.Blueprint{}
	for rows.Next() {
		b, err := scanBlueprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blueprint: %w", err)
		}
		blueprints = append(blueprints, *b)
	}
	return blueprints, rows.Err()
}

// UpdateSchema replaces the working schema. Existing versions keep the
// schema they were created with.
func (s *BlueprintStore) UpdateSchema(ctx context.Context, id int64, schema models.BlueprintSchema) error {
	raw, err := jsonValue(schema)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE blueprints SET working_schema = $1, updated_at = NOW() WHERE id = $2
	`, raw, id)
	if err != nil {
		return fmt.Errorf("update blueprint schema: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("update blueprint schema %d: %w", id, err)
	}
	return nil
}

// CreateVersion freezes the current working schema of a blueprint into a
// new version numbered one past the latest.
func (s *BlueprintStore) CreateVersion(ctx context.Context, blueprintID int64) (*models.BlueprintVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var schema []byte
	err = tx.QueryRowContext(ctx,
		`SELECT working_schema FROM blueprints WHERE id = $1 FOR UPDATE`, blueprintID).Scan(&schema)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create version of blueprint %d: %w", blueprintID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock blueprint: %w", err)
	}

	v := &models.BlueprintVersion{BlueprintID: blueprintID}
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO blueprint_versions (blueprint_id, version, schema)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2
		FROM blueprint_versions WHERE blueprint_id = $1
		RETURNING id, version, created_at
	`, blueprintID, schema).Scan(&v.ID, &v.Version, &v.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert blueprint version: %w", err)
	}
	if err := decodeJSON(schema, &v.Schema); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit blueprint version: %w", err)
	}
	return v, nil
}

// FindVersion retrieves a blueprint version. Returns nil if not found.
func (s *BlueprintStore) FindVersion(ctx context.Context, id int64) (*models.BlueprintVersion, error) {
	var (
		v      models.BlueprintVersion
		schema []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, blueprint_id, version, schema, created_at
		FROM blueprint_versions WHERE id = $1
	`, id).Scan(&v.ID, &v.BlueprintID, &v.Version, &schema, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find blueprint version: %w", err)
	}
	if err := decodeJSON(schema, &v.Schema); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns the versions of a blueprint, newest first.
func (s *BlueprintStore) ListVersions(ctx context.Context, blueprintID int64) ([]models.BlueprintVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, blueprint_id, version, schema, created_at
		FROM blueprint_versions WHERE blueprint_id = $1
		ORDER BY version DESC
	`, blueprintID)
	if err != nil {
		return nil, fmt.Errorf("list blueprint versions: %w", err)
	}
	defer rows.Close()

	versions := []models.BlueprintVersion{}
	for rows.Next() {
		var (
			v      models.BlueprintVersion
			schema []byte
		)
		if err := rows.Scan(&v.ID, &v.BlueprintID, &v.Version, &schema, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blueprint version: %w", err)
		}
		if err := decodeJSON(schema, &v.Schema); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// DeleteVersion removes a version. Components bound to it keep their content
// and lose the reference (ON DELETE SET NULL).
func (s *BlueprintStore) DeleteVersion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blueprint_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blueprint version: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete blueprint version %d: %w", id, err)
	}
	return nil
}
