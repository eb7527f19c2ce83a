// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pagebuilder/internal/models"
	"pagebuilder/internal/slug"
	"pagebuilder/internal/store"
)

// BlueprintInput carries the editable fields of a blueprint.
type BlueprintInput struct {
	Name     string
	Handle   string
	Category string
	Schema   models.BlueprintSchema
}

func checkSchema(schema models.BlueprintSchema) error {
	seen := make(map[string]bool, len(schema.Fields))
	for i, f := range schema.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return &InputError{Field: fmt.Sprintf("schema.fields[%d].name", i), Message: "is required"}
		}
		if seen[name] {
			return &InputError{Field: fmt.Sprintf("schema.fields[%d].name", i), Message: fmt.Sprintf("duplicates field %q", name)}
		}
		seen[name] = true
	}
	return nil
}

// Blueprints lists all blueprints.
func (e *Engine) Blueprints(ctx context.Context) ([]models.Blueprint, error) {
	return e.blueprints.List(ctx)
}

// Blueprint returns one blueprint.
func (e *Engine) Blueprint(ctx context.Context, id int64) (*models.Blueprint, error) {
	b, err := e.blueprints.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("blueprint %d: %w", id, store.ErrNotFound)
	}
	return b, nil
}

// CreateBlueprint creates a blueprint with a working schema. No version
// exists until CreateBlueprintVersion is called.
func (e *Engine) CreateBlueprint(ctx context.Context, in BlueprintInput) (*models.Blueprint, error) {
	name, err := checkName(in.Name)
	if err != nil {
		return nil, err
	}
	handle := in.Handle
	if handle == "" {
		handle = slug.Generate(name)
	}
	if err := checkHandle(handle); err != nil {
		return nil, err
	}
	if err := checkSchema(in.Schema); err != nil {
		return nil, err
	}
	return e.blueprints.Create(ctx, &models.Blueprint{
		Name:          name,
		Handle:        handle,
		Category:      in.Category,
		WorkingSchema: in.Schema,
	})
}

// UpdateBlueprintSchema replaces a blueprint's working schema. Existing
// versions, and the components bound to them, are unaffected.
func (e *Engine) UpdateBlueprintSchema(ctx context.Context, id int64, schema models.BlueprintSchema) (*models.Blueprint, error) {
	if err := checkSchema(schema); err != nil {
		return nil, err
	}
	if err := e.blueprints.UpdateSchema(ctx, id, schema); err != nil {
		return nil, err
	}
	return e.Blueprint(ctx, id)
}

// CreateBlueprintVersion freezes the working schema into a new version.
func (e *Engine) CreateBlueprintVersion(ctx context.Context, blueprintID int64) (*models.BlueprintVersion, error) {
	v, err := e.blueprints.CreateVersion(ctx, blueprintID)
	if err != nil {
		return nil, err
	}
	slog.Info("blueprint version created", "blueprint_id", blueprintID, "version", v.Version, "version_id", v.ID)
	return v, nil
}

// BlueprintVersions lists the versions of a blueprint, newest first.
func (e *Engine) BlueprintVersions(ctx context.Context, blueprintID int64) ([]models.BlueprintVersion, error) {
	if _, err := e.Blueprint(ctx, blueprintID); err != nil {
		return nil, err
	}
	return e.blueprints.ListVersions(ctx, blueprintID)
}

// BlueprintVersion returns one version through the version cache.
func (e *Engine) BlueprintVersion(ctx context.Context, id int64) (*models.BlueprintVersion, error) {
	v, err := e.versions.BlueprintVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("blueprint version %d: %w", id, store.ErrNotFound)
	}
	return v, nil
}

// DeleteBlueprintVersion removes a version. Components bound to it keep
// their data and lose the reference, so every cached structure is dropped.
func (e *Engine) DeleteBlueprintVersion(ctx context.Context, id int64) error {
	if err := e.blueprints.DeleteVersion(ctx, id); err != nil {
		return err
	}
	e.versions.remove(id)
	if e.cache != nil {
		e.cache.InvalidateAll(ctx)
	}
	if e.log != nil {
		e.log.Log(ctx, "blueprint_version", id, "delete")
	}
	slog.Info("blueprint version deleted", "version_id", id)
	return nil
}
