// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedField struct {
	Name     string   `yaml:"name" json:"name"`
	Type     string   `yaml:"type" json:"type"`
	Required bool     `yaml:"required" json:"required"`
	Options  []string `yaml:"options" json:"options,omitempty"`
}

type seedData struct {
	Users []struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
		Role  string `yaml:"role"`
	} `yaml:"users"`
	Blueprints []struct {
		Name     string      `yaml:"name"`
		Handle   string      `yaml:"handle"`
		Category string      `yaml:"category"`
		Fields   []seedField `yaml:"fields"`
	} `yaml:"blueprints"`
	Events []struct {
		Name          string `yaml:"name"`
		Description   string `yaml:"description"`
		StartInDays   int    `yaml:"start_in_days"`
		DurationHours int    `yaml:"duration_hours"`
	} `yaml:"events"`
	Template struct {
		Name        string `yaml:"name"`
		Handle      string `yaml:"handle"`
		Description string `yaml:"description"`
	} `yaml:"template"`
}

// Seed populates an empty database with development data: users, blueprints
// with their first versions, upcoming events and a sample template. It does
// nothing when any user exists.
func Seed(db *sql.DB) error {
	ctx := context.Background()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	var data seedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return fmt.Errorf("seed parse: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	userIDs := make([]int64, 0, len(data.Users))
	for _, u := range data.Users {
		var id int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, role) VALUES ($1, $2, $3) RETURNING id
		`, u.Name, u.Email, u.Role).Scan(&id); err != nil {
			return fmt.Errorf("seed insert user %s: %w", u.Email, err)
		}
		userIDs = append(userIDs, id)
	}

	versions := make(map[string]int64, len(data.Blueprints))
	for _, b := range data.Blueprints {
		schema, err := json.Marshal(map[string]any{"fields": b.Fields})
		if err != nil {
			return fmt.Errorf("seed encode schema %s: %w", b.Handle, err)
		}
		var blueprintID, versionID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO blueprints (name, handle, category, status, working_schema)
			VALUES ($1, $2, $3, 'published', $4) RETURNING id
		`, b.Name, b.Handle, b.Category, schema).Scan(&blueprintID); err != nil {
			return fmt.Errorf("seed insert blueprint %s: %w", b.Handle, err)
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO blueprint_versions (blueprint_id, version, schema)
			VALUES ($1, 1, $2) RETURNING id
		`, blueprintID, schema).Scan(&versionID); err != nil {
			return fmt.Errorf("seed insert blueprint version %s: %w", b.Handle, err)
		}
		versions[b.Handle] = versionID
	}

	now := time.Now().UTC().Truncate(time.Minute)
	for i, e := range data.Events {
		owner := userIDs[i%len(userIDs)]
		start := now.AddDate(0, 0, e.StartInDays)
		end := start.Add(time.Duration(e.DurationHours) * time.Hour)

		var eventID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO events (user_id, name, description, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5) RETURNING id
		`, owner, e.Name, e.Description, start, end).Scan(&eventID); err != nil {
			return fmt.Errorf("seed insert event %q: %w", e.Name, err)
		}

		// Everyone but the owner attends every other event.
		if i%2 == 1 {
			continue
		}
		for _, uid := range userIDs {
			if uid == owner {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO attendees (event_id, user_id) VALUES ($1, $2)
			`, eventID, uid); err != nil {
				return fmt.Errorf("seed insert attendee: %w", err)
			}
		}
	}

	if err := seedTemplate(ctx, tx, data, versions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded",
		"users", len(userIDs),
		"blueprints", len(versions),
		"events", len(data.Events),
		"template", data.Template.Handle,
	)
	return nil
}

// seedTemplate inserts the sample template with an editor document and a
// two-level section tree.
func seedTemplate(ctx context.Context, tx *sql.Tx, data seedData, versions map[string]int64) error {
	content, err := json.Marshal(map[string]any{
		"type": "doc",
		"content": []any{
			map[string]any{"type": "layoutBlock", "attrs": map[string]any{
				"layoutId": 1,
				"columnData": []any{
					map[string]any{"key": "main", "content": []any{}},
				},
			}},
			map[string]any{"type": "blueprintBlock", "attrs": map[string]any{
				"blueprintVersionId": versions["hero-section"],
				"data":               map[string]any{"title": "Welcome", "subtitle": "Build pages from blocks"},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("seed encode template content: %w", err)
	}

	var templateID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO templates (name, handle, description, content, structure_version)
		VALUES ($1, $2, $3, $4, 1) RETURNING id
	`, data.Template.Name, data.Template.Handle, data.Template.Description, content).Scan(&templateID); err != nil {
		return fmt.Errorf("seed insert template: %w", err)
	}

	section := func(parentID *int64, key, typ string, order int, settings string) (int64, error) {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO template_sections (template_id, parent_id, key, type, sort_order, settings)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
		`, templateID, parentID, key, typ, order, settings).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("seed insert section %s: %w", key, err)
		}
		return id, nil
	}

	heroID, err := section(nil, "hero", "layout_section", 0,
		`{"xs":{"width":"full","padding":"large"},"lg":{"width":"full","padding":"xxlarge"}}`)
	if err != nil {
		return err
	}
	mainID, err := section(&heroID, "main", "content_section", 0, `{"md":{"columns":1}}`)
	if err != nil {
		return err
	}
	bodyID, err := section(nil, "body", "content_section", 1, `{"md":{"width":"container"}}`)
	if err != nil {
		return err
	}

	components := []struct {
		sectionID int64
		typ, slug string
		blueprint string
		order     int
		data      string
		keys      any
	}{
		{mainID, "project-hero", "hero-main", "project-hero", 0, `{"title":"Welcome"}`, `{"image":"featured_image"}`},
		{bodyID, "text-block", "intro", "text-block", 0, `{"content":"<p>Start here.</p>"}`, nil},
		{bodyID, "contact-form", "contact", "contact-form", 1, `{"form_id":"contact"}`, nil},
	}
	for _, c := range components {
		versionID := versions[c.blueprint]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO template_components
				(template_section_id, blueprint_version_id, type, slug, sort_order, data, template_keys)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, c.sectionID, versionID, c.typ, c.slug, c.order, c.data, c.keys); err != nil {
			return fmt.Errorf("seed insert component %s: %w", c.slug, err)
		}
	}
	return nil
}
