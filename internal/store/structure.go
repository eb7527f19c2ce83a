// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"pagebuilder/internal/models"
)

// StructureStore persists template section trees as an adjacency list:
// template_sections rows point at their parent, template_components rows
// point at their section.
type StructureStore struct {
	db *sql.DB
}

// NewStructureStore creates a new StructureStore.
func NewStructureStore(db *sql.DB) *StructureStore {
	return &StructureStore{db: db}
}

// ReplaceOptions tunes a structure replace.
type ReplaceOptions struct {
	// ExpectedVersion, when set, must match the template's current
	// structure_version or the replace fails with ErrConcurrentModification.
	ExpectedVersion *int
	// UserID is recorded on the revision snapshot.
	UserID *int64
}

// Replace swaps the whole section tree of a template in one transaction and
// returns the persisted tree with its new ids and the new structure version.
// The returned tree is ordered the way Get would read it back.
// The template row is locked for the duration, so concurrent replaces of the
// same template run one after the other. Either the new tree is fully
// written or the old one is left untouched.
func (s *StructureStore) Replace(ctx context.Context, templateID int64, sections []models.SectionNode, opts ReplaceOptions) ([]models.SectionNode, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT structure_version FROM templates
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, templateID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("replace structure of template %d: %w", templateID, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("lock template: %w", err)
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != current {
		return nil, 0, fmt.Errorf("replace structure of template %d: have version %d, expected %d: %w",
			templateID, current, *opts.ExpectedVersion, ErrConcurrentModification)
	}

	// Components and nested sections go with their sections (ON DELETE CASCADE).
	if _, err := tx.ExecContext(ctx, `DELETE FROM template_sections WHERE template_id = $1`, templateID); err != nil {
		return nil, 0, fmt.Errorf("delete sections: %w", err)
	}

	persisted := make([]models.SectionNode, len(sections))
	for i := range sections {
		node, err := insertSection(ctx, tx, templateID, nil, sections[i])
		if err != nil {
			return nil, 0, err
		}
		persisted[i] = node
	}
	models.SortSections(persisted)

	var version int
	if err := tx.QueryRowContext(ctx, `
		UPDATE templates SET structure_version = structure_version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING structure_version
	`, templateID).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("bump structure version: %w", err)
	}

	snapshot, err := jsonValue(persisted)
	if err != nil {
		return nil, 0, err
	}
	if snapshot == nil {
		snapshot = []byte("[]")
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO template_revisions (template_id, structure_version, sections, created_by)
		VALUES ($1, $2, $3, $4)
	`, templateID, version, snapshot, opts.UserID); err != nil {
		return nil, 0, fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit structure: %w", err)
	}

	slog.Debug("template structure replaced",
		"template_id", templateID,
		"version", version,
		"sections", models.CountSections(persisted),
	)
	return persisted, version, nil
}

// insertSection writes s and everything below it. Siblings keep their
// submitted order so ties on sort_order resolve by id.
func insertSection(ctx context.Context, q querier, templateID int64, parentID *int64, s models.SectionNode) (models.SectionNode, error) {
	settings, err := jsonValue(s.Settings)
	if err != nil {
		return s, err
	}

	var key any
	if s.Key != "" {
		key = s.Key
	}

	out := s
	if err := q.QueryRowContext(ctx, `
		INSERT INTO template_sections (template_id, parent_id, key, type, sort_order, settings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, templateID, parentID, key, s.Type, s.Order, settings).Scan(&out.ID); err != nil {
		return s, fmt.Errorf("insert section %q: %w", s.Key, err)
	}

	out.Components = nil
	if len(s.Components) > 0 {
		out.Components = make([]models.ComponentNode, len(s.Components))
	}
	for i, c := range s.Components {
		if out.Components[i], err = insertComponent(ctx, q, out.ID, c); err != nil {
			return s, err
		}
	}

	out.Children = nil
	if len(s.Children) > 0 {
		out.Children = make([]models.SectionNode, len(s.Children))
	}
	for i, child := range s.Children {
		if out.Children[i], err = insertSection(ctx, q, templateID, &out.ID, child); err != nil {
			return s, err
		}
	}
	return out, nil
}

func insertComponent(ctx context.Context, q querier, sectionID int64, c models.ComponentNode) (models.ComponentNode, error) {
	data, err := jsonValue(c.Data)
	if err != nil {
		return c, err
	}
	keys, err := jsonValue(c.TemplateKeys)
	if err != nil {
		return c, err
	}

	out := c
	err = q.QueryRowContext(ctx, `
		INSERT INTO template_components
			(template_section_id, blueprint_version_id, type, slug, sort_order, data, template_keys)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, sectionID, c.BlueprintVersionID, c.Type, c.Slug, c.Order, data, keys).Scan(&out.ID)
	if pgCode(err) == pgForeignKeyViolation {
		return c, fmt.Errorf("insert component %q: blueprint version %v: %w", c.Type, derefID(c.BlueprintVersionID), ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("insert component %q: %w", c.Type, err)
	}
	return out, nil
}

func derefID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// Get rebuilds the nested section tree of a live template, ordered by
// sort_order (then id) at every level. Returns nil if the template does not
// exist.
func (s *StructureStore) Get(ctx context.Context, templateID int64) (*models.TemplateStructure, error) {
	// Repeatable read gives the three queries one snapshot, so a concurrent
	// replace is seen either entirely or not at all.
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := &models.TemplateStructure{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, handle, name, structure_version FROM templates
		WHERE id = $1 AND deleted_at IS NULL
	`, templateID).Scan(&ts.ID, &ts.Handle, &ts.Name, &ts.StructureVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template structure: %w", err)
	}

	components, err := loadComponents(ctx, tx, templateID)
	if err != nil {
		return nil, err
	}
	byParent, err := loadSections(ctx, tx, templateID, components)
	if err != nil {
		return nil, err
	}

	ts.Sections = assemble(byParent, 0)
	if ts.Sections == nil {
		ts.Sections = []models.SectionNode{}
	}
	return ts, tx.Commit()
}

// loadComponents returns every component of the template grouped by section id.
func loadComponents(ctx context.Context, q querier, templateID int64) (map[int64][]models.ComponentNode, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.template_section_id, c.blueprint_version_id, c.type, c.slug,
			c.sort_order, c.data, c.template_keys
		FROM template_components c
		JOIN template_sections s ON s.id = c.template_section_id
		WHERE s.template_id = $1
		ORDER BY c.template_section_id, c.sort_order, c.id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.ComponentNode)
	for rows.Next() {
		var (
			c         models.ComponentNode
			sectionID int64
			data      []byte
			keys      []byte
		)
		if err := rows.Scan(&c.ID, &sectionID, &c.BlueprintVersionID, &c.Type, &c.Slug,
			&c.Order, &data, &keys); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		if err := decodeJSON(data, &c.Data); err != nil {
			return nil, err
		}
		if err := decodeJSON(keys, &c.TemplateKeys); err != nil {
			return nil, err
		}
		out[sectionID] = append(out[sectionID], c)
	}
	return out, rows.Err()
}

// loadSections returns every section of the template grouped by parent id,
// with components attached. Root sections are keyed by 0.
func loadSections(ctx context.Context, q querier, templateID int64, components map[int64][]models.ComponentNode) (map[int64][]models.SectionNode, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, parent_id, key, type, sort_order, settings
		FROM template_sections
		WHERE template_id = $1
		ORDER BY sort_order, id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.SectionNode)
	for rows.Next() {
		var (
			n        models.SectionNode
			parentID sql.NullInt64
			key      sql.NullString
			settings []byte
		)
		if err := rows.Scan(&n.ID, &parentID, &key, &n.Type, &n.Order, &settings); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		n.Key = key.String
		if err := decodeJSON(settings, &n.Settings); err != nil {
			return nil, err
		}
		n.Components = components[n.ID]
		out[parentID.Int64] = append(out[parentID.Int64], n)
	}
	return out, rows.Err()
}

// assemble links the children of parent recursively. Sibling order is the
// query order.
func assemble(byParent map[int64][]models.SectionNode, parent int64) []models.SectionNode {
	nodes := byParent[parent]
	for i := range nodes {
		nodes[i].Children = assemble(byParent, nodes[i].ID)
	}
	return nodes
}
