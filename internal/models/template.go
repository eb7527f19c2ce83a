// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"
)

// TemplateStatus is the lifecycle state of a page-builder template.
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "draft"
	TemplateStatusPublished TemplateStatus = "published"
	TemplateStatusArchived  TemplateStatus = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s TemplateStatus) Valid() bool {
	switch s {
	case TemplateStatusDraft, TemplateStatusPublished, TemplateStatusArchived:
		return true
	}
	return false
}

// Template is the top-level authored document. It owns an ordered tree of
// sections (see SectionNode) and, separately, the editor document that the
// compiler flattens on publish.
//
// Templates are soft-deleted: DeletedAt is set instead of removing the row,
// so the handle stays reserved.
type Template struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Handle           string          `json:"handle"`
	Description      *string         `json:"description,omitempty"`
	Status           TemplateStatus  `json:"status"`
	Content          json.RawMessage `json:"content,omitempty"`
	Compiled         []CompiledBlock `json:"compiled,omitempty"`
	StructureVersion int             `json:"structure_version"`
	PublishedAt      *time.Time      `json:"published_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// IsPublished returns true if the template is in published status.
func (t *Template) IsPublished() bool {
	return t.Status == TemplateStatusPublished
}

// IsDeleted returns true if the template has been tombstoned.
func (t *Template) IsDeleted() bool {
	return t.DeletedAt != nil
}

// TemplateStructure is the transport shape returned for a template's tree.
type TemplateStructure struct {
	ID               int64         `json:"id"`
	Handle           string        `json:"handle"`
	Name             string        `json:"name"`
	StructureVersion int           `json:"structure_version"`
	Sections         []SectionNode `json:"sections"`
}

// TemplateRevision is the snapshot of a section tree taken each time a
// template's structure is replaced.
type TemplateRevision struct {
	ID               int64         `json:"id"`
	TemplateID       int64         `json:"template_id"`
	StructureVersion int           `json:"structure_version"`
	Sections         []SectionNode `json:"sections,omitempty"`
	CreatedBy        *int64        `json:"created_by,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}
