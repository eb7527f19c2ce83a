// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine is the page-builder core used by the HTTP handlers and the
// CLI. It ties the registry, the structural validator, the tree store and
// the compiler together: trees are validated in full before any write,
// published templates are compiled from their editor document, and cached
// copies are dropped whenever the underlying rows change.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"pagebuilder/internal/compiler"
	"pagebuilder/internal/models"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/slug"
	"pagebuilder/internal/store"
	"pagebuilder/internal/validate"
)

// maxNameLength matches the VARCHAR(255) name columns.
const maxNameLength = 255

// maxHandleAttempts bounds the "-2", "-3", ... suffixes tried when a handle
// derived from a name is already taken.
const maxHandleAttempts = 20

// TemplateRepository persists template metadata.
type TemplateRepository interface {
	Create(ctx context.Context, t *models.Template) (*models.Template, error)
	FindByID(ctx context.Context, id int64) (*models.Template, error)
	FindByHandle(ctx context.Context, handle string) (*models.Template, error)
	List(ctx context.Context, status models.TemplateStatus) ([]models.Template, error)
	Update(ctx context.Context, t *models.Template) (*models.Template, error)
	SetStatus(ctx context.Context, id int64, status models.TemplateStatus) error
	SavePublished(ctx context.Context, id int64, blocks []models.CompiledBlock, at time.Time) error
	SoftDelete(ctx context.Context, id int64) error
}

// StructureRepository persists section trees.
type StructureRepository interface {
	Replace(ctx context.Context, templateID int64, sections []models.SectionNode, opts store.ReplaceOptions) ([]models.SectionNode, int, error)
	Get(ctx context.Context, templateID int64) (*models.TemplateStructure, error)
}

// RevisionRepository reads the structure snapshots written by Replace.
type RevisionRepository interface {
	ListByTemplate(ctx context.Context, templateID int64) ([]models.TemplateRevision, error)
	Find(ctx context.Context, templateID int64, version int) (*models.TemplateRevision, error)
}

// BlueprintRepository persists blueprints and their versions.
type BlueprintRepository interface {
	Create(ctx context.Context, b *models.Blueprint) (*models.Blueprint, error)
	FindByID(ctx context.Context, id int64) (*models.Blueprint, error)
	List(ctx context.Context) ([]models.Blueprint, error)
	UpdateSchema(ctx context.Context, id int64, schema models.BlueprintSchema) error
	CreateVersion(ctx context.Context, blueprintID int64) (*models.BlueprintVersion, error)
	FindVersion(ctx context.Context, id int64) (*models.BlueprintVersion, error)
	ListVersions(ctx context.Context, blueprintID int64) ([]models.BlueprintVersion, error)
	DeleteVersion(ctx context.Context, id int64) error
}

// Cache holds serialized structures and published blocks. Implementations
// must treat every failure as a miss.
type Cache interface {
	Structure(ctx context.Context, templateID int64) (*models.TemplateStructure, bool)
	SetStructure(ctx context.Context, ts *models.TemplateStructure)
	Published(ctx context.Context, handle string) ([]models.CompiledBlock, bool)
	SetPublished(ctx context.Context, handle string, blocks []models.CompiledBlock)
	InvalidateTemplate(ctx context.Context, templateID int64, handle string)
	InvalidateAll(ctx context.Context)
}

// SnapshotStore uploads published snapshots to object storage.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, handle string, version int, body []byte) (string, error)
}

// InvalidationLog records cache invalidations for auditing.
type InvalidationLog interface {
	Log(ctx context.Context, entityType string, entityID int64, action string)
}

// Stores groups the repositories the engine needs.
type Stores struct {
	Templates  TemplateRepository
	Structures StructureRepository
	Revisions  RevisionRepository
	Blueprints BlueprintRepository
}

// InputError reports a malformed request field that is not part of the
// section tree.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationFailedError is returned when a submitted tree does not pass the
// structural validator. Nothing was written.
type ValidationFailedError struct {
	Result *validate.Result
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("section tree has %d validation errors", len(e.Result.Errors))
}

// Engine orchestrates the page-builder operations. It is safe for
// concurrent use once configured.
//
// The cache, snapshot store and invalidation log are optional and are
// configured with SetCache, SetSnapshots and SetInvalidationLog after New.
type Engine struct {
	templates  TemplateRepository
	structures StructureRepository
	revisions  RevisionRepository
	blueprints BlueprintRepository

	registry  *registry.Registry
	versions  *versionCache
	validator *validate.Validator

	cache     Cache
	snapshots SnapshotStore
	log       InvalidationLog

	now func() time.Time
}

// New creates an Engine over the given registry and stores.
func New(reg *registry.Registry, s Stores) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("engine: registry is required")
	}
	versions, err := newVersionCache(DefaultVersionCacheSize, s.Blueprints.FindVersion)
	if err != nil {
		return nil, err
	}
	return &Engine{
		templates:  s.Templates,
		structures: s.Structures,
		revisions:  s.Revisions,
		blueprints: s.Blueprints,
		registry:   reg,
		versions:   versions,
		validator:  validate.New(reg, versions),
		now:        time.Now,
	}, nil
}

// SetCache enables the structure and published-blocks cache.
func (e *Engine) SetCache(c Cache) {
	e.cache = c
}

// SetSnapshots enables uploading a JSON snapshot on every publish.
func (e *Engine) SetSnapshots(s SnapshotStore) {
	e.snapshots = s
}

// SetInvalidationLog enables recording cache invalidations.
func (e *Engine) SetInvalidationLog(l InvalidationLog) {
	e.log = l
}

// Registry returns the schema registry the engine validates against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

func (e *Engine) invalidate(ctx context.Context, templateID int64, action string, handles ...string) {
	if e.cache != nil {
		for _, h := range handles {
			e.cache.InvalidateTemplate(ctx, templateID, h)
		}
		if len(handles) == 0 {
			e.cache.InvalidateTemplate(ctx, templateID, "")
		}
	}
	if e.log != nil {
		e.log.Log(ctx, "template", templateID, action)
	}
}

// --- Templates ---

// TemplateInput carries the editable fields of a template.
type TemplateInput struct {
	Name        string
	Handle      string
	Description *string
	// Content is the editor document. Nil keeps the current document on
	// update.
	Content json.RawMessage
}

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &InputError{Field: "name", Message: "is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", &InputError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
	}
	return name, nil
}

func checkHandle(handle string) error {
	if !slug.Valid(handle) {
		return &InputError{Field: "handle", Message: "must be URL-safe: letters, digits, single hyphens or underscores"}
	}
	return nil
}

func checkContent(content json.RawMessage) error {
	if len(content) == 0 {
		return nil
	}
	if _, err := compiler.CompileJSON(content); err != nil {
		return &InputError{Field: "content", Message: "must be an editor document"}
	}
	return nil
}

// CreateTemplate creates a draft template. An empty handle is derived from
// the name; if the derived handle is taken a numeric suffix is appended. An
// explicit handle that is taken fails with store.ErrDuplicateHandle.
func (e *Engine) CreateTemplate(ctx context.Context, in TemplateInput) (*models.Template, error) {
	name, err := checkName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkContent(in.Content); err != nil {
		return nil, err
	}

	t := &models.Template{
		Name:        name,
		Description: in.Description,
		Status:      models.TemplateStatusDraft,
		Content:     in.Content,
	}

	if in.Handle != "" {
		if err := checkHandle(in.Handle); err != nil {
			return nil, err
		}
		t.Handle = in.Handle
		return e.templates.Create(ctx, t)
	}

	base := slug.Generate(name)
	if base == "" {
		return nil, &InputError{Field: "handle", Message: "cannot be derived from the name; provide one"}
	}
	for n := 1; n <= maxHandleAttempts; n++ {
		t.Handle = slug.WithSuffix(base, n)
		created, err := e.templates.Create(ctx, t)
		if errors.Is(err, store.ErrDuplicateHandle) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("template created", "template_id", created.ID, "handle", created.Handle)
		return created, nil
	}
	return nil, fmt.Errorf("create template %q: no free handle after %d attempts: %w",
		base, maxHandleAttempts, store.ErrDuplicateHandle)
}

// Template returns a live template.
func (e *Engine) Template(ctx context.Context, id int64) (*models.Template, error) {
	t, err := e.templates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("template %d: %w", id, store.ErrNotFound)
	}
	return t, nil
}

// Templates lists live templates, optionally filtered by status.
func (e *Engine) Templates(ctx context.Context, status models.TemplateStatus) ([]models.Template, error) {
	if status != "" && !status.Valid() {
		return nil, &InputError{Field: "status", Message: fmt.Sprintf("must be draft, published or archived, got %q", status)}
	}
	return e.templates.List(ctx, status)
}

// UpdateTemplate changes a template's metadata and editor document. An
// empty handle keeps the current one.
func (e *Engine) UpdateTemplate(ctx context.Context, id int64, in TemplateInput) (*models.Template, error) {
	current, err := e.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := checkName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkContent(in.Content); err != nil {
		return nil, err
	}

	next := *current
	next.Name = name
	next.Description = in.Description
	if in.Handle != "" && in.Handle != current.Handle {
		if err := checkHandle(in.Handle); err != nil {
			return nil, err
		}
		next.Handle = in.Handle
	}
	if in.Content != nil {
		next.Content = in.Content
	}

	updated, err := e.templates.Update(ctx, &next)
	if err != nil {
		return nil, err
	}
	handles := []string{current.Handle}
	if updated.Handle != current.Handle {
		handles = append(handles, updated.Handle)
	}
	e.invalidate(ctx, id, "update", handles...)
	return updated, nil
}

// SetStatus moves a template to draft or archived. Publishing goes through
// Publish so the compiled output is refreshed.
func (e *Engine) SetStatus(ctx context.Context, id int64, status models.TemplateStatus) (*models.Template, error) {
	if !status.Valid() {
		return nil, &InputError{Field: "status", Message: fmt.Sprintf("must be draft, published or archived, got %q", status)}
	}
	if status == models.TemplateStatusPublished {
		return nil, &InputError{Field: "status", Message: "cannot be set to published directly; use the publish action"}
	}
	t, err := e.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.templates.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	e.invalidate(ctx, id, "status", t.Handle)
	t.Status = status
	return t, nil
}

// DeleteTemplate tombstones a template.
func (e *Engine) DeleteTemplate(ctx context.Context, id int64) error {
	t, err := e.Template(ctx, id)
	if err != nil {
		return err
	}
	if err := e.templates.SoftDelete(ctx, id); err != nil {
		return err
	}
	e.invalidate(ctx, id, "delete", t.Handle)
	slog.Info("template deleted", "template_id", id, "handle", t.Handle)
	return nil
}

// --- Structure ---

// SaveStructureInput is a full replacement of a template's section tree.
type SaveStructureInput struct {
	Sections []models.SectionNode
	// ExpectedVersion, when set, turns a concurrent save into
	// store.ErrConcurrentModification instead of a silent overwrite.
	ExpectedVersion *int
	UserID          *int64
}

// ValidateStructure checks a tree without saving it.
func (e *Engine) ValidateStructure(ctx context.Context, id int64, sections []models.SectionNode) (*validate.Result, error) {
	if _, err := e.Template(ctx, id); err != nil {
		return nil, err
	}
	return e.validator.Validate(ctx, id, sections)
}

// SaveStructure validates a tree and, only if it is valid, replaces the
// template's stored tree with it.
func (e *Engine) SaveStructure(ctx context.Context, id int64, in SaveStructureInput) (*models.TemplateStructure, error) {
	t, err := e.Template(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := e.validator.Validate(ctx, id, in.Sections)
	if err != nil {
		return nil, fmt.Errorf("validate structure: %w", err)
	}
	if !res.Valid {
		return nil, &ValidationFailedError{Result: res}
	}

	persisted, version, err := e.structures.Replace(ctx, id, in.Sections, store.ReplaceOptions{
		ExpectedVersion: in.ExpectedVersion,
		UserID:          in.UserID,
	})
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		persisted = []models.SectionNode{}
	}
	// The cached copy is served by Structure, so it must already be in read order.
	models.SortSections(persisted)

	ts := &models.TemplateStructure{
		ID:               t.ID,
		Handle:           t.Handle,
		Name:             t.Name,
		StructureVersion: version,
		Sections:         persisted,
	}
	e.invalidate(ctx, id, "structure")
	if e.cache != nil {
		e.cache.SetStructure(ctx, ts)
	}
	return ts, nil
}

// Structure returns the nested section tree of a template.
func (e *Engine) Structure(ctx context.Context, id int64) (*models.TemplateStructure, error) {
	if e.cache != nil {
		if ts, ok := e.cache.Structure(ctx, id); ok {
			return ts, nil
		}
	}
	ts, err := e.structures.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, fmt.Errorf("structure of template %d: %w", id, store.ErrNotFound)
	}
	if e.cache != nil {
		e.cache.SetStructure(ctx, ts)
	}
	return ts, nil
}

// Revisions lists the stored structure snapshots of a template, newest first.
func (e *Engine) Revisions(ctx context.Context, id int64) ([]models.TemplateRevision, error) {
	if _, err := e.Template(ctx, id); err != nil {
		return nil, err
	}
	return e.revisions.ListByTemplate(ctx, id)
}

// Revision returns one structure snapshot including its tree.
func (e *Engine) Revision(ctx context.Context, id int64, version int) (*models.TemplateRevision, error) {
	r, err := e.revisions.Find(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("revision %d of template %d: %w", version, id, store.ErrNotFound)
	}
	return r, nil
}

// RestoreRevision saves an earlier snapshot as the current tree. The
// snapshot is validated again, so a tree bound to a since-deleted blueprint
// version is rejected.
func (e *Engine) RestoreRevision(ctx context.Context, id int64, version int, expected *int, userID *int64) (*models.TemplateStructure, error) {
	r, err := e.Revision(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return e.SaveStructure(ctx, id, SaveStructureInput{
		Sections:        r.Sections,
		ExpectedVersion: expected,
		UserID:          userID,
	})
}

// --- Compile & publish ---

// CompileDocument compiles an editor document that is not stored anywhere.
func (e *Engine) CompileDocument(doc []byte) ([]models.CompiledBlock, error) {
	blocks, err := compiler.CompileJSON(doc)
	if err != nil {
		return nil, &InputError{Field: "document", Message: "must be an editor document"}
	}
	return blocks, nil
}

// Compile previews the compiled output of a template's current document.
func (e *Engine) Compile(ctx context.Context, id int64) ([]models.CompiledBlock, error) {
	t, err := e.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	blocks, err := compiler.CompileJSON(t.Content)
	if err != nil {
		return nil, fmt.Errorf("compile template %d: %w", id, err)
	}
	return blocks, nil
}

// PublishResult describes a completed publish.
type PublishResult struct {
	TemplateID  int64                  `json:"template_id"`
	Handle      string                 `json:"handle"`
	PublishedAt time.Time              `json:"published_at"`
	Blocks      []models.CompiledBlock `json:"compiled"`
	SnapshotKey string                 `json:"snapshot_key,omitempty"`
}

// snapshot is the JSON document uploaded to object storage on publish.
type snapshot struct {
	Handle           string                 `json:"handle"`
	Name             string                 `json:"name"`
	StructureVersion int                    `json:"structure_version"`
	PublishedAt      time.Time              `json:"published_at"`
	Blocks           []models.CompiledBlock `json:"compiled"`
}

// Publish compiles a template's document, stores the compiled blocks and
// marks the template published. Uploading the snapshot is best-effort: a
// storage failure is logged and the publish still succeeds.
func (e *Engine) Publish(ctx context.Context, id int64) (*PublishResult, error) {
	t, err := e.Template(ctx, id)
	if err != nil {
		return nil, err
	}
	blocks, err := compiler.CompileJSON(t.Content)
	if err != nil {
		return nil, fmt.Errorf("compile template %d: %w", id, err)
	}

	at := e.now().UTC()
	if err := e.templates.SavePublished(ctx, id, blocks, at); err != nil {
		return nil, err
	}
	e.invalidate(ctx, id, "publish", t.Handle)
	if e.cache != nil {
		e.cache.SetPublished(ctx, t.Handle, blocks)
	}

	res := &PublishResult{TemplateID: id, Handle: t.Handle, PublishedAt: at, Blocks: blocks}
	if e.snapshots != nil {
		body, err := json.Marshal(snapshot{
			Handle:           t.Handle,
			Name:             t.Name,
			StructureVersion: t.StructureVersion,
			PublishedAt:      at,
			Blocks:           blocks,
		})
		if err == nil {
			res.SnapshotKey, err = e.snapshots.PutSnapshot(ctx, t.Handle, t.StructureVersion, body)
		}
		if err != nil {
			slog.Warn("publish snapshot upload failed", "template_id", id, "handle", t.Handle, "error", err)
		}
	}

	slog.Info("template published", "template_id", id, "handle", t.Handle, "blocks", len(blocks))
	return res, nil
}

// PublishedBlocks returns the compiled blocks of a published template.
func (e *Engine) PublishedBlocks(ctx context.Context, handle string) ([]models.CompiledBlock, error) {
	if e.cache != nil {
		if blocks, ok := e.cache.Published(ctx, handle); ok {
			return blocks, nil
		}
	}
	t, err := e.templates.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsPublished() {
		return nil, fmt.Errorf("published template %q: %w", handle, store.ErrNotFound)
	}
	blocks := t.Compiled
	if blocks == nil {
		blocks = []models.CompiledBlock{}
	}
	if e.cache != nil {
		e.cache.SetPublished(ctx, handle, blocks)
	}
	return blocks, nil
}
