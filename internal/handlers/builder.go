// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"

	"pagebuilder/internal/engine"
	"pagebuilder/internal/markdown"
	"pagebuilder/internal/models"
	"pagebuilder/internal/registry"
)

// Builder groups the page-builder endpoints: templates, their section
// trees and revisions, compilation, publishing and the type registry.
type Builder struct {
	engine *engine.Engine
}

// NewBuilder creates the page-builder handler group.
func NewBuilder(eng *engine.Engine) *Builder {
	return &Builder{engine: eng}
}

// templateRequest is the body of template create and update.
type templateRequest struct {
	Name        string          `json:"name"`
	Handle      string          `json:"handle"`
	Description *string         `json:"description"`
	Content     json.RawMessage `json:"content"`
}

// input converts the request into engine input. Descriptions are stored as
// plain text.
func (req templateRequest) input() (engine.TemplateInput, string) {
	in := engine.TemplateInput{Name: req.Name, Handle: req.Handle, Content: req.Content}
	if req.Description != nil {
		desc := markdown.StripTags(*req.Description)
		if msg := validateTemplateDescription(desc); msg != "" {
			return in, msg
		}
		in.Description = &desc
	}
	if string(in.Content) == "null" {
		in.Content = nil
	}
	return in, ""
}

// --- Templates ---

// TemplatesList returns live templates, optionally filtered by ?status=.
func (b *Builder) TemplatesList(w http.ResponseWriter, r *http.Request) {
	status := models.TemplateStatus(r.URL.Query().Get("status"))
	templates, err := b.engine.Templates(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// TemplateCreate creates a draft template.
func (b *Builder) TemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	in, msg := req.input()
	if msg != "" {
		writeFieldErrors(w, fieldErrors{"description": {msg}})
		return
	}
	t, err := b.engine.CreateTemplate(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// TemplateShow returns one template.
func (b *Builder) TemplateShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := b.engine.Template(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateUpdate changes a template's metadata and document.
func (b *Builder) TemplateUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	in, msg := req.input()
	if msg != "" {
		writeFieldErrors(w, fieldErrors{"description": {msg}})
		return
	}
	t, err := b.engine.UpdateTemplate(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateSetStatus moves a template to draft or archived.
func (b *Builder) TemplateSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.TemplateStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	t, err := b.engine.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// TemplateDelete tombstones a template.
func (b *Builder) TemplateDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := b.engine.DeleteTemplate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Structure ---

// structureRequest is the body of structure validate and save.
type structureRequest struct {
	Sections        []models.SectionNode `json:"sections"`
	ExpectedVersion *int                 `json:"expected_version"`
}

func (b *Builder) decodeStructure(w http.ResponseWriter, r *http.Request) (structureRequest, bool) {
	var req structureRequest
	if !decode(w, r, &req) {
		return req, false
	}
	if req.Sections == nil {
		writeFieldErrors(w, fieldErrors{"sections": {"The sections field is required."}})
		return req, false
	}
	return req, true
}

// StructureShow returns a template's nested section tree.
func (b *Builder) StructureShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ts, err := b.engine.Structure(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// StructureValidate checks a tree without saving it. The response is the
// full validation result whether or not the tree is valid.
func (b *Builder) StructureValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := b.decodeStructure(w, r)
	if !ok {
		return
	}
	res, err := b.engine.ValidateStructure(r.Context(), id, req.Sections)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StructureSave validates and replaces a template's section tree.
func (b *Builder) StructureSave(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	who, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := b.decodeStructure(w, r)
	if !ok {
		return
	}
	ts, err := b.engine.SaveStructure(r.Context(), id, engine.SaveStructureInput{
		Sections:        req.Sections,
		ExpectedVersion: req.ExpectedVersion,
		UserID:          &who.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// --- Revisions ---

// RevisionsList returns the stored snapshots of a template's tree.
func (b *Builder) RevisionsList(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	revs, err := b.engine.Revisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

// RevisionShow returns one snapshot including its tree.
func (b *Builder) RevisionShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	version, ok := intParam(w, r, "version")
	if !ok {
		return
	}
	rev, err := b.engine.Revision(r.Context(), id, version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// RevisionRestore saves a snapshot as the current tree. The body is
// optional and may carry expected_version.
func (b *Builder) RevisionRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	version, ok := intParam(w, r, "version")
	if !ok {
		return
	}
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ExpectedVersion *int `json:"expected_version"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}
	ts, err := b.engine.RestoreRevision(r.Context(), id, version, req.ExpectedVersion, &who.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// --- Compile & publish ---

// TemplateCompile previews the compiled form of a template's document.
func (b *Builder) TemplateCompile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	blocks, err := b.engine.Compile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template_id": id, "compiled": blocks})
}

// CompileDocument compiles an editor document posted as {"document": ...}.
func (b *Builder) CompileDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document json.RawMessage `json:"document"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Document) == 0 || string(req.Document) == "null" {
		writeFieldErrors(w, fieldErrors{"document": {"The document field is required."}})
		return
	}
	blocks, err := b.engine.CompileDocument(req.Document)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"compiled": blocks})
}

// TemplatePublish compiles and publishes a template.
func (b *Builder) TemplatePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := b.engine.Publish(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Registry ---

// registryResponse describes every known component and section type, and
// the breakpoints and presets section settings are built from.
type registryResponse struct {
	Limits      registry.Limits          `json:"limits"`
	Components  []registry.ComponentType `json:"components"`
	Sections    []registry.SectionType   `json:"sections"`
	Breakpoints []registry.Breakpoint    `json:"breakpoints"`
	Presets     []registry.LayoutPreset  `json:"presets"`
}

// Registry returns the full type registry.
func (b *Builder) Registry(w http.ResponseWriter, r *http.Request) {
	reg := b.engine.Registry()
	writeJSON(w, http.StatusOK, registryResponse{
		Limits:      reg.Limits(),
		Components:  reg.ComponentTypes(),
		Sections:    reg.SectionTypes(),
		Breakpoints: reg.Breakpoints(),
		Presets:     reg.Presets(),
	})
}

// ComponentTypes returns the registered component types.
func (b *Builder) ComponentTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.engine.Registry().ComponentTypes())
}

// SectionTypes returns the registered section types.
func (b *Builder) SectionTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.engine.Registry().SectionTypes())
}
