// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"unicode/utf8"

	"pagebuilder/internal/engine"
	"pagebuilder/internal/models"
)

// blueprintRequest is the body of blueprint create.
type blueprintRequest struct {
	Name     string                 `json:"name"`
	Handle   string                 `json:"handle"`
	Category string                 `json:"category"`
	Schema   models.BlueprintSchema `json:"schema"`
}

func checkBlueprintRequest(category string, schema models.BlueprintSchema) fieldErrors {
	errs := fieldErrors{}
	if utf8.RuneCountInString(category) > maxCategoryLen {
		errs.add("category", "The category may not be greater than 100 characters.")
	}
	if len(schema.Fields) > maxBlueprintFieldsLen {
		errs.add("schema.fields", "A schema may not have more than 100 fields.")
	}
	return errs
}

// BlueprintsList returns all blueprints.
func (b *Builder) BlueprintsList(w http.ResponseWriter, r *http.Request) {
	bps, err := b.engine.Blueprints(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bps)
}

// BlueprintCreate creates a blueprint with a working schema.
func (b *Builder) BlueprintCreate(w http.ResponseWriter, r *http.Request) {
	var req blueprintRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := checkBlueprintRequest(req.Category, req.Schema); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	bp, err := b.engine.CreateBlueprint(r.Context(), engine.BlueprintInput{
		Name:     req.Name,
		Handle:   req.Handle,
		Category: req.Category,
		Schema:   req.Schema,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bp)
}

// BlueprintShow returns one blueprint.
func (b *Builder) BlueprintShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	bp, err := b.engine.Blueprint(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

// BlueprintSchemaUpdate replaces a blueprint's working schema.
func (b *Builder) BlueprintSchemaUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var schema models.BlueprintSchema
	if !decode(w, r, &schema) {
		return
	}
	if errs := checkBlueprintRequest("", schema); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}
	bp, err := b.engine.UpdateBlueprintSchema(r.Context(), id, schema)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

// BlueprintVersionsList returns the versions of a blueprint.
func (b *Builder) BlueprintVersionsList(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	versions, err := b.engine.BlueprintVersions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// BlueprintVersionCreate freezes the working schema into a new version.
func (b *Builder) BlueprintVersionCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	v, err := b.engine.CreateBlueprintVersion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// BlueprintVersionShow returns one version by its id.
func (b *Builder) BlueprintVersionShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	v, err := b.engine.BlueprintVersion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// BlueprintVersionDelete removes a version. Components bound to it lose the
// reference.
func (b *Builder) BlueprintVersionDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := b.engine.DeleteBlueprintVersion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
