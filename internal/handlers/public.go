// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pagebuilder/internal/engine"
	"pagebuilder/internal/models"
	"pagebuilder/internal/slug"
)

// Public serves published templates to the rendering front end. The engine
// checks the Valkey cache before reading the compiled blocks from storage.
type Public struct {
	engine *engine.Engine
}

// NewPublic creates a new Public handler group.
func NewPublic(eng *engine.Engine) *Public {
	return &Public{engine: eng}
}

// publishedResponse is the payload a renderer consumes.
type publishedResponse struct {
	Handle   string                 `json:"handle"`
	Compiled []models.CompiledBlock `json:"compiled"`
}

// Published returns the compiled blocks of a published template by handle.
// Drafts, archived and deleted templates are reported as not found.
func (p *Public) Published(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	if !slug.Valid(handle) {
		writeMessage(w, http.StatusNotFound, "Not found.")
		return
	}
	blocks, err := p.engine.PublishedBlocks(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, publishedResponse{Handle: handle, Compiled: blocks})
}
