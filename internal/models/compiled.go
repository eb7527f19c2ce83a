// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Editor block types understood by the compiler.
const (
	BlockLayout      = "layoutBlock"
	BlockBlueprint   = "blueprintBlock"
	BlockComposition = "compositionBlock"
)

// Compiled block types.
const (
	CompiledLayout      = "layout"
	CompiledBlueprint   = "blueprint"
	CompiledComposition = "composition"
)

// EditorDocument is the rich nested document produced by the editor:
// {"type": "doc", "content": [...blocks]}.
type EditorDocument struct {
	Type    string        `json:"type"`
	Content []EditorBlock `json:"content"`
}

// EditorBlock is one typed block of an editor document. Layout blocks carry
// their column contents inside Attrs["columnData"].
type EditorBlock struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []EditorBlock  `json:"content,omitempty"`
}

// CompiledBlock is the flat, render-ready form of an editor block. Only the
// fields relevant to Type are set. Data is whatever the editor sent, object
// or not.
type CompiledBlock struct {
	Type               string `json:"type"`
	LayoutID           *int64 `json:"layoutId,omitempty"`
	BlueprintVersionID *int64 `json:"blueprintVersionId,omitempty"`
	Data               any    `json:"data,omitempty"`
	CompositionID      *int64 `json:"compositionId,omitempty"`
}
