// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compiler flattens editor documents into compiled blocks that the
// external renderer consumes. Compilation is pure: no I/O, no registry
// lookups, and no schema re-validation.
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"pagebuilder/internal/models"
)

// Attribute keys read from editor blocks.
const (
	attrLayoutID           = "layoutId"
	attrBlueprintVersionID = "blueprintVersionId"
	attrCompositionID      = "compositionId"
	attrData               = "data"
)

// Compile converts the top-level blocks of doc into compiled blocks, in
// document order. Unknown block types are dropped.
//
// Layout blocks compile to a single entry; the blocks inside their columns
// are left to the renderer and are not compiled into entries of their own.
func Compile(doc models.EditorDocument) []models.CompiledBlock {
	out := make([]models.CompiledBlock, 0, len(doc.Content))
	for _, b := range doc.Content {
		switch b.Type {
		case models.BlockLayout:
			out = append(out, models.CompiledBlock{
				Type:     models.CompiledLayout,
				LayoutID: id(b.Attrs[attrLayoutID]),
			})
		case models.BlockBlueprint:
			out = append(out, models.CompiledBlock{
				Type:               models.CompiledBlueprint,
				BlueprintVersionID: id(b.Attrs[attrBlueprintVersionID]),
				Data:               b.Attrs[attrData],
			})
		case models.BlockComposition:
			out = append(out, models.CompiledBlock{
				Type:          models.CompiledComposition,
				CompositionID: id(b.Attrs[attrCompositionID]),
			})
		}
	}
	return out
}

// CompileJSON decodes an editor document and compiles it. An empty or null
// document compiles to no blocks. Only malformed JSON returns an error.
func CompileJSON(raw []byte) ([]models.CompiledBlock, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.CompiledBlock{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc models.EditorDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode editor document: %w", err)
	}
	return Compile(doc), nil
}

// id reads a numeric identifier from a decoded JSON attribute. Editors send
// ids as numbers or numeric strings; anything else yields nil.
func id(v any) *int64 {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return nil
		}
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = i
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}
