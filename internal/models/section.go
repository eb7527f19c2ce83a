// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"cmp"
	"slices"
)

// Built-in section types. The registry may declare more.
const (
	SectionTypeLayout  = "layout_section"
	SectionTypeContent = "content_section"
)

// Settings holds responsive layout configuration keyed by breakpoint name
// (xs, sm, md, lg, xl), each mapping to arbitrary layout properties.
type Settings map[string]any

// SectionNode is one node of a template's section tree. The same shape is
// accepted from authoring clients and returned by the structure endpoint;
// IDs are assigned by the server and ignored on input.
type SectionNode struct {
	ID         int64           `json:"id,omitempty"`
	Key        string          `json:"key"`
	Type       string          `json:"type"`
	Order      int             `json:"order"`
	Settings   Settings        `json:"settings,omitempty"`
	Components []ComponentNode `json:"components"`
	Children   []SectionNode   `json:"children"`
}

// CountSections returns the number of sections in the forest rooted at
// sections, including every descendant.
func CountSections(sections []SectionNode) int {
	n := 0
	for i := range sections {
		n += 1 + CountSections(sections[i].Children)
	}
	return n
}

// SortSections orders sections and their components by Order at every
// level, in place. The sort is stable: equal orders keep their submitted
// position, which is also id order for a freshly persisted tree.
func SortSections(sections []SectionNode) {
	slices.SortStableFunc(sections, func(a, b SectionNode) int { return cmp.Compare(a.Order, b.Order) })
	for i := range sections {
		slices.SortStableFunc(sections[i].Components, func(a, b ComponentNode) int { return cmp.Compare(a.Order, b.Order) })
		SortSections(sections[i].Children)
	}
}

// ComponentNode is a leaf content unit inside a section.
//
// Data holds literal values. TemplateKeys maps a component field to a
// page-level data key, meaning the field is resolved at render time instead
// of being stored literally. BlueprintVersionID binds the component to a
// frozen schema; it is nil for unbound components or after the bound version
// was deleted.
type ComponentNode struct {
	ID                 int64             `json:"id,omitempty"`
	Type               string            `json:"type"`
	Slug               *string           `json:"slug,omitempty"`
	Order              int               `json:"order"`
	Data               map[string]any    `json:"data,omitempty"`
	TemplateKeys       map[string]string `json:"template_keys,omitempty"`
	BlueprintVersionID *int64            `json:"blueprint_version_id"`
}

// FieldKind distinguishes literal field values from page-data references.
type FieldKind int

const (
	FieldLiteral FieldKind = iota
	FieldReference
)

// FieldValue is the resolved value of one component field: either a literal
// from Data or a reference to a page-level data key from TemplateKeys.
type FieldValue struct {
	Kind    FieldKind
	Literal any
	Key     string
}

// IsReference reports whether the value is bound to page-level data.
func (v FieldValue) IsReference() bool {
	return v.Kind == FieldReference
}

// Field resolves a component field. A template_keys binding wins over a
// literal; a literal must be non-nil to count. ok is false when the field is
// neither bound nor set.
func (c *ComponentNode) Field(name string) (FieldValue, bool) {
	if key, bound := c.TemplateKeys[name]; bound {
		return FieldValue{Kind: FieldReference, Key: key}, true
	}
	if v, set := c.Data[name]; set && v != nil {
		return FieldValue{Kind: FieldLiteral, Literal: v}, true
	}
	return FieldValue{}, false
}

// Fields resolves every field the component declares through either map.
func (c *ComponentNode) Fields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(c.Data)+len(c.TemplateKeys))
	for name := range c.Data {
		if v, ok := c.Field(name); ok {
			out[name] = v
		}
	}
	for name := range c.TemplateKeys {
		v, _ := c.Field(name)
		out[name] = v
	}
	return out
}
