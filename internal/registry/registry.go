// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package registry holds the catalog of component types and section types
// the page builder understands, the responsive breakpoints and layout
// presets for section settings, and the structural limits applied to every
// template. A Registry is built once at startup and is read-only
// afterwards, so it is safe to share between goroutines without locking.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// ErrSchemaNotFound is returned when a component or section type is not
// registered.
var ErrSchemaNotFound = errors.New("schema not found")

// Default structural limits.
const (
	DefaultMaxDepth                = 10
	DefaultMaxComponentsPerSection = 50
	DefaultMaxSectionsPerTemplate  = 100
)

// Field is one entry of a component type's data schema.
type Field struct {
	Name     string `koanf:"name" json:"name" yaml:"name"`
	Type     string `koanf:"type" json:"type" yaml:"type"`
	Required bool   `koanf:"required" json:"required" yaml:"required"`
}

// ComponentType declares a component identifier and the data it expects.
type ComponentType struct {
	Type          string  `koanf:"type" json:"type" yaml:"type"`
	Label         string  `koanf:"label" json:"label" yaml:"label"`
	Category      string  `koanf:"category" json:"category" yaml:"category"`
	Description   string  `koanf:"description" json:"description,omitempty" yaml:"description,omitempty"`
	BlueprintType string  `koanf:"blueprint_type" json:"blueprint_type,omitempty" yaml:"blueprint_type,omitempty"`
	Fields        []Field `koanf:"fields" json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IsLayout reports whether the component is a pure layout wrapper. Layout
// components carry no schema and are valid by construction.
func (c ComponentType) IsLayout() bool {
	return c.BlueprintType == "" && len(c.Fields) == 0
}

// SectionType declares how sections of a given type may nest.
type SectionType struct {
	Type            string `koanf:"type" json:"type" yaml:"type"`
	Label           string `koanf:"label" json:"label" yaml:"label"`
	Description     string `koanf:"description" json:"description,omitempty" yaml:"description,omitempty"`
	SupportsNesting bool   `koanf:"supports_nesting" json:"supports_nesting" yaml:"supports_nesting"`
	MaxDepth        int    `koanf:"max_depth" json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
}

// Breakpoint is a responsive breakpoint that section settings may be keyed
// by.
type Breakpoint struct {
	Name  string `koanf:"name" json:"name" yaml:"name"`
	Label string `koanf:"label" json:"label" yaml:"label"`
	Width string `koanf:"width" json:"width" yaml:"width"`
	Icon  string `koanf:"icon" json:"icon,omitempty" yaml:"icon,omitempty"`
}

// LayoutPreset is a named set of responsive section settings that editors
// can apply in one step. Settings are keyed by breakpoint name.
type LayoutPreset struct {
	Name        string                    `koanf:"name" json:"name" yaml:"name"`
	Label       string                    `koanf:"label" json:"label" yaml:"label"`
	Description string                    `koanf:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Settings    map[string]map[string]any `koanf:"settings" json:"settings" yaml:"settings"`
}

// Limits are the template-wide structural limits.
type Limits struct {
	MaxDepth                int `koanf:"max_depth" json:"max_depth" yaml:"max_depth"`
	MaxComponentsPerSection int `koanf:"max_components_per_section" json:"max_components_per_section" yaml:"max_components_per_section"`
	MaxSectionsPerTemplate  int `koanf:"max_sections_per_template" json:"max_sections_per_template" yaml:"max_sections_per_template"`
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:                DefaultMaxDepth,
		MaxComponentsPerSection: DefaultMaxComponentsPerSection,
		MaxSectionsPerTemplate:  DefaultMaxSectionsPerTemplate,
	}
}

// withDefaults fills zero limits with the stock values.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxComponentsPerSection <= 0 {
		l.MaxComponentsPerSection = d.MaxComponentsPerSection
	}
	if l.MaxSectionsPerTemplate <= 0 {
		l.MaxSectionsPerTemplate = d.MaxSectionsPerTemplate
	}
	return l
}

// Registry is the immutable catalog. Create one with a Builder.
type Registry struct {
	components  map[string]ComponentType
	sections    map[string]SectionType
	breakpoints []Breakpoint
	presets     map[string]LayoutPreset
	limits      Limits
}

// ComponentSchema returns the declared schema for a component type.
func (r *Registry) ComponentSchema(typ string) (ComponentType, error) {
	c, ok := r.components[typ]
	if !ok {
		return ComponentType{}, fmt.Errorf("component type %q: %w", typ, ErrSchemaNotFound)
	}
	return c, nil
}

// SectionType returns the nesting rules for a section type.
func (r *Registry) SectionType(typ string) (SectionType, error) {
	s, ok := r.sections[typ]
	if !ok {
		return SectionType{}, fmt.Errorf("section type %q: %w", typ, ErrSchemaNotFound)
	}
	return s, nil
}

// Limits returns the structural limits.
func (r *Registry) Limits() Limits {
	return r.limits
}

// Breakpoints lists the declared breakpoints, smallest first as declared.
func (r *Registry) Breakpoints() []Breakpoint {
	return slices.Clone(r.breakpoints)
}

// HasBreakpoint reports whether settings may use name as a key. A catalog
// that declares no breakpoints accepts any key.
func (r *Registry) HasBreakpoint(name string) bool {
	if len(r.breakpoints) == 0 {
		return true
	}
	return slices.ContainsFunc(r.breakpoints, func(b Breakpoint) bool { return b.Name == name })
}

// Preset returns a layout preset by name.
func (r *Registry) Preset(name string) (LayoutPreset, error) {
	p, ok := r.presets[name]
	if !ok {
		return LayoutPreset{}, fmt.Errorf("layout preset %q: %w", name, ErrSchemaNotFound)
	}
	return p, nil
}

// Presets lists every layout preset ordered by name.
func (r *Registry) Presets() []LayoutPreset {
	out := make([]LayoutPreset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ComponentTypes lists every component type ordered by category, then type.
func (r *Registry) ComponentTypes() []ComponentType {
	out := make([]ComponentType, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// SectionTypes lists every section type ordered by type.
func (r *Registry) SectionTypes() []SectionType {
	out := make([]SectionType, 0, len(r.sections))
	for _, s := range r.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Builder collects definitions before freezing them into a Registry.
// A Builder is not safe for concurrent use.
type Builder struct {
	components  map[string]ComponentType
	sections    map[string]SectionType
	breakpoints []Breakpoint
	presets     map[string]LayoutPreset
	limits      Limits
	errs        []error
}

// NewBuilder returns an empty builder with default limits.
func NewBuilder() *Builder {
	return &Builder{
		components: make(map[string]ComponentType),
		sections:   make(map[string]SectionType),
		presets:    make(map[string]LayoutPreset),
		limits:     DefaultLimits(),
	}
}

// RegisterComponentType adds a component type. Registering the same type
// twice is an error reported by Build.
func (b *Builder) RegisterComponentType(c ComponentType) *Builder {
	if c.Type == "" {
		b.errs = append(b.errs, errors.New("component type without identifier"))
		return b
	}
	if _, dup := b.components[c.Type]; dup {
		b.errs = append(b.errs, fmt.Errorf("component type %q registered twice", c.Type))
		return b
	}
	c.Fields = append([]Field(nil), c.Fields...)
	b.components[c.Type] = c
	return b
}

// RegisterSectionType adds a section type.
func (b *Builder) RegisterSectionType(s SectionType) *Builder {
	switch {
	case s.Type == "":
		b.errs = append(b.errs, errors.New("section type without identifier"))
	case s.MaxDepth < 0:
		b.errs = append(b.errs, fmt.Errorf("section type %q: negative max_depth", s.Type))
	default:
		if _, dup := b.sections[s.Type]; dup {
			b.errs = append(b.errs, fmt.Errorf("section type %q registered twice", s.Type))
			return b
		}
		b.sections[s.Type] = s
	}
	return b
}

// RegisterBreakpoint appends a breakpoint. Declaration order is kept.
func (b *Builder) RegisterBreakpoint(bp Breakpoint) *Builder {
	switch {
	case bp.Name == "":
		b.errs = append(b.errs, errors.New("breakpoint without name"))
	case slices.ContainsFunc(b.breakpoints, func(o Breakpoint) bool { return o.Name == bp.Name }):
		b.errs = append(b.errs, fmt.Errorf("breakpoint %q registered twice", bp.Name))
	default:
		b.breakpoints = append(b.breakpoints, bp)
	}
	return b
}

// RegisterPreset adds a layout preset. Its settings keys are checked
// against the breakpoints by Build.
func (b *Builder) RegisterPreset(p LayoutPreset) *Builder {
	if p.Name == "" {
		b.errs = append(b.errs, errors.New("layout preset without name"))
		return b
	}
	if _, dup := b.presets[p.Name]; dup {
		b.errs = append(b.errs, fmt.Errorf("layout preset %q registered twice", p.Name))
		return b
	}
	b.presets[p.Name] = p
	return b
}

// SetLimits overrides the structural limits; zero values keep the defaults.
func (b *Builder) SetLimits(l Limits) *Builder {
	b.limits = l.withDefaults()
	return b
}

// Build freezes the collected definitions. The builder must not be reused.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build registry: %w", errors.Join(b.errs...))
	}
	if len(b.sections) == 0 {
		return nil, errors.New("build registry: no section types registered")
	}
	reg := &Registry{
		components:  b.components,
		sections:    b.sections,
		breakpoints: b.breakpoints,
		presets:     b.presets,
		limits:      b.limits.withDefaults(),
	}
	var errs []error
	for _, p := range reg.Presets() {
		for _, key := range slices.Sorted(maps.Keys(p.Settings)) {
			if !reg.HasBreakpoint(key) {
				errs = append(errs, fmt.Errorf("layout preset %q: unknown breakpoint %q", p.Name, key))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build registry: %w", errors.Join(errs...))
	}
	return reg, nil
}
