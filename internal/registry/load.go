// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package registry

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: PAGEBUILDER_LIMITS__MAX_DEPTH sets limits.max_depth.
const EnvPrefix = "PAGEBUILDER_"

// catalog is the on-disk layout of a registry definition.
type catalog struct {
	Limits       Limits          `koanf:"limits"`
	SectionTypes []SectionType   `koanf:"section_types"`
	Components   []ComponentType `koanf:"components"`
	Breakpoints  []Breakpoint    `koanf:"breakpoints"`
	Presets      []LayoutPreset  `koanf:"presets"`
}

// Default builds the registry from the embedded stock catalog.
func Default() (*Registry, error) {
	return Load("")
}

// Load builds a registry from the YAML catalog at path, or from the embedded
// stock catalog when path is empty. Limits fall back to the defaults and can
// be overridden from the environment.
func Load(path string) (*Registry, error) {
	k := koanf.New(".")

	// 1. Default limits.
	if err := k.Load(confmap.Provider(map[string]any{
		"limits.max_depth":                  DefaultMaxDepth,
		"limits.max_components_per_section": DefaultMaxComponentsPerSection,
		"limits.max_sections_per_template":  DefaultMaxSectionsPerTemplate,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load registry defaults: %w", err)
	}

	// 2. Catalog file or the embedded one.
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("load registry file %s: %w", path, err)
		}
	} else {
		var m map[string]any
		if err := yaml.Unmarshal(defaultCatalog, &m); err != nil {
			return nil, fmt.Errorf("parse embedded registry: %w", err)
		}
		if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
			return nil, fmt.Errorf("load embedded registry: %w", err)
		}
	}

	// 3. Environment overrides.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load registry env: %w", err)
	}

	var c catalog
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	b := NewBuilder().SetLimits(c.Limits)
	for _, s := range c.SectionTypes {
		b.RegisterSectionType(s)
	}
	for _, ct := range c.Components {
		b.RegisterComponentType(ct)
	}
	for _, bp := range c.Breakpoints {
		b.RegisterBreakpoint(bp)
	}
	for _, p := range c.Presets {
		b.RegisterPreset(p)
	}
	reg, err := b.Build()
	if err != nil {
		return nil, err
	}

	source := path
	if source == "" {
		source = "embedded"
	}
	slog.Info("schema registry loaded",
		"source", source,
		"components", len(c.Components),
		"section_types", len(c.SectionTypes),
		"breakpoints", len(c.Breakpoints),
		"presets", len(c.Presets),
		"max_depth", reg.limits.MaxDepth,
	)
	return reg, nil
}
