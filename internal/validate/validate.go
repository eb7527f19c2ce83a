// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package validate checks a submitted section tree against the registry's
// structural limits and against the required fields of bound blueprint
// versions. It reports every violation in one pass, in pre-order tree
// traversal order, so editors can fix a whole document at once.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"pagebuilder/internal/models"
	"pagebuilder/internal/registry"
)

// Error codes carried by ValidationError.
const (
	CodeTooManySections          = "too_many_sections"
	CodeUnknownSectionType       = "unknown_section_type"
	CodeNestingNotAllowed        = "nesting_not_allowed"
	CodeUnknownBreakpoint        = "unknown_breakpoint"
	CodeMaxDepthExceeded         = "max_depth_exceeded"
	CodeTooManyComponents        = "too_many_components"
	CodeUnknownComponentType     = "unknown_component_type"
	CodeBlueprintVersionNotFound = "blueprint_version_not_found"
	CodeMissingRequiredField     = "missing_required_field"
	CodeDuplicateSlug            = "duplicate_slug"
)

// ValidationError is one user-facing structural violation.
type ValidationError struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// Result is the outcome of validating one tree.
type Result struct {
	TemplateID int64             `json:"template_id"`
	Valid      bool              `json:"valid"`
	Errors     []ValidationError `json:"errors"`
}

// Messages returns the human-readable form of every error.
func (r *Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// VersionSource resolves blueprint versions. It returns (nil, nil) when the
// version does not exist.
type VersionSource interface {
	BlueprintVersion(ctx context.Context, id int64) (*models.BlueprintVersion, error)
}

// Validator validates section trees. It holds no per-call state and is safe
// for concurrent use.
type Validator struct {
	reg      *registry.Registry
	versions VersionSource
}

// New creates a Validator. versions may be nil, in which case every
// blueprint-bound component is reported as referencing a missing version.
func New(reg *registry.Registry, versions VersionSource) *Validator {
	return &Validator{reg: reg, versions: versions}
}

// Validate checks sections as the complete tree of templateID. Invalid input
// is reported through Result; the error return is reserved for failures of
// the version source.
func (v *Validator) Validate(ctx context.Context, templateID int64, sections []models.SectionNode) (*Result, error) {
	w := &walker{
		v:      v,
		ctx:    ctx,
		limits: v.reg.Limits(),
		slugs:  make(map[string]string),
		cache:  make(map[int64]*models.BlueprintVersion),
	}

	if n := models.CountSections(sections); n > w.limits.MaxSectionsPerTemplate {
		w.add(CodeTooManySections, "sections", "",
			fmt.Sprintf("template has %d sections, maximum is %d", n, w.limits.MaxSectionsPerTemplate))
	}

	for _, i := range ordered(sections, func(s models.SectionNode) int { return s.Order }) {
		if err := w.section(&sections[i], fmt.Sprintf("sections[%d]", i), 1, false); err != nil {
			return nil, err
		}
	}

	res := &Result{TemplateID: templateID, Valid: len(w.errs) == 0, Errors: w.errs}
	if res.Errors == nil {
		res.Errors = []ValidationError{}
	}
	if !res.Valid {
		slog.Debug("section tree rejected", "template_id", templateID, "errors", len(res.Errors))
	}
	return res, nil
}

// walker carries the state of a single traversal.
type walker struct {
	v      *Validator
	ctx    context.Context
	limits registry.Limits
	errs   []ValidationError
	slugs  map[string]string // slug -> path of first use
	cache  map[int64]*models.BlueprintVersion
}

func (w *walker) add(code, path, field, msg string) {
	w.errs = append(w.errs, ValidationError{Code: code, Path: path, Field: field, Message: msg})
}

// section validates s at the given depth (root = 1). depthReported is true
// when an ancestor already exceeded the depth limit, so the violation is
// reported once per branch.
func (w *walker) section(s *models.SectionNode, path string, depth int, depthReported bool) error {
	maxDepth := w.limits.MaxDepth

	st, err := w.v.reg.SectionType(s.Type)
	if err != nil {
		w.add(CodeUnknownSectionType, path, "", fmt.Sprintf("unknown section type %q", s.Type))
	} else {
		if st.MaxDepth > 0 && st.MaxDepth < maxDepth {
			maxDepth = st.MaxDepth
		}
		if len(s.Children) > 0 && !st.SupportsNesting {
			w.add(CodeNestingNotAllowed, path, "",
				fmt.Sprintf("section type %q does not allow nested sections", s.Type))
		}
	}

	for _, bp := range slices.Sorted(maps.Keys(s.Settings)) {
		if !w.v.reg.HasBreakpoint(bp) {
			w.add(CodeUnknownBreakpoint, path, "settings."+bp,
				fmt.Sprintf("settings use unknown breakpoint %q", bp))
		}
	}

	if depth > maxDepth && !depthReported {
		w.add(CodeMaxDepthExceeded, path, "",
			fmt.Sprintf("section depth %d exceeds maximum of %d", depth, maxDepth))
		depthReported = true
	}

	if n := len(s.Components); n > w.limits.MaxComponentsPerSection {
		w.add(CodeTooManyComponents, path, "",
			fmt.Sprintf("section has %d components, maximum is %d", n, w.limits.MaxComponentsPerSection))
	}

	for _, i := range ordered(s.Components, func(c models.ComponentNode) int { return c.Order }) {
		if err := w.component(&s.Components[i], fmt.Sprintf("%s.components[%d]", path, i)); err != nil {
			return err
		}
	}

	for _, i := range ordered(s.Children, func(c models.SectionNode) int { return c.Order }) {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if err := w.section(&s.Children[i], childPath, depth+1, depthReported); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) component(c *models.ComponentNode, path string) error {
	if _, err := w.v.reg.ComponentSchema(c.Type); err != nil {
		w.add(CodeUnknownComponentType, path, "", fmt.Sprintf("unknown component type %q", c.Type))
	}

	if c.Slug != nil && *c.Slug != "" {
		if first, dup := w.slugs[*c.Slug]; dup {
			w.add(CodeDuplicateSlug, path, "slug",
				fmt.Sprintf("slug %q is already used by %s", *c.Slug, first))
		} else {
			w.slugs[*c.Slug] = path
		}
	}

	if c.BlueprintVersionID == nil {
		return nil
	}

	version, err := w.version(*c.BlueprintVersionID)
	if err != nil {
		return err
	}
	if version == nil {
		w.add(CodeBlueprintVersionNotFound, path, "blueprint_version_id",
			fmt.Sprintf("blueprint version %d does not exist", *c.BlueprintVersionID))
		return nil
	}

	for _, name := range version.Schema.RequiredFields() {
		if _, ok := c.Field(name); !ok {
			w.add(CodeMissingRequiredField, path, name,
				fmt.Sprintf("required field %q has no value and no template key", name))
		}
	}
	return nil
}

// version loads a blueprint version once per traversal.
func (w *walker) version(id int64) (*models.BlueprintVersion, error) {
	if bv, ok := w.cache[id]; ok {
		return bv, nil
	}
	if w.v.versions == nil {
		w.cache[id] = nil
		return nil, nil
	}
	bv, err := w.v.versions.BlueprintVersion(w.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup blueprint version %d: %w", id, err)
	}
	w.cache[id] = bv
	return bv, nil
}

// ordered returns the indexes of items sorted by their order key, ties
// broken by position in the submitted slice.
func ordered[T any](items []T, key func(T) int) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(items[idx[a]]) < key(items[idx[b]])
	})
	return idx
}
