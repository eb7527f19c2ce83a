package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pagebuilder/internal/models"
	"pagebuilder/internal/store"
)

// fakeTemplates is an in-memory TemplateRepository with a unique handle
// constraint that also covers deleted rows.
type fakeTemplates struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Template
	err    error
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{rows: make(map[int64]*models.Template)}
}

func (f *fakeTemplates) handleTaken(handle string, except int64) bool {
	for id, t := range f.rows {
		if id != except && t.Handle == handle {
			return true
		}
	}
	return false
}

func (f *fakeTemplates) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.handleTaken(t.Handle, 0) {
		return nil, fmt.Errorf("create template %q: %w", t.Handle, store.ErrDuplicateHandle)
	}
	f.nextID++
	c := *t
	c.ID = f.nextID
	f.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeTemplates) FindByID(_ context.Context, id int64) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.IsDeleted() {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (f *fakeTemplates) FindByHandle(_ context.Context, handle string) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.Handle == handle && !t.IsDeleted() {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplates) List(_ context.Context, status models.TemplateStatus) ([]models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Template{}
	for _, t := range f.rows {
		if !t.IsDeleted() && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) Update(_ context.Context, t *models.Template) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[t.ID]
	if !ok || cur.IsDeleted() {
		return nil, store.ErrNotFound
	}
	if f.handleTaken(t.Handle, t.ID) {
		return nil, store.ErrDuplicateHandle
	}
	c := *t
	f.rows[t.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeTemplates) SetStatus(_ context.Context, id int64, status models.TemplateStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTemplates) SavePublished(_ context.Context, id int64, blocks []models.CompiledBlock, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	t, ok := f.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Compiled = blocks
	t.Status = models.TemplateStatusPublished
	t.PublishedAt = &at
	return nil
}

func (f *fakeTemplates) SoftDelete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.IsDeleted() {
		return store.ErrNotFound
	}
	now := time.Now()
	t.DeletedAt = &now
	return nil
}

// fakeStructures keeps one tree per template and records revisions.
type fakeStructures struct {
	mu        sync.Mutex
	templates *fakeTemplates
	trees     map[int64][]models.SectionNode
	versions  map[int64]int
	revisions map[int64]map[int][]models.SectionNode
	replaces  int
	err       error
}

func newFakeStructures(templates *fakeTemplates) *fakeStructures {
	return &fakeStructures{
		templates: templates,
		trees:     make(map[int64][]models.SectionNode),
		versions:  make(map[int64]int),
		revisions: make(map[int64]map[int][]models.SectionNode),
	}
}

func (f *fakeStructures) Replace(ctx context.Context, id int64, sections []models.SectionNode, opts store.ReplaceOptions) ([]models.SectionNode, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	if f.err != nil {
		return nil, 0, f.err
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != f.versions[id] {
		return nil, 0, store.ErrConcurrentModification
	}
	var next int64 = 100
	persisted := assignIDs(sections, &next)
	f.trees[id] = persisted
	f.versions[id]++
	if f.revisions[id] == nil {
		f.revisions[id] = make(map[int][]models.SectionNode)
	}
	f.revisions[id][f.versions[id]] = persisted
	return persisted, f.versions[id], nil
}

func assignIDs(nodes []models.SectionNode, next *int64) []models.SectionNode {
	if nodes == nil {
		return nil
	}
	out := make([]models.SectionNode, len(nodes))
	for i, n := range nodes {
		*next++
		n.ID = *next
		comps := make([]models.ComponentNode, len(n.Components))
		for j, c := range n.Components {
			*next++
			c.ID = *next
			comps[j] = c
		}
		if len(comps) == 0 {
			comps = nil
		}
		n.Components = comps
		n.Children = assignIDs(n.Children, next)
		out[i] = n
	}
	return out
}

func (f *fakeStructures) Get(ctx context.Context, id int64) (*models.TemplateStructure, error) {
	t, _ := f.templates.FindByID(ctx, id)
	if t == nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sections := f.trees[id]
	if sections == nil {
		sections = []models.SectionNode{}
	}
	return &models.TemplateStructure{
		ID: id, Handle: t.Handle, Name: t.Name,
		StructureVersion: f.versions[id], Sections: sections,
	}, nil
}

func (f *fakeStructures) ListByTemplate(_ context.Context, id int64) ([]models.TemplateRevision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TemplateRevision{}
	for v := f.versions[id]; v >= 1; v-- {
		if _, ok := f.revisions[id][v]; ok {
			out = append(out, models.TemplateRevision{TemplateID: id, StructureVersion: v})
		}
	}
	return out, nil
}

func (f *fakeStructures) Find(_ context.Context, id int64, version int) (*models.TemplateRevision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sections, ok := f.revisions[id][version]
	if !ok {
		return nil, nil
	}
	return &models.TemplateRevision{TemplateID: id, StructureVersion: version, Sections: sections}, nil
}

// fakeBlueprints is an in-memory BlueprintRepository.
type fakeBlueprints struct {
	mu          sync.Mutex
	blueprints  map[int64]*models.Blueprint
	versions    map[int64]*models.BlueprintVersion
	nextID      int64
	findCalls   int
	findErr     error
	findBlocker chan struct{}
}

func newFakeBlueprints() *fakeBlueprints {
	return &fakeBlueprints{
		blueprints: make(map[int64]*models.Blueprint),
		versions:   make(map[int64]*models.BlueprintVersion),
	}
}

func (f *fakeBlueprints) Create(_ context.Context, b *models.Blueprint) (*models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.blueprints {
		if existing.Handle == b.Handle {
			return nil, store.ErrDuplicateHandle
		}
	}
	f.nextID++
	c := *b
	c.ID = f.nextID
	f.blueprints[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeBlueprints) FindByID(_ context.Context, id int64) (*models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blueprints[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (f *fakeBlueprints) List(context.Context) ([]models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Blueprint{}
	for _, b := range f.blueprints {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBlueprints) UpdateSchema(_ context.Context, id int64, schema models.BlueprintSchema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blueprints[id]
	if !ok {
		return store.ErrNotFound
	}
	b.WorkingSchema = schema
	return nil
}

func (f *fakeBlueprints) CreateVersion(_ context.Context, blueprintID int64) (*models.BlueprintVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blueprints[blueprintID]
	if !ok {
		return nil, store.ErrNotFound
	}
	latest := 0
	for _, v := range f.versions {
		if v.BlueprintID == blueprintID && v.Version > latest {
			latest = v.Version
		}
	}
	f.nextID++
	v := &models.BlueprintVersion{ID: f.nextID, BlueprintID: blueprintID, Version: latest + 1, Schema: b.WorkingSchema}
	f.versions[v.ID] = v
	out := *v
	return &out, nil
}

// addVersion registers a version directly, bypassing the blueprint.
func (f *fakeBlueprints) addVersion(id int64, fields ...models.SchemaField) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[id] = &models.BlueprintVersion{ID: id, Version: 1, Schema: models.BlueprintSchema{Fields: fields}}
}

func (f *fakeBlueprints) FindVersion(_ context.Context, id int64) (*models.BlueprintVersion, error) {
	if f.findBlocker != nil {
		<-f.findBlocker
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	v, ok := f.versions[id]
	if !ok {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (f *fakeBlueprints) ListVersions(_ context.Context, blueprintID int64) ([]models.BlueprintVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.BlueprintVersion{}
	for _, v := range f.versions {
		if v.BlueprintID == blueprintID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeBlueprints) DeleteVersion(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.versions[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.versions, id)
	return nil
}

func (f *fakeBlueprints) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

// fakeCache records every call and serves what was set.
type fakeCache struct {
	mu          sync.Mutex
	structures  map[int64]*models.TemplateStructure
	published   map[string][]models.CompiledBlock
	invalidated []string
	cleared     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		structures: make(map[int64]*models.TemplateStructure),
		published:  make(map[string][]models.CompiledBlock),
	}
}

func (c *fakeCache) Structure(_ context.Context, id int64) (*models.TemplateStructure, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.structures[id]
	return ts, ok
}

func (c *fakeCache) SetStructure(_ context.Context, ts *models.TemplateStructure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structures[ts.ID] = ts
}

func (c *fakeCache) Published(_ context.Context, handle string) ([]models.CompiledBlock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.published[handle]
	return b, ok
}

func (c *fakeCache) SetPublished(_ context.Context, handle string, blocks []models.CompiledBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[handle] = blocks
}

func (c *fakeCache) InvalidateTemplate(_ context.Context, id int64, handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.structures, id)
	if handle != "" {
		delete(c.published, handle)
	}
	c.invalidated = append(c.invalidated, fmt.Sprintf("%d:%s", id, handle))
}

func (c *fakeCache) InvalidateAll(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structures = make(map[int64]*models.TemplateStructure)
	c.published = make(map[string][]models.CompiledBlock)
	c.cleared++
}

type fakeSnapshots struct {
	handle  string
	version int
	body    []byte
	err     error
}

func (s *fakeSnapshots) PutSnapshot(_ context.Context, handle string, version int, body []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.handle, s.version, s.body = handle, version, body
	return fmt.Sprintf("templates/%s/v%d-test.json", handle, version), nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *fakeLog) Log(_ context.Context, entityType string, id int64, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s:%d:%s", entityType, id, action))
}

var errStorage = errors.New("storage unavailable")
