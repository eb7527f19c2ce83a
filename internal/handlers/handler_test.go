// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// in-memory repositories behind the engine and the event handlers, and a
// helper that routes one request through chi.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/engine"
	"pagebuilder/internal/middleware"
	"pagebuilder/internal/models"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/store"
)

var testNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

// --- Templates and structures ---

type memTemplates struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Template
}

func newMemTemplates() *memTemplates {
	return &memTemplates{rows: make(map[int64]*models.Template)}
}

func (m *memTemplates) handleTaken(handle string, except int64) bool {
	for id, t := range m.rows {
		if id != except && t.Handle == handle {
			return true
		}
	}
	return false
}

func (m *memTemplates) Create(_ context.Context, t *models.Template) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handleTaken(t.Handle, 0) {
		return nil, store.ErrDuplicateHandle
	}
	m.nextID++
	row := *t
	row.ID = m.nextID
	row.CreatedAt, row.UpdatedAt = testNow, testNow
	m.rows[row.ID] = &row
	out := row
	return &out, nil
}

func (m *memTemplates) live(id int64) *models.Template {
	t, ok := m.rows[id]
	if !ok || t.DeletedAt != nil {
		return nil
	}
	return t
}

func (m *memTemplates) FindByID(_ context.Context, id int64) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.live(id)
	if t == nil {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (m *memTemplates) FindByHandle(_ context.Context, handle string) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Handle == handle && t.DeletedAt == nil {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memTemplates) List(_ context.Context, status models.TemplateStatus) ([]models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Template{}
	for _, t := range m.rows {
		if t.DeletedAt == nil && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTemplates) Update(_ context.Context, t *models.Template) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(t.ID) == nil {
		return nil, store.ErrNotFound
	}
	if m.handleTaken(t.Handle, t.ID) {
		return nil, store.ErrDuplicateHandle
	}
	row := *t
	m.rows[t.ID] = &row
	out := row
	return &out, nil
}

func (m *memTemplates) SetStatus(_ context.Context, id int64, status models.TemplateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.live(id)
	if t == nil {
		return store.ErrNotFound
	}
	t.Status = status
	return nil
}

func (m *memTemplates) SavePublished(_ context.Context, id int64, blocks []models.CompiledBlock, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.live(id)
	if t == nil {
		return store.ErrNotFound
	}
	t.Status = models.TemplateStatusPublished
	t.Compiled = blocks
	t.PublishedAt = &at
	return nil
}

func (m *memTemplates) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.live(id)
	if t == nil {
		return store.ErrNotFound
	}
	t.DeletedAt = &testNow
	return nil
}

// memStructures keeps one tree per template plus every saved revision.
type memStructures struct {
	mu        sync.Mutex
	templates *memTemplates
	trees     map[int64][]models.SectionNode
	revisions map[int64][]models.TemplateRevision
}

func newMemStructures(templates *memTemplates) *memStructures {
	return &memStructures{
		templates: templates,
		trees:     make(map[int64][]models.SectionNode),
		revisions: make(map[int64][]models.TemplateRevision),
	}
}

func (m *memStructures) Replace(_ context.Context, templateID int64, sections []models.SectionNode, opts store.ReplaceOptions) ([]models.SectionNode, int, error) {
	m.templates.mu.Lock()
	t := m.templates.live(templateID)
	m.templates.mu.Unlock()
	if t == nil {
		return nil, 0, store.ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current := len(m.revisions[templateID])
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != current {
		return nil, 0, store.ErrConcurrentModification
	}
	version := current + 1
	m.trees[templateID] = sections
	m.revisions[templateID] = append(m.revisions[templateID], models.TemplateRevision{
		ID:               int64(version),
		TemplateID:       templateID,
		StructureVersion: version,
		Sections:         sections,
		CreatedBy:        opts.UserID,
		CreatedAt:        testNow,
	})
	return sections, version, nil
}

func (m *memStructures) Get(_ context.Context, templateID int64) (*models.TemplateStructure, error) {
	m.templates.mu.Lock()
	t := m.templates.live(templateID)
	m.templates.mu.Unlock()
	if t == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sections := m.trees[templateID]
	if sections == nil {
		sections = []models.SectionNode{}
	}
	return &models.TemplateStructure{
		ID:               t.ID,
		Handle:           t.Handle,
		Name:             t.Name,
		StructureVersion: len(m.revisions[templateID]),
		Sections:         sections,
	}, nil
}

func (m *memStructures) ListByTemplate(_ context.Context, templateID int64) ([]models.TemplateRevision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.TemplateRevision{}
	revs := m.revisions[templateID]
	for i := len(revs) - 1; i >= 0; i-- {
		r := revs[i]
		r.Sections = nil
		out = append(out, r)
	}
	return out, nil
}

func (m *memStructures) Find(_ context.Context, templateID int64, version int) (*models.TemplateRevision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revs := m.revisions[templateID]
	if version < 1 || version > len(revs) {
		return nil, nil
	}
	r := revs[version-1]
	return &r, nil
}

// --- Blueprints ---

type memBlueprints struct {
	mu         sync.Mutex
	nextID     int64
	nextVerID  int64
	blueprints map[int64]*models.Blueprint
	versions   map[int64]*models.BlueprintVersion
}

func newMemBlueprints() *memBlueprints {
	return &memBlueprints{
		blueprints: make(map[int64]*models.Blueprint),
		versions:   make(map[int64]*models.BlueprintVersion),
	}
}

func (m *memBlueprints) Create(_ context.Context, b *models.Blueprint) (*models.Blueprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.blueprints {
		if existing.Handle == b.Handle {
			return nil, store.ErrDuplicateHandle
		}
	}
	m.nextID++
	row := *b
	row.ID = m.nextID
	row.Status = "active"
	m.blueprints[row.ID] = &row
	out := row
	return &out, nil
}

func (m *memBlueprints) FindByID(_ context.Context, id int64) (*models.Blueprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blueprints[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *memBlueprints) List(_ context.Context) ([]models.Blueprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Blueprint{}
	for _, b := range m.blueprints {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBlueprints) UpdateSchema(_ context.Context, id int64, schema models.BlueprintSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blueprints[id]
	if !ok {
		return store.ErrNotFound
	}
	b.WorkingSchema = schema
	return nil
}

func (m *memBlueprints) CreateVersion(_ context.Context, blueprintID int64) (*models.BlueprintVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blueprints[blueprintID]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := 1
	for _, v := range m.versions {
		if v.BlueprintID == blueprintID && v.Version >= next {
			next = v.Version + 1
		}
	}
	m.nextVerID++
	v := &models.BlueprintVersion{ID: m.nextVerID, BlueprintID: blueprintID, Version: next, Schema: b.WorkingSchema}
	m.versions[v.ID] = v
	out := *v
	return &out, nil
}

func (m *memBlueprints) FindVersion(_ context.Context, id int64) (*models.BlueprintVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (m *memBlueprints) ListVersions(_ context.Context, blueprintID int64) ([]models.BlueprintVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BlueprintVersion{}
	for _, v := range m.versions {
		if v.BlueprintID == blueprintID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memBlueprints) DeleteVersion(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.versions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.versions, id)
	return nil
}

// newTestBuilder returns a Builder over in-memory storage and the stock
// registry.
func newTestBuilder(t *testing.T) (*Builder, *Public, *memTemplates) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	templates := newMemTemplates()
	structures := newMemStructures(templates)
	eng, err := engine.New(reg, engine.Stores{
		Templates:  templates,
		Structures: structures,
		Revisions:  structures,
		Blueprints: newMemBlueprints(),
	})
	require.NoError(t, err)
	return NewBuilder(eng), NewPublic(eng), templates
}

// --- Events, attendees, users ---

type memEvents struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Event
	users  map[int64]*models.User
}

func (m *memEvents) owner(id int64) *models.UserSummary {
	u, ok := m.users[id]
	if !ok {
		return &models.UserSummary{ID: id}
	}
	return &models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (m *memEvents) List(_ context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, e := range m.rows {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memEvents) FindByID(_ context.Context, id int64) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (m *memEvents) Create(_ context.Context, e *models.Event) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	row := *e
	row.ID = m.nextID
	row.User = m.owner(row.UserID)
	row.CreatedAt, row.UpdatedAt = testNow, testNow
	m.rows[row.ID] = &row
	out := row
	return &out, nil
}

func (m *memEvents) Update(_ context.Context, e *models.Event) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		return nil, store.ErrNotFound
	}
	row := *e
	row.Attendees = nil
	row.DescriptionHTML = ""
	m.rows[e.ID] = &row
	out := row
	return &out, nil
}

func (m *memEvents) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memAttendees struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Attendee
}

func (m *memAttendees) ListByEvent(_ context.Context, eventID int64) ([]models.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Attendee{}
	for _, a := range m.rows {
		if a.EventID == eventID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memAttendees) FindByID(_ context.Context, id int64) (*models.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m *memAttendees) Register(_ context.Context, eventID, userID int64) (*models.Attendee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.EventID == eventID && a.UserID == userID {
			return nil, store.ErrAlreadyRegistered
		}
	}
	m.nextID++
	a := &models.Attendee{ID: m.nextID, EventID: eventID, UserID: userID, CreatedAt: testNow, UpdatedAt: testNow}
	m.rows[a.ID] = a
	out := *a
	return &out, nil
}

func (m *memAttendees) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memUsers map[int64]*models.User

func (m memUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

var (
	alice = &models.User{ID: 1, Name: "Alice", Email: "alice@example.com", Role: models.RoleMember}
	bob   = &models.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: models.RoleMember}
)

func newTestEvents() (*Events, *memEvents, *memAttendees) {
	users := map[int64]*models.User{alice.ID: alice, bob.ID: bob}
	events := &memEvents{rows: make(map[int64]*models.Event), users: users}
	attendees := &memAttendees{rows: make(map[int64]*models.Attendee)}
	h := NewEvents(events, attendees)
	h.now = func() time.Time { return testNow }
	return h, events, attendees
}

// --- Request helpers ---

// as returns the identity of u.
func as(u *models.User) *middleware.Identity {
	return &middleware.Identity{UserID: u.ID, Role: u.Role}
}

// serve routes one request through a chi router holding a single route, so
// URL parameters resolve as they do in production.
func serve(t *testing.T, h http.HandlerFunc, method, pattern, target, body string, who *middleware.Identity) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *who))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeBody unmarshals a JSON response into v.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}
