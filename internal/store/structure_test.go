// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// sampleTree is a small valid tree with nesting, components and settings.
func sampleTree(versionID *int64) []models.SectionNode {
	return []models.SectionNode{
		{
			Key:   "hero",
			Type:  models.SectionTypeLayout,
			Order: 0,
			Settings: models.Settings{
				"md": map[string]any{"width": "full", "padding": "large"},
			},
			Children: []models.SectionNode{
				{
					Key:   "left",
					Type:  models.SectionTypeContent,
					Order: 0,
					Components: []models.ComponentNode{
						{
							Type:               "project-hero",
							Slug:               strPtr("hero-main"),
							Order:              0,
							Data:               map[string]any{"title": "Hello"},
							TemplateKeys:       map[string]string{"image": "page_image"},
							BlueprintVersionID: versionID,
						},
						{Type: "text-block", Order: 1, Data: map[string]any{"content": "<p>x</p>"}},
					},
				},
				{Key: "right", Type: models.SectionTypeContent, Order: 1},
			},
		},
		{Key: "footer", Type: models.SectionTypeContent, Order: 1},
	}
}

// stripIDs clears server-assigned ids so trees can be compared.
func stripIDs(nodes []models.SectionNode) []models.SectionNode {
	for i := range nodes {
		nodes[i].ID = 0
		for j := range nodes[i].Components {
			nodes[i].Components[j].ID = 0
		}
		stripIDs(nodes[i].Children)
	}
	return nodes
}

func TestReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT structure_version FROM templates`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM template_sections`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectQuery(`INSERT INTO template_sections`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := NewStructureStore(db).Replace(context.Background(), 1,
		[]models.SectionNode{{Key: "hero", Type: models.SectionTypeLayout}}, ReplaceOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceVersionMismatch(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT structure_version FROM templates`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(3))
	mock.ExpectRollback()

	_, _, err := NewStructureStore(db).Replace(context.Background(), 1, nil,
		ReplaceOptions{ExpectedVersion: intPtr(2)})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMissingTemplate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT structure_version FROM templates`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := NewStructureStore(db).Replace(context.Background(), 9, nil, ReplaceOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCommitsTree(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT structure_version FROM templates`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM template_sections`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO template_sections`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`INSERT INTO template_components`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))
	mock.ExpectQuery(`INSERT INTO template_sections`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(`UPDATE templates SET structure_version`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO template_revisions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tree := []models.SectionNode{{
		Key:        "hero",
		Type:       models.SectionTypeLayout,
		Components: []models.ComponentNode{{Type: "grid"}},
		Children:   []models.SectionNode{{Key: "body", Type: models.SectionTypeContent}},
	}}
	persisted, version, err := NewStructureStore(db).Replace(context.Background(), 1, tree,
		ReplaceOptions{ExpectedVersion: intPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, 1, version)
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(10), persisted[0].ID)
	assert.Equal(t, int64(20), persisted[0].Components[0].ID)
	assert.Equal(t, int64(11), persisted[0].Children[0].ID)
	assert.Zero(t, tree[0].ID, "input tree must not be mutated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReturnsTreeInReadOrder(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT structure_version FROM templates`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM template_sections`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for id := 10; id <= 12; id++ {
		mock.ExpectQuery(`INSERT INTO template_sections`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
	}
	mock.ExpectQuery(`UPDATE templates SET structure_version`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"structure_version"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO template_revisions`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tree := []models.SectionNode{
		{Key: "second", Type: models.SectionTypeContent, Order: 2},
		{Key: "first", Type: models.SectionTypeContent, Order: 1},
		{Key: "tie", Type: models.SectionTypeContent, Order: 2},
	}
	persisted, _, err := NewStructureStore(db).Replace(context.Background(), 1, tree, ReplaceOptions{})
	require.NoError(t, err)

	require.Len(t, persisted, 3)
	assert.Equal(t, "first", persisted[0].Key)
	assert.Equal(t, int64(11), persisted[0].ID)
	assert.Equal(t, "second", persisted[1].Key)
	assert.Equal(t, "tie", persisted[2].Key)
	assert.Equal(t, "second", tree[0].Key, "input tree must not be reordered")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStructureRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tmpl := createTestTemplate(t, db, "test-structure-roundtrip")
	s := NewStructureStore(db)

	_, version, err := s.Replace(ctx, tmpl.ID, sampleTree(nil), ReplaceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	got, err := s.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.StructureVersion)
	assert.Equal(t, sampleTree(nil), stripIDs(got.Sections))

	// A second replace fully swaps the tree.
	_, version, err = s.Replace(ctx, tmpl.ID, []models.SectionNode{{Key: "only", Type: models.SectionTypeContent}},
		ReplaceOptions{ExpectedVersion: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, err = s.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 1)
	assert.Equal(t, "only", got.Sections[0].Key)

	var sections int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM template_sections WHERE template_id = $1`, tmpl.ID).Scan(&sections))
	assert.Equal(t, 1, sections, "old sections must be removed")
}

func TestStructureOrderTiesResolveByInsertion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tmpl := createTestTemplate(t, db, "test-structure-ties")
	s := NewStructureStore(db)

	tree := []models.SectionNode{
		{Key: "b", Type: models.SectionTypeContent, Order: 5},
		{Key: "a", Type: models.SectionTypeContent, Order: 1},
		{Key: "c", Type: models.SectionTypeContent, Order: 5},
	}
	_, _, err := s.Replace(ctx, tmpl.ID, tree, ReplaceOptions{})
	require.NoError(t, err)

	got, err := s.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)
	assert.Equal(t, "a", got.Sections[0].Key)
	assert.Equal(t, "b", got.Sections[1].Key)
	assert.Equal(t, "c", got.Sections[2].Key)
}

func TestStructureGetMissingTemplate(t *testing.T) {
	db := testDB(t)
	got, err := NewStructureStore(db).Get(context.Background(), -1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReplaceFailureKeepsPriorTree(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tmpl := createTestTemplate(t, db, "test-structure-atomic")
	s := NewStructureStore(db)

	_, _, err := s.Replace(ctx, tmpl.ID, sampleTree(nil), ReplaceOptions{})
	require.NoError(t, err)

	// The component references a version that does not exist, so the insert
	// fails half way through the tree.
	missing := int64(-42)
	_, _, err = s.Replace(ctx, tmpl.ID, sampleTree(&missing), ReplaceOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StructureVersion)
	assert.Equal(t, sampleTree(nil), stripIDs(got.Sections))
}

func TestConcurrentReplaceOneWins(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tmpl := createTestTemplate(t, db, "test-structure-race")
	s := NewStructureStore(db)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Replace(ctx, tmpl.ID, sampleTree(nil), ReplaceOptions{ExpectedVersion: intPtr(0)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConcurrentModification):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, conflict)

	got, err := s.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleTree(nil), stripIDs(got.Sections))
}

func TestRevisionsRecorded(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tmpl := createTestTemplate(t, db, "test-structure-revisions")
	s := NewStructureStore(db)
	revs := NewRevisionStore(db)

	_, _, err := s.Replace(ctx, tmpl.ID, sampleTree(nil), ReplaceOptions{})
	require.NoError(t, err)
	_, _, err = s.Replace(ctx, tmpl.ID, nil, ReplaceOptions{})
	require.NoError(t, err)

	list, err := revs.ListByTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].StructureVersion)

	first, err := revs.Find(ctx, tmpl.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, sampleTree(nil), stripIDs(first.Sections))

	none, err := revs.Find(ctx, tmpl.ID, 99)
	require.NoError(t, err)
	assert.Nil(t, none)
}
