package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go-indexer/internal/config"
	"go-indexer/internal/events"
	"go-indexer/internal/features/collection"
	"go-indexer/internal/features/contenttype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeStatusStore struct {
	mu  sync.Mutex
	col *collection.Collection

	claimResult bool
	claimErr    error
	claims      int
	writes      []map[string]any
}

func (s *fakeStatusStore) FindOne(_ context.Context, id string) (*collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col == nil || s.col.ID.Hex() != id {
		return nil, nil
	}
	copied := *s.col
	return &copied, nil
}

func (s *fakeStatusStore) UpdateWithoutHooks(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, fields)
	if status, ok := fields["status"].(collection.Status); ok && s.col != nil {
		s.col.Status = status
	}
	return nil
}

func (s *fakeStatusStore) ClaimUpdating(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	if s.claimErr != nil {
		return false, s.claimErr
	}
	if !s.claimResult {
		return false, nil
	}
	s.col.Status = collection.StatusUpdating
	return true, nil
}

func (s *fakeStatusStore) lastStatus() collection.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Status
}

func (s *fakeStatusStore) documentsCount() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.writes) - 1; i >= 0; i-- {
		if v, ok := s.writes[i]["documents_count"].(int64); ok {
			return &v
		}
	}
	return nil
}

type fakeEntrySource struct {
	mu      sync.Mutex
	dataset []map[string]any
	err     error
	queries []contenttype.EntryQuery
}

func (s *fakeEntrySource) GetEntries(_ context.Context, q contenttype.EntryQuery) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}

	if len(q.IDs) > 0 {
		var out []map[string]any
		for _, want := range q.IDs {
			for _, entry := range s.dataset {
				if entry["id"] == want {
					copied := make(map[string]any, len(entry))
					for k, v := range entry {
						copied[k] = v
					}
					out = append(out, copied)
				}
			}
		}
		return out, nil
	}

	start := q.Offset
	if start > int64(len(s.dataset)) {
		start = int64(len(s.dataset))
	}
	end := start + q.Limit
	if end > int64(len(s.dataset)) {
		end = int64(len(s.dataset))
	}
	page := make([]map[string]any, 0, end-start)
	for _, entry := range s.dataset[start:end] {
		copied := make(map[string]any, len(entry))
		for k, v := range entry {
			copied[k] = v
		}
		page = append(page, copied)
	}
	return page, nil
}

type fakeIndexAPI struct {
	mu sync.Mutex

	schemas   []map[string]any
	snapshots int
	upserts   [][]map[string]any
	deletes   [][]string
	deploys   int

	snapshotErr error
	deployErr   error
	upsertErr   error
}

func (f *fakeIndexAPI) UpdateSchema(_ context.Context, _ string, schema map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas = append(f.schemas, schema)
	return nil
}

func (f *fakeIndexAPI) Snapshot(_ context.Context, _ string, _ []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.snapshots++
	return nil
}

func (f *fakeIndexAPI) Insert(_ context.Context, _ string, documents []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, documents)
	return nil
}

func (f *fakeIndexAPI) Update(_ context.Context, _ string, documents []map[string]any) error {
	return f.Insert(context.Background(), "", documents)
}

func (f *fakeIndexAPI) Delete(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ids)
	return nil
}

func (f *fakeIndexAPI) Deploy(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployErr != nil {
		return f.deployErr
	}
	f.deploys++
	return nil
}

func testCollection(status collection.Status) *collection.Collection {
	return &collection.Collection{
		ID:      primitive.NewObjectID(),
		Entity:  "article",
		IndexID: "idx-articles",
		Schema: map[string]any{
			"title": "string",
			"body":  "string",
		},
		SearchableAttributes: []string{"title", "body"},
		Status:               status,
	}
}

func newTestManager(store *fakeStatusStore, entries *fakeEntrySource, index *fakeIndexAPI, settings Settings) *Manager {
	if settings == nil {
		settings = Settings{}
	}
	cfg := &config.Config{IndexAPIKey: "test-key"}
	return NewManager(cfg, settings, store, entries, index, events.NewBus(), zap.NewNop())
}

func makeDataset(n int) []map[string]any {
	dataset := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		dataset = append(dataset, map[string]any{
			"id":    fmt.Sprintf("%d", i+1),
			"title": fmt.Sprintf("entry %d", i+1),
		})
	}
	return dataset
}

func TestFullRebuildPaginatesAndDeploys(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: makeDataset(120)}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	// 120 records in pages of 50: two full pages and one short page, the
	// short page ends the loop without an extra empty read.
	require.Len(t, entries.queries, 3)
	assert.Equal(t, int64(0), entries.queries[0].Offset)
	assert.Equal(t, int64(50), entries.queries[1].Offset)
	assert.Equal(t, int64(100), entries.queries[2].Offset)

	require.Len(t, index.upserts, 3)
	assert.Len(t, index.upserts[0], 50)
	assert.Len(t, index.upserts[2], 20)

	assert.Equal(t, 1, index.snapshots)
	assert.Len(t, index.schemas, 1)
	assert.Equal(t, 1, index.deploys)

	assert.Equal(t, collection.StatusUpdated, store.lastStatus())
	count := store.documentsCount()
	require.NotNil(t, count)
	assert.Equal(t, int64(120), *count)
}

func TestRebuildEmptyCollectionDeploysEmptyIndex(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	require.Len(t, entries.queries, 1)
	assert.Empty(t, index.upserts)

	// initial reset plus the forced empty reset, then a deploy
	assert.Equal(t, 2, index.snapshots)
	assert.Equal(t, 1, index.deploys)

	assert.Equal(t, collection.StatusUpdated, store.lastStatus())
	count := store.documentsCount()
	require.NotNil(t, count)
	assert.Equal(t, int64(0), *count)
}

func TestRebuildFailureReturnsToOutdated(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: makeDataset(3)}
	index := &fakeIndexAPI{snapshotErr: errors.New("remote unavailable")}

	m := newTestManager(store, entries, index, nil)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	assert.Equal(t, 0, index.deploys)
	assert.Equal(t, collection.StatusOutdated, store.lastStatus())
	assert.Nil(t, store.documentsCount())
}

func TestValidationSkipsAndFailures(t *testing.T) {
	tests := []struct {
		name     string
		col      *collection.Collection
		apiKey   string
		settings Settings
		wantErr  error
		skip     bool
	}{
		{
			name:    "nil collection",
			col:     nil,
			apiKey:  "key",
			wantErr: ErrCollectionNotFound,
		},
		{
			name:    "missing api key",
			col:     testCollection(collection.StatusOutdated),
			apiKey:  "",
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "already updating",
			col:     testCollection(collection.StatusUpdating),
			apiKey:  "key",
			wantErr: ErrAlreadyUpdating,
			skip:    true,
		},
		{
			name:    "already updated",
			col:     testCollection(collection.StatusUpdated),
			apiKey:  "key",
			wantErr: ErrAlreadyUpdated,
			skip:    true,
		},
		{
			name:   "partial settings override",
			col:    testCollection(collection.StatusOutdated),
			apiKey: "key",
			settings: Settings{
				"idx-articles": {Schema: map[string]any{"title": "string"}},
			},
			wantErr: ErrPartialSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := tt.settings
			if settings == nil {
				settings = Settings{}
			}
			cfg := &config.Config{IndexAPIKey: tt.apiKey}
			m := NewManager(cfg, settings, &fakeStatusStore{}, &fakeEntrySource{}, &fakeIndexAPI{}, nil, zap.NewNop())

			err := m.validate(tt.col)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.skip, IsSkip(err))
		})
	}
}

func TestValidationFailureRunsNoWorkflow(t *testing.T) {
	col := testCollection(collection.StatusUpdating)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: makeDataset(5)}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	assert.Equal(t, 0, store.claims)
	assert.Empty(t, entries.queries)
	assert.Equal(t, 0, index.deploys)
}

func TestLostClaimIsSilentSkip(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: false}
	entries := &fakeEntrySource{dataset: makeDataset(5)}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	assert.Equal(t, 1, store.claims)
	assert.Empty(t, entries.queries)
	assert.Equal(t, 0, index.snapshots)
}

func TestDeployIndexPushesSchemaOnly(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: makeDataset(5)}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.DeployIndex(context.Background(), col)

	// deploy-only never touches the source or snapshots the index
	assert.Empty(t, entries.queries)
	assert.Equal(t, 0, index.snapshots)
	assert.Len(t, index.schemas, 1)
	assert.Equal(t, 1, index.deploys)

	assert.Equal(t, collection.StatusUpdated, store.lastStatus())
	assert.Nil(t, store.documentsCount())
}

func TestDeployFailureReturnsToOutdated(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	index := &fakeIndexAPI{deployErr: errors.New("deploy rejected")}

	m := newTestManager(store, &fakeEntrySource{}, index, nil)
	m.DeployIndex(context.Background(), col)

	assert.Equal(t, collection.StatusOutdated, store.lastStatus())
}

func TestLiveUpdateInsertRefetchesAuthoritativeRow(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: []map[string]any{
		{"id": 7, "title": "fresh title"},
	}}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessLiveUpdate(context.Background(), col, map[string]any{
		"id":         7,
		"title":      "stale title",
		"created_by": map[string]any{"id": 1},
		"updated_by": map[string]any{"id": 1},
	}, events.ActionInsert)

	// the upsert re-reads the row by raw id instead of trusting the payload
	require.Len(t, entries.queries, 1)
	assert.Equal(t, []any{7}, entries.queries[0].IDs)

	require.Len(t, index.upserts, 1)
	require.Len(t, index.upserts[0], 1)
	assert.Equal(t, "7", index.upserts[0][0]["id"])
	assert.Equal(t, "fresh title", index.upserts[0][0]["title"])
	assert.NotContains(t, index.upserts[0][0], "created_by")

	// a single-document change never marks the whole index updated
	assert.Equal(t, collection.StatusOutdated, store.lastStatus())
}

func TestLiveUpdateDeleteCoercesID(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, nil)
	m.ProcessLiveUpdate(context.Background(), col, map[string]any{
		"id":         7,
		"created_by": map[string]any{"id": 1},
	}, events.ActionDelete)

	assert.Empty(t, entries.queries)
	require.Len(t, index.deletes, 1)
	assert.Equal(t, []string{"7"}, index.deletes[0])

	assert.Equal(t, collection.StatusOutdated, store.lastStatus())
}

func TestLiveUpdateUnknownActionStillFinishesOutdated(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	index := &fakeIndexAPI{}

	m := newTestManager(store, &fakeEntrySource{}, index, nil)
	m.ProcessLiveUpdate(context.Background(), col, map[string]any{"id": 1}, events.Action("publish"))

	assert.Empty(t, index.upserts)
	assert.Empty(t, index.deletes)
	assert.Equal(t, collection.StatusOutdated, store.lastStatus())
}

func TestLiveUpdateMissingRecordID(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	store := &fakeStatusStore{col: col, claimResult: true}
	index := &fakeIndexAPI{}

	m := newTestManager(store, &fakeEntrySource{}, index, nil)

	err := m.handleDocument(context.Background(), col, nil, events.ActionInsert)
	require.ErrorIs(t, err, ErrUnknownAction)

	err = m.handleDocument(context.Background(), col, map[string]any{"title": "no id"}, events.ActionDelete)
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestPushSchemaPrefersCustomOverride(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	custom := map[string]any{"title": "string"}
	settings := Settings{
		"idx-articles": {Schema: custom, Transformer: "output := doc"},
	}
	index := &fakeIndexAPI{}

	m := newTestManager(&fakeStatusStore{col: col, claimResult: true}, &fakeEntrySource{}, index, settings)
	require.NoError(t, m.pushSchema(context.Background(), col))

	require.Len(t, index.schemas, 1)
	assert.Equal(t, custom, index.schemas[0])
}

func TestRebuildAppliesTransformer(t *testing.T) {
	col := testCollection(collection.StatusOutdated)
	settings := Settings{
		"idx-articles": {
			Schema:      map[string]any{"title": "string"},
			Transformer: `output := {id: doc.id, title: doc.title + "!"}`,
		},
	}
	store := &fakeStatusStore{col: col, claimResult: true}
	entries := &fakeEntrySource{dataset: makeDataset(2)}
	index := &fakeIndexAPI{}

	m := newTestManager(store, entries, index, settings)
	m.ProcessCollectionChange(context.Background(), col.ID.Hex())

	require.Len(t, index.upserts, 1)
	require.Len(t, index.upserts[0], 2)
	assert.Equal(t, "entry 1!", index.upserts[0][0]["title"])
	assert.Equal(t, collection.StatusUpdated, store.lastStatus())
}

func TestStripAuditFields(t *testing.T) {
	record := map[string]any{
		"id":         1,
		"title":      "kept",
		"created_by": "admin",
		"updated_by": "admin",
	}

	doc := stripAuditFields(record)

	assert.Equal(t, map[string]any{"id": 1, "title": "kept"}, doc)
	assert.Contains(t, record, "created_by")
}
