package indexer

import (
	"context"
	"fmt"
	"time"

	"go-indexer/internal/config"
	"go-indexer/internal/events"
	"go-indexer/internal/features/collection"
	"go-indexer/internal/features/contenttype"
	"go-indexer/internal/features/schema"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// BulkPageSize is the fixed page size of the bulk read-and-upsert loop.
const BulkPageSize = 50

const remoteMaxTries = 3

// EntrySource reads paginated source entries; a page shorter than the
// requested limit signals exhaustion.
type EntrySource interface {
	GetEntries(ctx context.Context, q contenttype.EntryQuery) ([]map[string]any, error)
}

// StatusStore is the slice of the collection repository the manager needs:
// lookups plus the hook-free status writes that keep workflows from
// re-triggering themselves.
type StatusStore interface {
	FindOne(ctx context.Context, id string) (*collection.Collection, error)
	UpdateWithoutHooks(ctx context.Context, id string, fields map[string]any) error
	ClaimUpdating(ctx context.Context, id string) (bool, error)
}

// Manager owns the per-collection sync state machine
// (outdated → updating → updated) and drives every workflow against the
// remote index: full rebuilds, deploy-only runs, live document updates and
// scheduled updates.
type Manager struct {
	log         *zap.Logger
	apiKey      string
	settings    Settings
	collections StatusStore
	entries     EntrySource
	index       IndexAPI
	bus         *events.Bus
}

func NewManager(
	cfg *config.Config,
	settings Settings,
	collections StatusStore,
	entries EntrySource,
	index IndexAPI,
	bus *events.Bus,
	log *zap.Logger,
) *Manager {
	return &Manager{
		log:         log,
		apiKey:      cfg.IndexAPIKey,
		settings:    settings,
		collections: collections,
		entries:     entries,
		index:       index,
		bus:         bus,
	}
}

// validate checks the preconditions shared by every workflow. Skip errors
// (already updating / already updated) make duplicate triggers idempotent;
// the rest are configuration failures.
func (m *Manager) validate(col *collection.Collection) error {
	if col == nil {
		return ErrCollectionNotFound
	}
	if m.apiKey == "" {
		return ErrMissingAPIKey
	}
	if col.Status == collection.StatusUpdating {
		return ErrAlreadyUpdating
	}
	if col.Status == collection.StatusUpdated {
		return ErrAlreadyUpdated
	}
	if m.settings.Partial(col.IndexID) {
		return ErrPartialSettings
	}
	return nil
}

// checkValid runs validate and logs the outcome; skips log at debug level,
// configuration failures at error level.
func (m *Manager) checkValid(col *collection.Collection) bool {
	err := m.validate(col)
	if err == nil {
		return true
	}

	if IsSkip(err) {
		m.log.Debug("SKIP: "+err.Error(),
			zap.String("collection", entityOf(col)),
			zap.String("indexId", indexOf(col)))
	} else {
		m.log.Error(err.Error(),
			zap.String("collection", entityOf(col)),
			zap.String("indexId", indexOf(col)))
	}
	return false
}

// claim atomically flips the collection from outdated to updating. Losing
// the race to a concurrent trigger is a silent skip.
func (m *Manager) claim(ctx context.Context, col *collection.Collection) bool {
	ok, err := m.collections.ClaimUpdating(ctx, col.ID.Hex())
	if err != nil {
		m.log.Error("failed to claim collection for update", zap.Error(err),
			zap.String("collection", col.Entity))
		return false
	}
	if !ok {
		m.log.Debug("SKIP: collection claimed by a concurrent workflow",
			zap.String("collection", col.Entity),
			zap.String("indexId", col.IndexID))
		return false
	}
	m.publishStatus(col, collection.StatusUpdating)
	return true
}

func (m *Manager) setOutdated(ctx context.Context, col *collection.Collection) {
	if err := m.collections.UpdateWithoutHooks(ctx, col.ID.Hex(), map[string]any{
		"status": collection.StatusOutdated,
	}); err != nil {
		m.log.Error("failed to mark collection outdated", zap.Error(err),
			zap.String("collection", col.Entity))
		return
	}
	m.publishStatus(col, collection.StatusOutdated)
}

// updatingCompleted records a successful workflow: status updated, deploy
// timestamp, and the document count when the workflow produced one.
func (m *Manager) updatingCompleted(ctx context.Context, col *collection.Collection, documentsCount *int64) {
	fields := map[string]any{
		"status":      collection.StatusUpdated,
		"deployed_at": time.Now(),
	}
	if documentsCount != nil {
		fields["documents_count"] = *documentsCount
	}

	if err := m.collections.UpdateWithoutHooks(ctx, col.ID.Hex(), fields); err != nil {
		m.log.Error("failed to mark collection updated", zap.Error(err),
			zap.String("collection", col.Entity))
		return
	}
	m.publishStatus(col, collection.StatusUpdated)
}

func (m *Manager) publishStatus(col *collection.Collection, status collection.Status) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{
		Entity: events.TopicCollectionStatus,
		Action: events.ActionUpdate,
		Record: map[string]any{
			"id":       col.ID.Hex(),
			"index_id": col.IndexID,
			"entity":   col.Entity,
			"status":   string(status),
		},
	})
}

// withRetry wraps one remote index call with a bounded exponential backoff.
func (m *Manager) withRetry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(remoteMaxTries))
	return err
}

// pushSchema resolves the effective schema (custom override when configured,
// otherwise the searchable attributes projected out of the field schema) and
// pushes it to the remote index.
func (m *Manager) pushSchema(ctx context.Context, col *collection.Collection) error {
	indexSchema := m.settings.SchemaFor(col.IndexID)
	if indexSchema == nil {
		indexSchema = schema.Project(col.SearchableAttributes, col.Schema)
	}

	return m.withRetry(ctx, func() error {
		return m.index.UpdateSchema(ctx, col.IndexID, indexSchema)
	})
}

func (m *Manager) resetIndex(ctx context.Context, col *collection.Collection) error {
	return m.withRetry(ctx, func() error {
		return m.index.Snapshot(ctx, col.IndexID, nil)
	})
}

func (m *Manager) deployIndex(ctx context.Context, col *collection.Collection) error {
	err := m.withRetry(ctx, func() error {
		return m.index.Deploy(ctx, col.IndexID)
	})
	if err != nil {
		return err
	}
	m.log.Info("Index deployed", zap.String("indexId", col.IndexID))
	return nil
}

// transform applies the configured transformer script to every entry.
// Without an override the entries pass through untouched.
func (m *Manager) transform(ctx context.Context, indexID string, entries []map[string]any) ([]map[string]any, error) {
	src := m.settings.TransformerFor(indexID)
	if src == "" {
		return entries, nil
	}

	transformed := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		doc, err := ApplyTransformer(ctx, src, entry)
		if err != nil {
			m.log.Error("ERROR: documentsTransformer needs a return value",
				zap.Error(err), zap.String("indexId", indexID))
			return nil, err
		}
		transformed = append(transformed, doc)
	}
	return transformed, nil
}

// upsert pushes one batch of entries into the index. Outside the bulk loop
// (live updates) the batch is first re-fetched so the index only ever sees
// the authoritative row, with the same draft filter as bulk reads.
func (m *Manager) upsert(ctx context.Context, col *collection.Collection, entries []map[string]any, action events.Action, fromBulk bool) error {
	if !fromBulk {
		ids := make([]any, 0, len(entries))
		for _, entry := range entries {
			ids = append(ids, entry["id"])
		}

		fetched, err := m.entries.GetEntries(ctx, contenttype.EntryQuery{
			Entity:        col.Entity,
			Relations:     col.IncludedRelations,
			Schema:        col.Schema,
			IDs:           ids,
			PublishedOnly: !col.IncludeDrafts,
		})
		if err != nil {
			return err
		}
		for _, entry := range fetched {
			entry["id"] = fmt.Sprint(entry["id"])
		}
		entries = fetched
	}

	transformed, err := m.transform(ctx, col.IndexID, entries)
	if err != nil {
		return err
	}

	dispatch := m.index.Insert
	if action == events.ActionUpdate {
		dispatch = m.index.Update
	}
	if err := m.withRetry(ctx, func() error {
		return dispatch(ctx, col.IndexID, transformed)
	}); err != nil {
		return err
	}

	m.log.Info(fmt.Sprintf("%s: %d documents into index", action, len(transformed)),
		zap.String("indexId", col.IndexID))
	return nil
}

// bulkInsert drains the source sequentially in pages of BulkPageSize,
// upserting each page before requesting the next. An empty very first page
// reports forceEmptyDeploy so the caller publishes an empty index instead of
// leaving it un-deployed.
func (m *Manager) bulkInsert(ctx context.Context, col *collection.Collection) (int64, bool, error) {
	var offset int64

	for {
		entries, err := m.entries.GetEntries(ctx, contenttype.EntryQuery{
			Entity:        col.Entity,
			Relations:     col.IncludedRelations,
			Schema:        col.Schema,
			PublishedOnly: !col.IncludeDrafts,
			Offset:        offset,
			Limit:         BulkPageSize,
		})
		if err != nil {
			return 0, false, err
		}

		if len(entries) == 0 {
			if offset == 0 {
				return 0, true, nil
			}
			return offset, false, nil
		}

		if err := m.upsert(ctx, col, entries, events.ActionInsert, true); err != nil {
			return 0, false, err
		}

		offset += int64(len(entries))
		if int64(len(entries)) < BulkPageSize {
			return offset, false, nil
		}
	}
}

// rebuild hard-resets the remote index, pushes the effective schema,
// repopulates it page by page and deploys the result. Every successful
// reset-and-repopulate pass deploys, including the empty-collection case.
func (m *Manager) rebuild(ctx context.Context, col *collection.Collection) (int64, error) {
	if err := m.resetIndex(ctx, col); err != nil {
		return 0, err
	}

	if err := m.pushSchema(ctx, col); err != nil {
		return 0, err
	}

	documentsCount, forceEmptyDeploy, err := m.bulkInsert(ctx, col)
	if err != nil {
		return 0, err
	}

	if forceEmptyDeploy {
		m.log.Debug("No documents found. Deploying empty index.",
			zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
		if err := m.resetIndex(ctx, col); err != nil {
			return 0, err
		}
	}

	if err := m.deployIndex(ctx, col); err != nil {
		return 0, err
	}

	return documentsCount, nil
}

// fullSync is the shared rebuild workflow: claim the collection, rebuild the
// index, and record the outcome. Any failure transitions the collection back
// to outdated so a later trigger can retry instead of wedging on updating.
func (m *Manager) fullSync(ctx context.Context, col *collection.Collection) {
	if !m.checkValid(col) {
		return
	}
	if !m.claim(ctx, col) {
		return
	}

	documentsCount, err := m.rebuild(ctx, col)
	if err != nil {
		m.log.Error("index rebuild failed", zap.Error(err),
			zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
		m.setOutdated(ctx, col)
		return
	}

	m.updatingCompleted(ctx, col, &documentsCount)
}

// ProcessCollectionChange runs the full rebuild workflow after a collection
// was created or its configuration changed.
func (m *Manager) ProcessCollectionChange(ctx context.Context, id string) {
	col, err := m.collections.FindOne(ctx, id)
	if err != nil {
		m.log.Error("failed to load collection", zap.Error(err), zap.String("id", id))
		return
	}

	m.fullSync(ctx, col)
}

// ProcessScheduledUpdate is the recurring-job entry point; functionally a
// full rebuild, triggered by a timer instead of a configuration change.
func (m *Manager) ProcessScheduledUpdate(ctx context.Context, col *collection.Collection) {
	m.log.Debug("Processing scheduled index update",
		zap.String("collection", entityOf(col)), zap.String("indexId", indexOf(col)))

	m.fullSync(ctx, col)
}

// DeployIndex publishes the current remote state without re-reading the
// source: schema push plus deploy. Triggered by the admin Deploy action.
func (m *Manager) DeployIndex(ctx context.Context, col *collection.Collection) {
	if !m.checkValid(col) {
		return
	}
	if !m.claim(ctx, col) {
		return
	}

	if err := m.pushSchema(ctx, col); err != nil {
		m.log.Error("schema update failed", zap.Error(err),
			zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
		m.setOutdated(ctx, col)
		return
	}

	if err := m.deployIndex(ctx, col); err != nil {
		m.log.Error("index deploy failed", zap.Error(err),
			zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
		m.setOutdated(ctx, col)
		return
	}

	m.updatingCompleted(ctx, col, nil)

	m.log.Debug("UPDATE: deploy completed",
		zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
}

// ProcessLiveUpdate converts one CMS lifecycle event into an index mutation.
// The collection always lands on outdated afterwards: a single-document
// change never marks the index fully updated, only a full sync does.
func (m *Manager) ProcessLiveUpdate(ctx context.Context, col *collection.Collection, record map[string]any, action events.Action) {
	if !m.checkValid(col) {
		return
	}
	if !m.claim(ctx, col) {
		return
	}

	m.log.Debug("Processing live update",
		zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))

	if err := m.handleDocument(ctx, col, record, action); err != nil {
		m.log.Warn("live update dispatch failed", zap.Error(err),
			zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
	}

	m.setOutdated(ctx, col)

	m.log.Debug("Live update completed",
		zap.String("collection", col.Entity), zap.String("indexId", col.IndexID))
}

// handleDocument strips audit fields, coerces the identifier to a string and
// dispatches through the action table: insert and update both land on the
// remote upsert, delete acts on the identifier alone.
func (m *Manager) handleDocument(ctx context.Context, col *collection.Collection, record map[string]any, action events.Action) error {
	if record == nil || record["id"] == nil {
		return fmt.Errorf("%w: missing record", ErrUnknownAction)
	}

	doc := stripAuditFields(record)
	rawID := doc["id"]
	doc["id"] = fmt.Sprint(rawID)

	switch action {
	case events.ActionInsert, events.ActionUpdate:
		return m.upsert(ctx, col, []map[string]any{{"id": rawID}}, action, false)
	case events.ActionDelete:
		err := m.withRetry(ctx, func() error {
			return m.index.Delete(ctx, col.IndexID, []string{fmt.Sprint(rawID)})
		})
		if err != nil {
			return err
		}
		m.log.Info(fmt.Sprintf("DELETE: document %v from index", doc["id"]),
			zap.String("indexId", col.IndexID))
		return nil
	default:
		m.log.Warn(fmt.Sprintf("Action %s not found. Skipping...", action))
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

// stripAuditFields drops the creator/updater references; they are never part
// of an indexed document.
func stripAuditFields(record map[string]any) map[string]any {
	doc := make(map[string]any, len(record))
	for k, v := range record {
		if k == "created_by" || k == "updated_by" {
			continue
		}
		doc[k] = v
	}
	return doc
}

func entityOf(col *collection.Collection) string {
	if col == nil {
		return ""
	}
	return col.Entity
}

func indexOf(col *collection.Collection) string {
	if col == nil {
		return ""
	}
	return col.IndexID
}
