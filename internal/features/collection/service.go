package collection

import (
	"context"
	"fmt"

	"go-indexer/internal/features/schema"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Orchestrator is the slice of the sync manager the admin workflows need.
// Both calls run asynchronously relative to the HTTP caller.
type Orchestrator interface {
	ProcessCollectionChange(ctx context.Context, id string)
	DeployIndex(ctx context.Context, col *Collection)
}

// Triggers keeps scheduled jobs and live-event subscriptions in step with
// collection configuration.
type Triggers interface {
	Sync(col *Collection)
	Remove(id string)
}

// SettingsProvider exposes the per-index override file ({schema, transformer}
// pairs) to the listing logic.
type SettingsProvider interface {
	Has(indexID string) bool
	Partial(indexID string) bool
}

type CollectionService interface {
	Find(ctx context.Context) ([]Collection, error)
	FindOne(ctx context.Context, id string) (*Collection, error)
	Create(ctx context.Context, col *Collection) error
	Update(ctx context.Context, id string, col *Collection) (*Collection, error)
	Delete(ctx context.Context, id string) error
	Deploy(ctx context.Context, id string) error
}

type CollectionServiceImpl struct {
	repo         CollectionRepository
	orchestrator Orchestrator
	triggers     Triggers
	settings     SettingsProvider
	log          *zap.Logger
}

func NewCollectionService(
	repo CollectionRepository,
	orchestrator Orchestrator,
	triggers Triggers,
	settings SettingsProvider,
	log *zap.Logger,
) CollectionService {
	return &CollectionServiceImpl{
		repo:         repo,
		orchestrator: orchestrator,
		triggers:     triggers,
		settings:     settings,
		log:          log,
	}
}

// Find lists all collections, annotated with HasSettings when a well-formed
// override pair exists for their index. Collections whose override is
// partial are excluded from the listing until the file is fixed.
func (s *CollectionServiceImpl) Find(ctx context.Context) ([]Collection, error) {
	collections, err := s.repo.Find(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Collection, 0, len(collections))
	for _, col := range collections {
		if s.settings.Partial(col.IndexID) {
			s.log.Warn("Collection has settings but no schema or transformer",
				zap.String("indexId", col.IndexID))
			continue
		}
		col.HasSettings = s.settings.Has(col.IndexID)
		result = append(result, col)
	}
	return result, nil
}

func (s *CollectionServiceImpl) FindOne(ctx context.Context, id string) (*Collection, error) {
	return s.repo.FindOne(ctx, id)
}

// Create persists a new collection with status forced to outdated, registers
// its triggers and kicks off the initial rebuild without blocking the caller.
func (s *CollectionServiceImpl) Create(ctx context.Context, col *Collection) error {
	if err := validateConfig(col); err != nil {
		return err
	}

	col.Status = StatusOutdated
	if err := s.repo.Create(ctx, col); err != nil {
		return err
	}

	s.triggers.Sync(col)
	go s.orchestrator.ProcessCollectionChange(context.Background(), col.ID.Hex())

	return nil
}

// Update replaces the collection configuration, forces status back to
// outdated and re-triggers a full rebuild.
func (s *CollectionServiceImpl) Update(ctx context.Context, id string, col *Collection) (*Collection, error) {
	if err := validateConfig(col); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"entity":                col.Entity,
		"index_id":              col.IndexID,
		"schema":                col.Schema,
		"searchable_attributes": col.SearchableAttributes,
		"included_relations":    col.IncludedRelations,
		"include_drafts":        col.IncludeDrafts,
		"update_hook":           col.UpdateHook,
		"update_cron":           col.UpdateCron,
		"status":                StatusOutdated,
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("collection %s not found", id)
	}

	s.triggers.Sync(updated)
	go s.orchestrator.ProcessCollectionChange(context.Background(), id)

	return updated, nil
}

func (s *CollectionServiceImpl) Delete(ctx context.Context, id string) error {
	s.triggers.Remove(id)
	return s.repo.Delete(ctx, id)
}

// Deploy runs the deploy-only workflow for one collection, fire-and-forget.
func (s *CollectionServiceImpl) Deploy(ctx context.Context, id string) error {
	col, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if col == nil {
		return fmt.Errorf("collection %s not found", id)
	}

	go s.orchestrator.DeployIndex(context.Background(), col)

	return nil
}

// validateConfig enforces the configuration invariants: a cron hook needs a
// parseable expression and every searchable attribute must resolve to a leaf
// of the field schema.
func validateConfig(col *Collection) error {
	if col.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if col.IndexID == "" {
		return fmt.Errorf("index_id is required")
	}

	switch col.UpdateHook {
	case "", UpdateHookLive:
	case UpdateHookCron:
		if col.UpdateCron == "" {
			return fmt.Errorf("update_cron is required when update_hook is cron")
		}
		if _, err := cron.ParseStandard(col.UpdateCron); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	default:
		return fmt.Errorf("unknown update_hook %q", col.UpdateHook)
	}

	leaves := make(map[string]bool)
	for _, path := range schema.SelectedAttributes(col.Schema) {
		leaves[path] = true
	}
	for _, attr := range col.SearchableAttributes {
		if !leaves[attr] {
			return fmt.Errorf("searchable attribute %q is not part of the schema", attr)
		}
	}

	return nil
}
