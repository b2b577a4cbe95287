package trigger

import (
	"context"
	"sync"

	"go-indexer/internal/events"
	"go-indexer/internal/features/collection"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Syncer is the slice of the sync manager the registry drives.
type Syncer interface {
	ProcessScheduledUpdate(ctx context.Context, col *collection.Collection)
	ProcessLiveUpdate(ctx context.Context, col *collection.Collection, record map[string]any, action events.Action)
}

// CollectionSource provides fresh collection state; jobs always re-read the
// collection so a stale closure never drives a sync.
type CollectionSource interface {
	Find(ctx context.Context) ([]collection.Collection, error)
	FindOne(ctx context.Context, id string) (*collection.Collection, error)
	UpdateWithoutHooks(ctx context.Context, id string, fields map[string]any) error
}

// Registry maps collection configuration onto recurring cron jobs and
// live-event subscriptions. At most one job and one subscription set exist
// per collection; Sync replaces, Remove cancels. All mutations of the
// internal maps are serialized behind one mutex.
type Registry struct {
	log         *zap.Logger
	scheduler   *cron.Cron
	syncer      Syncer
	collections CollectionSource
	bus         *events.Bus

	mu    sync.Mutex
	jobs  map[string]cron.EntryID
	hooks map[string]func()
}

func NewRegistry(syncer Syncer, collections CollectionSource, bus *events.Bus, log *zap.Logger) *Registry {
	return &Registry{
		log:         log,
		scheduler:   cron.New(),
		syncer:      syncer,
		collections: collections,
		bus:         bus,
		jobs:        make(map[string]cron.EntryID),
		hooks:       make(map[string]func()),
	}
}

// Start registers triggers for every persisted collection and starts the
// scheduler. Wired into the fx lifecycle.
func (r *Registry) Start(ctx context.Context) error {
	r.log.Info("Initializing trigger registry...")

	collections, err := r.collections.Find(ctx)
	if err != nil {
		return err
	}
	for i := range collections {
		r.Sync(&collections[i])
	}

	r.scheduler.Start()
	return nil
}

// Stop cancels the scheduler and waits for running jobs to finish.
func (r *Registry) Stop() error {
	stopCtx := r.scheduler.Stop()
	<-stopCtx.Done()
	return nil
}

// Sync re-registers the triggers for one collection after its configuration
// changed. Cron-mode collections get a recurring full resync plus lifecycle
// hooks that mark them outdated and resync immediately on any entity write;
// live-mode collections get per-record live updates.
func (r *Registry) Sync(col *collection.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := col.ID.Hex()
	r.removeLocked(id)

	switch col.UpdateHook {
	case collection.UpdateHookCron:
		if col.UpdateCron == "" {
			return
		}

		entryID, err := r.scheduler.AddFunc(col.UpdateCron, r.scheduledJob(id))
		if err != nil {
			r.log.Error("failed to register cron job", zap.Error(err),
				zap.String("collection", col.Entity))
			return
		}
		r.jobs[id] = entryID
		r.hooks[id] = r.bus.Subscribe(col.Entity, r.entityWriteHook(id))

		r.log.Info("Cron job registered",
			zap.String("collection", col.Entity),
			zap.String("frequency", col.UpdateCron))

	case collection.UpdateHookLive:
		r.hooks[id] = r.bus.Subscribe(col.Entity, r.liveUpdateHook(id))

		r.log.Info("Live update hooks registered",
			zap.String("collection", col.Entity))
	}
}

// Remove cancels the job and subscriptions for a collection id; a no-op when
// nothing is registered.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	if entryID, ok := r.jobs[id]; ok {
		r.scheduler.Remove(entryID)
		delete(r.jobs, id)
		r.log.Debug("Cron job removed", zap.String("id", id))
	}
	if cancel, ok := r.hooks[id]; ok {
		cancel()
		delete(r.hooks, id)
	}
}

// scheduledJob runs one recurring full resync against the latest collection
// state.
func (r *Registry) scheduledJob(id string) func() {
	return func() {
		ctx := context.Background()

		col, err := r.collections.FindOne(ctx, id)
		if err != nil || col == nil {
			return
		}

		r.log.Debug("Running cron job", zap.String("collection", col.Entity))
		r.syncer.ProcessScheduledUpdate(ctx, col)
	}
}

// entityWriteHook reacts to any write on a cron-mode collection's entity:
// mark the collection outdated, then queue a full resync right away rather
// than waiting for the next tick.
func (r *Registry) entityWriteHook(id string) events.Handler {
	return func(events.Event) {
		ctx := context.Background()

		if err := r.collections.UpdateWithoutHooks(ctx, id, map[string]any{
			"status": collection.StatusOutdated,
		}); err != nil {
			r.log.Error("failed to mark collection outdated", zap.Error(err), zap.String("id", id))
			return
		}

		col, err := r.collections.FindOne(ctx, id)
		if err != nil || col == nil {
			return
		}
		r.syncer.ProcessScheduledUpdate(ctx, col)
	}
}

// liveUpdateHook forwards one entity write as a per-record live update.
func (r *Registry) liveUpdateHook(id string) events.Handler {
	return func(ev events.Event) {
		ctx := context.Background()

		col, err := r.collections.FindOne(ctx, id)
		if err != nil || col == nil {
			return
		}
		r.syncer.ProcessLiveUpdate(ctx, col, ev.Record, ev.Action)
	}
}
