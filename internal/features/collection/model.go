package collection

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusOutdated Status = "outdated"
	StatusUpdating Status = "updating"
	StatusUpdated  Status = "updated"
)

type UpdateHook string

const (
	UpdateHookCron UpdateHook = "cron"
	UpdateHookLive UpdateHook = "live"
)

// Collection maps one content type onto one remote search index.
type Collection struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Entity               string             `json:"entity" bson:"entity"`
	IndexID              string             `json:"index_id" bson:"index_id"`
	Schema               map[string]any     `json:"schema" bson:"schema"`
	SearchableAttributes []string           `json:"searchable_attributes" bson:"searchable_attributes"`
	IncludedRelations    []string           `json:"included_relations" bson:"included_relations"`
	IncludeDrafts        bool               `json:"include_drafts" bson:"include_drafts"`
	UpdateHook           UpdateHook         `json:"update_hook,omitempty" bson:"update_hook,omitempty"`
	UpdateCron           string             `json:"update_cron,omitempty" bson:"update_cron,omitempty"`
	Status               Status             `json:"status" bson:"status"`
	DeployedAt           *time.Time         `json:"deployed_at,omitempty" bson:"deployed_at,omitempty"`
	DocumentsCount       *int64             `json:"documents_count,omitempty" bson:"documents_count,omitempty"`

	// HasSettings is computed from the per-index override file, never stored.
	HasSettings bool `json:"has_settings,omitempty" bson:"-"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
