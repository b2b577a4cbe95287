package contenttype

import (
	"context"
	"time"

	"go-indexer/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EntryQuery describes one page of source entries to fetch.
type EntryQuery struct {
	Entity        string
	Relations     []string
	Schema        map[string]any
	IDs           []any
	PublishedOnly bool
	Offset        int64
	Limit         int64
}

type ContentTypeRepository interface {
	List(ctx context.Context) ([]ContentType, error)
	GetByName(ctx context.Context, name string) (*ContentType, error)
	GetEntries(ctx context.Context, q EntryQuery) ([]map[string]any, error)
}

type ContentTypeRepositoryImpl struct {
	db *mongo.Database
}

func NewContentTypeRepository(mongodb *database.MongodbDB) ContentTypeRepository {
	return &ContentTypeRepositoryImpl{db: mongodb.DB}
}

func (r *ContentTypeRepositoryImpl) collection() *mongo.Collection {
	return r.db.Collection("content_types")
}

func (r *ContentTypeRepositoryImpl) List(ctx context.Context) ([]ContentType, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var types []ContentType
	if err = cursor.All(ctx, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (r *ContentTypeRepositoryImpl) GetByName(ctx context.Context, name string) (*ContentType, error) {
	var ct ContentType
	err := r.collection().FindOne(ctx, bson.M{"name": name}).Decode(&ct)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ct, nil
}

// GetEntries returns exactly one page of matching entries; a page shorter
// than q.Limit signals exhaustion to the caller.
func (r *ContentTypeRepositoryImpl) GetEntries(ctx context.Context, q EntryQuery) ([]map[string]any, error) {
	filter, projection := BuildEntryQuery(q)

	opts := options.Find().
		SetProjection(projection).
		SetSkip(q.Offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.db.Collection(q.Entity).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err = cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, doc := range raw {
		delete(doc, "_id")
		entries = append(entries, normalizeValue(doc).(map[string]any))
	}
	return entries, nil
}

// BuildEntryQuery derives the mongo filter and field projection for one
// entry page. The projection always includes the identifier, every scalar
// top-level key of the schema, and for each relation that is both included
// and present in the schema, the relation's sub-keys.
func BuildEntryQuery(q EntryQuery) (bson.M, bson.M) {
	filter := bson.M{}
	if q.PublishedOnly {
		filter["published_at"] = bson.M{"$ne": nil}
	}
	if len(q.IDs) > 0 {
		filter["id"] = bson.M{"$in": q.IDs}
	}

	included := make(map[string]bool, len(q.Relations))
	for _, rel := range q.Relations {
		included[rel] = true
	}

	projection := bson.M{"id": 1}
	for key, val := range q.Schema {
		switch sub := val.(type) {
		case map[string]any:
			if included[key] {
				for subKey := range sub {
					projection[key+"."+subKey] = 1
				}
			}
		case []any:
			if !included[key] || len(sub) == 0 {
				continue
			}
			if subMap, ok := sub[0].(map[string]any); ok {
				for subKey := range subMap {
					projection[key+"."+subKey] = 1
				}
			}
		default:
			projection[key] = 1
		}
	}

	return filter, projection
}

// normalizeValue converts bson driver types into plain Go values so entries
// can be handed to the transformer scripts and the JSON wire codec.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case bson.M:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeValue(item)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return v.String()
	default:
		return val
	}
}
