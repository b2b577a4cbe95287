package collection

import (
	"context"
	"time"

	"go-indexer/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CollectionRepository interface {
	Find(ctx context.Context) ([]Collection, error)
	FindOne(ctx context.Context, id string) (*Collection, error)
	Create(ctx context.Context, col *Collection) error
	Update(ctx context.Context, id string, updates map[string]any) error
	Delete(ctx context.Context, id string) error

	// UpdateWithoutHooks writes status/metadata fields without passing through
	// the service layer, so a workflow updating its own status can never
	// re-trigger itself.
	UpdateWithoutHooks(ctx context.Context, id string, fields map[string]any) error

	// ClaimUpdating atomically flips status from outdated to updating.
	// Returns false when the collection is missing or another workflow holds
	// the claim already.
	ClaimUpdating(ctx context.Context, id string) (bool, error)
}

type CollectionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCollectionRepository(mongodb *database.MongodbDB) CollectionRepository {
	return &CollectionRepositoryImpl{
		collection: mongodb.DB.Collection("collections"),
	}
}

func (r *CollectionRepositoryImpl) Find(ctx context.Context) ([]Collection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var collections []Collection
	if err = cursor.All(ctx, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

func (r *CollectionRepositoryImpl) FindOne(ctx context.Context, id string) (*Collection, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var col Collection
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&col)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &col, nil
}

func (r *CollectionRepositoryImpl) Create(ctx context.Context, col *Collection) error {
	if col.ID.IsZero() {
		col.ID = primitive.NewObjectID()
	}
	col.CreatedAt = time.Now()
	col.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, col)
	return err
}

func (r *CollectionRepositoryImpl) Update(ctx context.Context, id string, updates map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	return err
}

func (r *CollectionRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *CollectionRepositoryImpl) UpdateWithoutHooks(ctx context.Context, id string, fields map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	return err
}

func (r *CollectionRepositoryImpl) ClaimUpdating(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "status": StatusOutdated},
		bson.M{"$set": bson.M{"status": StatusUpdating}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
