package contenttype

import (
	"context"
	"fmt"

	"go-indexer/internal/features/schema"
)

// Descriptor is the list view of one content type.
type Descriptor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// RelationInfo is the admin view of one relation-capable field.
type RelationInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Repeatable bool   `json:"repeatable"`
}

type ContentTypeService interface {
	List(ctx context.Context) ([]Descriptor, error)
	Relations(ctx context.Context, name string) ([]RelationInfo, error)
	SchemaTree(ctx context.Context, name string) (map[string]any, error)
	SelectableFields(ctx context.Context, name string, includedRelations []string) ([]schema.SelectableField, error)
	GetEntries(ctx context.Context, q EntryQuery) ([]map[string]any, error)
}

type ContentTypeServiceImpl struct {
	repo ContentTypeRepository
}

func NewContentTypeService(repo ContentTypeRepository) ContentTypeService {
	return &ContentTypeServiceImpl{repo: repo}
}

func (s *ContentTypeServiceImpl) List(ctx context.Context) ([]Descriptor, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, 0, len(types))
	for _, ct := range types {
		descriptors = append(descriptors, Descriptor{
			ID:    ct.ID.Hex(),
			Name:  ct.Name,
			Label: ct.Label,
		})
	}
	return descriptors, nil
}

func (s *ContentTypeServiceImpl) Relations(ctx context.Context, name string) ([]RelationInfo, error) {
	ct, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}

	relations := []RelationInfo{}
	for _, f := range ct.Relations() {
		relations = append(relations, RelationInfo{
			Name:       f.Name,
			Label:      f.Label,
			Repeatable: f.Repeatable,
		})
	}
	return relations, nil
}

func (s *ContentTypeServiceImpl) SchemaTree(ctx context.Context, name string) (map[string]any, error) {
	ct, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return ct.SchemaTree(), nil
}

func (s *ContentTypeServiceImpl) SelectableFields(ctx context.Context, name string, includedRelations []string) ([]schema.SelectableField, error) {
	tree, err := s.SchemaTree(ctx, name)
	if err != nil {
		return nil, err
	}
	return schema.SelectableFields(tree, includedRelations), nil
}

func (s *ContentTypeServiceImpl) GetEntries(ctx context.Context, q EntryQuery) ([]map[string]any, error) {
	return s.repo.GetEntries(ctx, q)
}

func (s *ContentTypeServiceImpl) get(ctx context.Context, name string) (*ContentType, error) {
	ct, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("content type %s not found", name)
	}
	return ct, nil
}
