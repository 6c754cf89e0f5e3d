package repository

import "context"

// Query addresses documents by collection, optionally narrowed to an id
// or an equality filter over top-level fields.
type Query struct {
	Collection string
	ID         string
	Filter     map[string]interface{}
}

// Store is the persistence collaborator consumed by the collaboration
// core. All core state is held in memory; a Store, when configured,
// receives archival copies of data that should outlive the process.
type Store interface {
	Find(ctx context.Context, query Query) ([]map[string]interface{}, error)
	Create(ctx context.Context, collection, id string, doc interface{}) error
	Update(ctx context.Context, collection, id string, doc interface{}) error
	Delete(ctx context.Context, collection, id string) error
}
