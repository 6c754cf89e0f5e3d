package repository

import (
	"context"
	"fmt"

	"github.com/go-kivik/kivik/v4"
)

// CouchStore persists collaboration records in a single CouchDB
// database. Documents are keyed "<collection>:<id>" and carry a
// "collection" field so Find can select across a collection.
type CouchStore struct {
	client *kivik.Client
	dbName string
}

func NewCouchStore(client *kivik.Client, dbName string) *CouchStore {
	return &CouchStore{
		client: client,
		dbName: dbName,
	}
}

func docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s", collection, id)
}

func (s *CouchStore) Find(ctx context.Context, query Query) ([]map[string]interface{}, error) {
	db := s.client.DB(s.dbName)

	if query.ID != "" {
		row := db.Get(ctx, docKey(query.Collection, query.ID))
		var doc map[string]interface{}
		if err := row.ScanDoc(&doc); err != nil {
			if kivik.HTTPStatus(err) == 404 {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get document: %w", err)
		}
		return []map[string]interface{}{doc}, nil
	}

	selector := map[string]interface{}{
		"collection": query.Collection,
	}
	for k, v := range query.Filter {
		selector[k] = v
	}

	rows := db.Find(ctx, map[string]interface{}{"selector": selector})
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var doc map[string]interface{}
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		results = append(results, doc)
	}

	return results, nil
}

func (s *CouchStore) Create(ctx context.Context, collection, id string, doc interface{}) error {
	db := s.client.DB(s.dbName)

	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	fields["collection"] = collection

	if _, err := db.Put(ctx, docKey(collection, id), fields); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (s *CouchStore) Update(ctx context.Context, collection, id string, doc interface{}) error {
	db := s.client.DB(s.dbName)
	key := docKey(collection, id)

	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	fields["collection"] = collection

	var existing map[string]interface{}
	row := db.Get(ctx, key)
	if err := row.ScanDoc(&existing); err == nil {
		if rev, ok := existing["_rev"].(string); ok {
			fields["_rev"] = rev
		}
	}

	if _, err := db.Put(ctx, key, fields); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *CouchStore) Delete(ctx context.Context, collection, id string) error {
	db := s.client.DB(s.dbName)
	key := docKey(collection, id)

	var existing map[string]interface{}
	row := db.Get(ctx, key)
	if err := row.ScanDoc(&existing); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil
		}
		return fmt.Errorf("failed to load document for delete: %w", err)
	}

	rev, _ := existing["_rev"].(string)
	if _, err := db.Delete(ctx, key, rev); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
