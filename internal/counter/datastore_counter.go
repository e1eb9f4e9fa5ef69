package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
)

var _ Counter = (*DatastoreCounter)(nil)

type visitEntity struct {
	Count     int64
	UpdatedAt time.Time `datastore:",noindex"`
}

// DatastoreCounter keeps the count in a single entity and increments it
// inside a transaction.
type DatastoreCounter struct {
	client *datastore.Client
	key    *datastore.Key
}

func NewDatastoreCounter(client *datastore.Client, kind, name, namespace string) *DatastoreCounter {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = namespace
	return &DatastoreCounter{client: client, key: key}
}

func (c *DatastoreCounter) Get(ctx context.Context) (int64, error) {
	var rec visitEntity
	err := c.client.Get(ctx, c.key, &rec)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("datastore.Get: key=%v, %w", c.key, err)
	}
	return rec.Count, nil
}

func (c *DatastoreCounter) Up(ctx context.Context) (int64, error) {
	var n int64
	_, err := c.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		// may run more than once when it loses a conflict
		var rec visitEntity
		if err := tx.Get(c.key, &rec); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		rec.Count++
		rec.UpdatedAt = time.Now().UTC()
		if _, err := tx.Put(c.key, &rec); err != nil {
			return err
		}
		n = rec.Count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("datastore.RunInTransaction: key=%v, %w", c.key, err)
	}
	return n, nil
}
