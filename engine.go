package deltamap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ErrItemNotFound is returned when a requested item does not exist.
var ErrItemNotFound = errors.New("item not found")

// StoreError wraps an opaque failure reported by the store client during a
// save or sync. The record's snapshot and dirty state are left untouched so
// the caller may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Engine writes entity records to a table and reconciles their snapshots
// after each successful write. The engine holds no per-record state; records
// carry their own baselines.
type Engine struct {
	client StoreClient
	table  *Table
}

// New creates an engine over the given store client and table handle.
func New(client StoreClient, table *Table) *Engine {
	return &Engine{client: client, table: table}
}

// Table returns the engine's table handle.
func (e *Engine) Table() *Table { return e.table }

// Save writes the record unconditionally as a whole item, skipping
// default-valued attributes. On success the snapshot is seeded from the
// current state and the record becomes clean.
func (e *Engine) Save(ctx context.Context, r *Record) error {
	if err := e.table.Bind(r.schema); err != nil {
		return err
	}
	item, err := EncodeItem(r)
	if err != nil {
		return err
	}
	// the key attributes must be present even on a full put
	if _, err := r.keyItem(); err != nil {
		return err
	}

	_, err = e.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(e.table.Name),
		Item:      item,
	})
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}

	r.commitAll()
	return nil
}

// Sync computes the minimal delta between the record's last-persisted
// snapshot and its current state and applies it with a single update call.
// If the net change is empty, no request is issued and any stale dirty
// markers clear. On success the snapshot is reconciled and all dirty markers
// clear; on failure the record stays dirty.
func (e *Engine) Sync(ctx context.Context, r *Record) error {
	if err := e.table.Bind(r.schema); err != nil {
		return err
	}
	ops, err := r.PendingOps()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		if r.synced {
			// dirty markers with an empty diff are reconciled in place
			r.commit(r.dirtyNames())
		}
		return nil
	}

	key, err := r.keyItem()
	if err != nil {
		return err
	}
	expr, names, values := updateExpression(ops)

	_, err = e.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(e.table.Name),
		Key:                       key,
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return &StoreError{Op: "update", Err: err}
	}

	r.commit(r.dirtyNames())
	return nil
}

// Get fetches the item with the given key values and rehydrates it into a
// clean record. Returns ErrItemNotFound if no such item exists.
func (e *Engine) Get(ctx context.Context, s *Schema, hashValue any, rangeValue ...any) (*Record, error) {
	if err := e.table.Bind(s); err != nil {
		return nil, err
	}
	key, err := encodeKey(s, hashValue, rangeValue...)
	if err != nil {
		return nil, err
	}

	out, err := e.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(e.table.Name),
		Key:       key,
	})
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if len(out.Item) == 0 {
		return nil, ErrItemNotFound
	}

	return DecodeItem(s, out.Item)
}

// Delete removes the record's item from the table. On success the record
// returns to the never-written state.
func (e *Engine) Delete(ctx context.Context, r *Record) error {
	if err := e.table.Bind(r.schema); err != nil {
		return err
	}
	key, err := r.keyItem()
	if err != nil {
		return err
	}

	_, err = e.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(e.table.Name),
		Key:       key,
	})
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}

	r.forget()
	return nil
}

// encodeKey normalizes raw key values through the schema's key descriptors
// and encodes them into a key attribute map.
func encodeKey(s *Schema, hashValue any, rangeValue ...any) (Item, error) {
	key := make(Item)

	hash := s.HashKey()
	v, verr := normalize(hash.Kind, hash.Coerce, hashValue)
	if verr != nil {
		return nil, verr.at(hash.Name)
	}
	if err := putKeyAttribute(key, hash, v); err != nil {
		return nil, err
	}

	rangeField, hasRange := s.RangeKey()
	switch {
	case hasRange && len(rangeValue) != 1:
		return nil, &ValidationError{Attribute: rangeField.Name, Reason: "missing range key value"}
	case !hasRange && len(rangeValue) > 0:
		return nil, &ValidationError{Reason: fmt.Sprintf("schema %q declares no range key", s.Name())}
	case hasRange:
		v, verr := normalize(rangeField.Kind, rangeField.Coerce, rangeValue[0])
		if verr != nil {
			return nil, verr.at(rangeField.Name)
		}
		if err := putKeyAttribute(key, rangeField, v); err != nil {
			return nil, err
		}
	}
	return key, nil
}
