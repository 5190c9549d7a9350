package jsonstore

import (
	"context"
	"encoding/json"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

// Typed helpers bridge the untyped record store and the domain structs.
// They are package functions because methods cannot carry type parameters.

func decode[T any](rec Record) (T, error) {
	var out T
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func encode[T any](v T) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeAll[T any](collection string, records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		v, err := decode[T](rec)
		if err != nil {
			return nil, &domain.ErrArmazenamento{Collection: collection, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}

// All decodes every record of a collection in insertion order.
func All[T any](ctx context.Context, s *Store, collection string) ([]T, error) {
	return decodeAll[T](collection, s.Get(ctx, collection))
}

// Insert encodes v, appends it with a fresh id and returns the stored value.
func Insert[T any](ctx context.Context, s *Store, collection string, v T) (T, error) {
	var zero T
	rec, err := encode(v)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	stored, err := s.Post(ctx, collection, rec)
	if err != nil {
		return zero, err
	}
	out, err := decode[T](stored)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return out, nil
}

// Patch shallow-merges the given fields into the record with the given id.
func Patch[T any](ctx context.Context, s *Store, collection string, id int64, patch Record) (T, error) {
	var zero T
	merged, err := s.Update(ctx, collection, id, patch)
	if err != nil {
		return zero, err
	}
	out, err := decode[T](merged)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return out, nil
}

// Find decodes the record with the given id. Absence is not an error; the
// boolean tells the caller whether anything was found.
func Find[T any](ctx context.Context, s *Store, collection string, id int64) (T, bool, error) {
	var zero T
	for _, rec := range s.Get(ctx, collection) {
		if recordID(rec) != id {
			continue
		}
		out, err := decode[T](rec)
		if err != nil {
			return zero, false, &domain.ErrArmazenamento{Collection: collection, Err: err}
		}
		return out, true, nil
	}
	return zero, false, nil
}

// AllTx is All against a transaction's staged view.
func AllTx[T any](tx *Tx, collection string) ([]T, error) {
	return decodeAll[T](collection, tx.Get(collection))
}

// InsertTx is Insert against a transaction's staged view.
func InsertTx[T any](tx *Tx, collection string, v T) (T, error) {
	var zero T
	rec, err := encode(v)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	stored := tx.Post(collection, rec)
	out, err := decode[T](stored)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return out, nil
}

// PatchTx is Patch against a transaction's staged view.
func PatchTx[T any](tx *Tx, collection string, id int64, patch Record) (T, error) {
	var zero T
	merged, err := tx.Update(collection, id, patch)
	if err != nil {
		return zero, err
	}
	out, err := decode[T](merged)
	if err != nil {
		return zero, &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return out, nil
}

// FindTx is Find against a transaction's staged view.
func FindTx[T any](tx *Tx, collection string, id int64) (T, bool, error) {
	var zero T
	for _, rec := range tx.Get(collection) {
		if recordID(rec) != id {
			continue
		}
		out, err := decode[T](rec)
		if err != nil {
			return zero, false, &domain.ErrArmazenamento{Collection: collection, Err: err}
		}
		return out, true, nil
	}
	return zero, false, nil
}
