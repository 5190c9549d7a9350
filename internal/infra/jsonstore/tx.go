package jsonstore

import (
	"context"
	"os"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

// Tx stages mutations across collections so that a multi-entity write (a
// pagamento plus its recomputed cobrança, for example) hits disk as one unit.
// Collections are copied on first touch; nothing is visible to readers until
// Apply commits.
type Tx struct {
	s      *Store
	staged map[string][]Record
}

func (t *Tx) collection(name string) []Record {
	if records, ok := t.staged[name]; ok {
		return records
	}
	records := cloneCollection(t.s.data[name])
	t.staged[name] = records
	return records
}

// Get returns the staged view of a collection.
func (t *Tx) Get(collection string) []Record {
	return cloneCollection(t.collection(collection))
}

// Post stages an append with a freshly assigned id.
func (t *Tx) Post(collection string, rec Record) Record {
	records := t.collection(collection)
	stored := cloneRecord(rec)
	stored["id"] = t.s.nextID(collection)
	t.staged[collection] = append(records, stored)
	return cloneRecord(stored)
}

// Update stages a shallow merge into the record with the given id.
func (t *Tx) Update(collection string, id int64, patch Record) (Record, error) {
	records, merged, err := mergeInto(t.collection(collection), collection, id, patch)
	if err != nil {
		return nil, err
	}
	t.staged[collection] = records
	return cloneRecord(merged), nil
}

// Delete stages the removal of the record with the given id.
func (t *Tx) Delete(collection string, id int64) error {
	records, err := removeFrom(t.collection(collection), collection, id)
	if err != nil {
		return err
	}
	t.staged[collection] = records
	return nil
}

// Apply runs fn against a staged view of the store and commits every touched
// collection together. Files are serialized to temp files first, so a write
// error on any collection aborts the whole commit before a single rename.
func (s *Store) Apply(ctx context.Context, fn func(tx *Tx) error) error {
	_, span := tracer.Start(ctx, "Store.Apply")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, staged: make(map[string][]Record)}
	if err := fn(tx); err != nil {
		return err
	}

	names := make([]string, 0, len(tx.staged))
	for name := range tx.staged {
		names = append(names, name)
	}
	sort.Strings(names)
	span.SetAttributes(attribute.StringSlice("collections", names))

	temps := make(map[string]string, len(names))
	for _, name := range names {
		path, err := s.writeTemp(name, tx.staged[name])
		if err != nil {
			for _, tmp := range temps {
				os.Remove(tmp)
			}
			return err
		}
		temps[name] = path
	}

	for _, name := range names {
		if err := os.Rename(temps[name], s.collectionPath(name)); err != nil {
			s.logger.Error("transaction commit interrupted",
				zap.String("collection", name), zap.Error(err))
			return &domain.ErrArmazenamento{Collection: name, Err: err}
		}
		s.data[name] = tx.staged[name]
	}
	return nil
}
