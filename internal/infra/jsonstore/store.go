// Package jsonstore is the keyed-collection persistence primitive behind
// every repository. Each named collection is an independent, order-preserving
// sequence of flat records persisted as one JSON array file under the data
// directory. Every mutation rewrites the whole collection file.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

var tracer = otel.Tracer("jsonstore")

// Record is a flat entity record. The "id" key is managed by the store.
type Record = map[string]any

// Store owns the named collections. A single mutex serializes access; the
// system assumes one logical writer, the lock just keeps the HTTP layer honest.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
	data   map[string][]Record
	seq    map[string]int64
}

// Open loads every collection file under dir. A file that fails to decode is
// a fatal initialization error; there is no partial-read recovery.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger,
		data:   make(map[string][]Record),
		seq:    make(map[string]int64),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		collection := strings.TrimSuffix(name, ".json")

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read collection %q: %w", collection, err)
		}

		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode collection %q: %w", collection, err)
		}

		s.data[collection] = records
		s.seq[collection] = maxID(records)
		logger.Debug("collection loaded",
			zap.String("collection", collection),
			zap.Int("records", len(records)),
		)
	}

	logger.Info("store opened", zap.String("dir", dir), zap.Int("collections", len(s.data)))
	return s, nil
}

// recordID extracts the integer id of a record regardless of how JSON
// decoding represented the number.
func recordID(rec Record) int64 {
	switch v := rec["id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		id, _ := v.Int64()
		return id
	default:
		return 0
	}
}

// maxID returns the highest id present in a collection, 0 when empty.
func maxID(records []Record) int64 {
	var max int64
	for _, rec := range records {
		if id := recordID(rec); id > max {
			max = id
		}
	}
	return max
}

// nextID advances the collection's id high-water mark, seeded at Open from
// the loaded records. The mark only ever grows while the store is open, so
// ids of deleted records are not handed out again. Callers must hold s.mu.
func (s *Store) nextID(collection string) int64 {
	s.seq[collection]++
	return s.seq[collection]
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func cloneCollection(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = cloneRecord(rec)
	}
	return out
}

// Get returns the full sequence of a collection in insertion order.
// Unknown collections are lazily treated as empty.
func (s *Store) Get(ctx context.Context, collection string) []Record {
	_, span := tracer.Start(ctx, "Store.Get")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCollection(s.data[collection])
}

// Post appends a record with a freshly assigned id and rewrites the collection.
func (s *Store) Post(ctx context.Context, collection string, rec Record) (Record, error) {
	_, span := tracer.Start(ctx, "Store.Post")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRecord(rec)
	stored["id"] = s.nextID(collection)
	updated := append(s.data[collection], stored)

	if err := s.flush(collection, updated); err != nil {
		return nil, err
	}
	s.data[collection] = updated

	return cloneRecord(stored), nil
}

// Update shallow-merges patch into the record with the given id and rewrites
// the collection. The id itself cannot be patched.
func (s *Store) Update(ctx context.Context, collection string, id int64, patch Record) (Record, error) {
	_, span := tracer.Start(ctx, "Store.Update")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int64("id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	records, merged, err := mergeInto(s.data[collection], collection, id, patch)
	if err != nil {
		return nil, err
	}
	if err := s.flush(collection, records); err != nil {
		return nil, err
	}
	s.data[collection] = records

	return cloneRecord(merged), nil
}

// Delete removes the record with the given id and rewrites the collection.
func (s *Store) Delete(ctx context.Context, collection string, id int64) error {
	_, span := tracer.Start(ctx, "Store.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int64("id", id))

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := removeFrom(s.data[collection], collection, id)
	if err != nil {
		return err
	}
	if err := s.flush(collection, records); err != nil {
		return err
	}
	s.data[collection] = records
	return nil
}

// Collections returns the record count per loaded collection, for health checks.
func (s *Store) Collections() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.data))
	for name, records := range s.data {
		out[name] = len(records)
	}
	return out
}

// flush rewrites one collection file via temp file + rename.
// Callers must hold s.mu.
func (s *Store) flush(collection string, records []Record) error {
	path, err := s.writeTemp(collection, records)
	if err != nil {
		return err
	}
	if err := os.Rename(path, s.collectionPath(collection)); err != nil {
		return &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return nil
}

func (s *Store) collectionPath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// writeTemp serializes the collection into a temp file next to its final
// location and returns the temp path.
func (s *Store) writeTemp(collection string, records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", &domain.ErrArmazenamento{Collection: collection, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return "", &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &domain.ErrArmazenamento{Collection: collection, Err: err}
	}
	return tmp.Name(), nil
}

func mergeInto(records []Record, collection string, id int64, patch Record) ([]Record, Record, error) {
	out := cloneCollection(records)
	for i, rec := range out {
		if recordID(rec) != id {
			continue
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
		out[i] = rec
		return out, rec, nil
	}
	return nil, nil, &domain.ErrNaoEncontrado{Resource: collection, ID: id}
}

func removeFrom(records []Record, collection string, id int64) ([]Record, error) {
	out := make([]Record, 0, len(records))
	found := false
	for _, rec := range records {
		if recordID(rec) == id {
			found = true
			continue
		}
		out = append(out, rec)
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: collection, ID: id}
	}
	return out, nil
}
