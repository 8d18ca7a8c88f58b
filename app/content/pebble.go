package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
)

const docKeyPrefix = "doc|"

var (
	docLower = []byte(docKeyPrefix)
	docUpper = []byte("doc}")
)

// PebbleStore keeps documents in a local Pebble database as JSON values under
// doc|<id> keys. Filters are evaluated in process.
type PebbleStore struct {
	db    *pebble.DB
	cache *pebble.Cache
	mu    sync.Mutex
}

func OpenPebbleStore(path string, cacheBytes int64) (*PebbleStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("content directory is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	opts := &pebble.Options{}
	if cacheBytes > 0 {
		opts.Cache = pebble.NewCache(cacheBytes)
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		if opts.Cache != nil {
			opts.Cache.Unref()
		}
		return nil, fmt.Errorf("failed to open content store: %w", err)
	}

	return &PebbleStore{db: db, cache: opts.Cache}, nil
}

func (s *PebbleStore) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.cache != nil {
		s.cache.Unref()
	}
	return err
}

func (s *PebbleStore) GetPost(ctx context.Context, id string) (*Post, error) {
	return getPost(ctx, s, id)
}

func (s *PebbleStore) Query(ctx context.Context, f Filter, out any) error {
	if err := f.validate(); err != nil {
		return err
	}

	values, err := s.scan(ctx, f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(v.value)
	}
	buf.WriteByte(']')

	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}

func (s *PebbleStore) CreateIfNotExists(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.DocumentID())
	_, closer, err := s.db.Get(key)
	if err == nil {
		closer.Close()
		return nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to read document %s: %w", doc.DocumentID(), err)
	}

	return s.put(doc)
}

func (s *PebbleStore) CreateOrReplace(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(doc)
}

func (s *PebbleStore) Patch(ctx context.Context, id string, set map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(id)
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", id, err)
	}

	fields := map[string]any{}
	decodeErr := json.Unmarshal(value, &fields)
	closer.Close()
	if decodeErr != nil {
		return fmt.Errorf("failed to decode document %s: %w", id, decodeErr)
	}

	for k, v := range set {
		fields[k] = v
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to patch document %s: %w", id, err)
	}
	return nil
}

func (s *PebbleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete(docKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *PebbleStore) DeleteByQuery(ctx context.Context, f Filter) (int, error) {
	if err := f.validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.scan(ctx, f)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, v := range values {
		if err := batch.Delete(v.key, nil); err != nil {
			return 0, fmt.Errorf("failed to stage delete: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	return len(values), nil
}

type storedDoc struct {
	key   []byte
	value []byte
}

// scan copies out every document matching f in key order.
func (s *PebbleStore) scan(ctx context.Context, f Filter) ([]storedDoc, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: docLower,
		UpperBound: docUpper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []storedDoc
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var e envelope
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", iter.Key(), err)
		}
		if !f.matches(e) {
			continue
		}

		out = append(out, storedDoc{
			key:   append([]byte(nil), iter.Key()...),
			value: append([]byte(nil), iter.Value()...),
		})
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return out, nil
}

func (s *PebbleStore) put(doc Document) error {
	if doc.DocumentID() == "" {
		return errors.New("document id is required")
	}
	stampType(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.DocumentID(), err)
	}
	if err := s.db.Set(docKey(doc.DocumentID()), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.DocumentID(), err)
	}
	return nil
}

func docKey(id string) []byte {
	return []byte(docKeyPrefix + id)
}
