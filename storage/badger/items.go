package badger

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/storage"
)

// ItemRepository implements storage.ItemRepository for BadgerDB.
//
// Catalog items are flat key-value records: the primary record under an
// ID key, a source-URL index for dedup lookups, and an ingested-at index
// for chronological listing. The store-wide revision comes from a badger
// sequence, so increments never go through read-modify-write.
type ItemRepository struct {
	backend  *Backend
	revSeq   *badger.Sequence
	revision atomic.Uint64
}

var _ storage.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(backend *Backend) (*ItemRepository, error) {
	revSeq, err := backend.GetSequence(revisionSeq)
	if err != nil {
		return nil, err
	}

	r := &ItemRepository{
		backend: backend,
		revSeq:  revSeq,
	}

	// Recover the last stamped revision after a restart.
	err = backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(revisionKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			r.revision.Store(uint64(id))
			return nil
		})
	}, false)
	if err != nil {
		revSeq.Release()
		return nil, err
	}

	return r, nil
}

// Close releases the revision sequence.
func (r *ItemRepository) Close() error {
	return r.revSeq.Release()
}

// Upsert inserts or replaces a catalog item, stamping it with a fresh
// store revision. The original IngestedAt survives replacement.
func (r *ItemRepository) Upsert(ctx context.Context, item *core.CatalogItem) (*core.CatalogItem, error) {
	rev, err := r.nextRevision()
	if err != nil {
		return nil, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(item.Id)

		old, err := readItem(tx, key)
		if err != nil {
			return err
		}

		// IDs are derived from kind and source URL. A stored item under
		// the same ID but a different source means a hash collision, and
		// replacing it would orphan its source index entry.
		if old != nil && (old.Kind != item.Kind || old.SourceURL != item.SourceURL) {
			return fmt.Errorf("%w: id %d already bound to %s", storage.ErrDuplicateKey, item.Id, old.SourceURL)
		}

		if old != nil {
			item.IngestedAt = old.IngestedAt
		} else if item.IngestedAt.IsZero() {
			item.IngestedAt = time.Now().UTC()
		}
		item.Revision = rev

		if err := tx.Set(key, storage.MarshalCatalogItem(item)); err != nil {
			return err
		}

		if err := tx.Set(makeSourceKey(item.Kind, item.SourceURL), storage.MarshalID(item.Id)); err != nil {
			return err
		}

		// The ingested-at index entry moves only when the timestamp does.
		if old != nil && !old.IngestedAt.Equal(item.IngestedAt) {
			if err := tx.Delete(makeIngestedKey(old.IngestedAt, old.Id)); err != nil {
				return err
			}
		}
		if err := tx.Set(makeIngestedKey(item.IngestedAt, item.Id), storage.MarshalID(item.Id)); err != nil {
			return err
		}

		if err := tx.Set([]byte(revisionKey), storage.MarshalID(core.ID(rev))); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.storeRevision(rev)
	return item, nil
}

// Get retrieves a single item by ID.
func (r *ItemRepository) Get(ctx context.Context, id core.ID) (*core.CatalogItem, error) {
	var result *core.CatalogItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readItem(tx, makeItemKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// List retrieves items ordered by IngestedAt descending, newest first.
// kind 0 disables the kind filter.
func (r *ItemRepository) List(ctx context.Context, kind core.ItemKind, offset, limit int) ([]*core.CatalogItem, error) {
	if offset < 0 || limit < 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.CatalogItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the newest possible index entry, then walk backwards.
		startKey := makePartialIngestedKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(itemIngestedPrefix + ":")

		skipped := 0
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			item, err := readItem(tx, makeItemKey(id))
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			if kind != 0 && item.Kind != kind {
				continue
			}

			if skipped < offset {
				skipped++
				continue
			}
			results = append(results, item)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)

	return results, err
}

// All retrieves every stored item. Order is unspecified.
func (r *ItemRepository) All(ctx context.Context) ([]*core.CatalogItem, error) {
	var results []*core.CatalogItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var item *core.CatalogItem
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = storage.UnmarshalCatalogItem(val)
				return err
			}); err != nil {
				return err
			}
			if item != nil {
				results = append(results, item)
			}
		}
		return nil
	}, false)
	return results, err
}

// ExistsBySource reports whether the given source is already catalogued.
func (r *ItemRepository) ExistsBySource(ctx context.Context, kind core.ItemKind, sourceURL string) (core.ID, bool, error) {
	normalized := core.NormalizeSourceURL(kind, sourceURL)

	var id core.ID
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSourceKey(kind, normalized))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		})
	}, false)

	return id, found, err
}

// Delete removes an item and its index entries. Incident similarity
// edges are the edge repository's concern; callers remove those first.
func (r *ItemRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeItemKey(id)

		item, err := readItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeSourceKey(item.Kind, item.SourceURL)); err != nil {
			return err
		}
		if err := tx.Delete(makeIngestedKey(item.IngestedAt, item.Id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Stats computes store-wide counts and score averages in one scan.
func (r *ItemRepository) Stats(ctx context.Context) (storage.ItemStats, error) {
	var stats storage.ItemStats
	var relSum, intSum float64

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(itemPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *core.CatalogItem
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				item, err = storage.UnmarshalCatalogItem(val)
				return err
			}); err != nil {
				return err
			}
			if item == nil {
				continue
			}

			stats.TotalItems++
			switch item.Kind {
			case core.KindPaper:
				stats.TotalPapers++
			case core.KindRepository:
				stats.TotalRepos++
			}
			relSum += item.Analysis.RelevancyScore
			intSum += item.Analysis.InterestingScore
		}
		return nil
	}, false)
	if err != nil {
		return storage.ItemStats{}, err
	}

	if stats.TotalItems > 0 {
		stats.AvgRelevancy = relSum / float64(stats.TotalItems)
		stats.AvgInteresting = intSum / float64(stats.TotalItems)
	}
	return stats, nil
}

// Revision returns the latest stamped store revision.
func (r *ItemRepository) Revision() uint64 {
	return r.revision.Load()
}

// nextRevision draws the next revision from the badger sequence.
// Sequences can return 0 on first use, which is reserved for "no revision".
func (r *ItemRepository) nextRevision() (uint64, error) {
	rev, err := r.revSeq.Next()
	if err != nil {
		return 0, err
	}
	if rev == 0 {
		rev, err = r.revSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return rev, nil
}

// storeRevision advances the in-memory view, keeping the max observed.
func (r *ItemRepository) storeRevision(rev uint64) {
	for {
		cur := r.revision.Load()
		if rev <= cur || r.revision.CompareAndSwap(cur, rev) {
			return
		}
	}
}

// readItem reads a catalog item from the transaction.
// Returns nil without error when the key is absent.
func readItem(tx *badger.Txn, key []byte) (*core.CatalogItem, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.CatalogItem
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalCatalogItem(val)
		return unmarshalErr
	})
	return record, err
}
