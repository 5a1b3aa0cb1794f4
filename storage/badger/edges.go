package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/storage"
)

// EdgeRepository implements storage.EdgeRepository for BadgerDB.
//
// Each edge is stored once under its canonical (smaller ID first) key,
// with a reverse index entry keyed by the larger endpoint so incident
// edges can be found from either side with a prefix scan.
type EdgeRepository struct {
	backend *Backend
}

var _ storage.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(backend *Backend) *EdgeRepository {
	return &EdgeRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *EdgeRepository) Close() error {
	return nil
}

// ReplaceIncident atomically replaces every edge incident to id.
func (r *EdgeRepository) ReplaceIncident(ctx context.Context, id core.ID, edges []core.SimilarityEdge) error {
	for _, e := range edges {
		c := e.Canonical()
		if c.A == c.B {
			return storage.ErrSelfEdge
		}
		if c.A != id && c.B != id {
			return storage.ErrInvalidQuery
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteIncident(tx, id); err != nil {
			return err
		}
		for _, e := range edges {
			c := e.Canonical()
			if err := tx.Set(makeEdgeKey(c.A, c.B), storage.MarshalSimilarityEdge(&c)); err != nil {
				return err
			}
			if err := tx.Set(makeEdgeReverseKey(c.B, c.A), storage.MarshalID(c.A)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteIncident removes every edge incident to id.
func (r *EdgeRepository) DeleteIncident(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteIncident(tx, id); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Neighbors returns all edges incident to id.
func (r *EdgeRepository) Neighbors(ctx context.Context, id core.ID) ([]core.SimilarityEdge, error) {
	var results []core.SimilarityEdge
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Edges where id is the smaller endpoint.
		lower, err := readEdgesByPrefix(tx, makePartialEdgeKey(id))
		if err != nil {
			return err
		}
		results = append(results, lower...)

		// Edges where id is the larger endpoint, located via reverse index.
		others, err := reverseEndpoints(tx, id)
		if err != nil {
			return err
		}
		for _, a := range others {
			edge, err := readEdge(tx, makeEdgeKey(a, id))
			if err != nil {
				return err
			}
			if edge != nil {
				results = append(results, *edge)
			}
		}
		return nil
	}, false)
	return results, err
}

// AllEdges returns every edge with weight >= minWeight.
func (r *EdgeRepository) AllEdges(ctx context.Context, minWeight float64) ([]core.SimilarityEdge, error) {
	var results []core.SimilarityEdge
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(edgePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var edge *core.SimilarityEdge
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				edge, err = storage.UnmarshalSimilarityEdge(val)
				return err
			}); err != nil {
				return err
			}
			if edge != nil && edge.Weight >= minWeight {
				results = append(results, *edge)
			}
		}
		return nil
	}, false)
	return results, err
}

// EdgeCount returns the number of stored edges.
func (r *EdgeRepository) EdgeCount(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(edgePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// deleteIncident removes edge records and reverse entries touching id
// within the given transaction.
func deleteIncident(tx *badger.Txn, id core.ID) error {
	// id as the smaller endpoint: scan canonical keys.
	lower, err := readEdgesByPrefix(tx, makePartialEdgeKey(id))
	if err != nil {
		return err
	}
	for _, e := range lower {
		if err := tx.Delete(makeEdgeKey(e.A, e.B)); err != nil {
			return err
		}
		if err := tx.Delete(makeEdgeReverseKey(e.B, e.A)); err != nil {
			return err
		}
	}

	// id as the larger endpoint: scan the reverse index.
	others, err := reverseEndpoints(tx, id)
	if err != nil {
		return err
	}
	for _, a := range others {
		if err := tx.Delete(makeEdgeKey(a, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeEdgeReverseKey(id, a)); err != nil {
			return err
		}
	}
	return nil
}

// reverseEndpoints returns the smaller endpoints of all edges whose
// larger endpoint is id.
func reverseEndpoints(tx *badger.Txn, id core.ID) ([]core.ID, error) {
	var result []core.ID
	startKey := makePartialEdgeReverseKey(id)
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(startKey); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
			break
		}
		var a core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			a, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// readEdgesByPrefix collects edge records whose key starts with prefix.
func readEdgesByPrefix(tx *badger.Txn, prefix []byte) ([]core.SimilarityEdge, error) {
	var results []core.SimilarityEdge
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
			break
		}
		var edge *core.SimilarityEdge
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			edge, err = storage.UnmarshalSimilarityEdge(val)
			return err
		}); err != nil {
			return nil, err
		}
		if edge != nil {
			results = append(results, *edge)
		}
	}
	return results, nil
}

// readEdge reads a single edge record. Returns nil when absent.
func readEdge(tx *badger.Txn, key []byte) (*core.SimilarityEdge, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var edge *core.SimilarityEdge
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		edge, unmarshalErr = storage.UnmarshalSimilarityEdge(val)
		return unmarshalErr
	})
	return edge, err
}
