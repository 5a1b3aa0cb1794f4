package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/researchgraph/core"
)

// Key prefixes for different data types
const (
	itemPrefix         = "catitem"
	itemSourcePrefix   = "catsrc"
	itemIngestedPrefix = "cating"
	edgePrefix         = "catedge"
	edgeReversePrefix  = "catedgi"
	revisionSeq        = "catrevseq"
	revisionKey        = "catrevcur"
)

// makeItemKey generates a key for a catalog item by ID.
func makeItemKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", itemPrefix, id))
}

// makeSourceKey generates a key for the source URL index.
// Format: prefix:kind:normalizedURL
func makeSourceKey(kind core.ItemKind, normalizedURL string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s", itemSourcePrefix, kind, normalizedURL))
}

// makeIngestedKey generates a composite key for the ingested-at index.
// Format: prefix:timestamp:id, BigEndian so lexicographic order matches
// chronological order.
func makeIngestedKey(ingestedAt time.Time, id core.ID) []byte {
	prefix := []byte(itemIngestedPrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ingestedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialIngestedKey generates a partial key for ingested-at scans.
func makePartialIngestedKey(ingestedAt time.Time) []byte {
	prefix := []byte(itemIngestedPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ingestedAt.UnixMicro()))
	return buf
}

// makeEdgeKey generates the canonical key for an edge. Callers must pass
// a <= b; edge keys always store the smaller ID first.
// Format: prefix:a:b, BigEndian.
func makeEdgeKey(a, b core.ID) []byte {
	prefix := []byte(edgePrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(a))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(b))
	return buf
}

// makePartialEdgeKey generates a partial key covering all canonical edges
// whose smaller endpoint is a.
func makePartialEdgeKey(a core.ID) []byte {
	prefix := []byte(edgePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(a))
	return buf
}

// makeEdgeReverseKey generates the reverse incidence index key for an
// edge, keyed by the larger endpoint. The value holds the smaller
// endpoint so the canonical key can be reconstructed.
// Format: prefix:b:a, BigEndian.
func makeEdgeReverseKey(b, a core.ID) []byte {
	prefix := []byte(edgeReversePrefix + ":")
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(b))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(a))
	return buf
}

// makePartialEdgeReverseKey generates a partial key covering all reverse
// index entries whose larger endpoint is b.
func makePartialEdgeReverseKey(b core.ID) []byte {
	prefix := []byte(edgeReversePrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(b))
	return buf
}
