package cache

import (
	"encoding/binary"
	"encoding/json"
	"hash"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

// cacheKey combines a flag key and its context fingerprint into the string
// this package uses as its internal map/LRU key.
func cacheKey(flagKey string, ctx flagmodel.EvaluationContext) string {
	return flagKey + "\x00" + fingerprint(ctx)
}

// fingerprint hashes an evaluation context into a stable 64-bit FNV-1a
// digest: targeting_key followed by each (field_name, field_value) pair
// sorted by field name. Field values are type-tagged before hashing so
// that, e.g., the string "1" and the number 1 never collide.
func fingerprint(ctx flagmodel.EvaluationContext) string {
	h := fnv.New64a()
	h.Write([]byte("targetingKey\x00"))
	h.Write([]byte(ctx.TargetingKey))

	names := make([]string, 0, len(ctx.Fields))
	for name := range ctx.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{0})
		writeTaggedValue(h, ctx.Fields[name])
	}

	return strconv.FormatUint(h.Sum64(), 16)
}

func writeTaggedValue(h hash.Hash, v any) {
	switch val := v.(type) {
	case nil:
		h.Write([]byte{'n'})
	case bool:
		h.Write([]byte{'b'})
		if val {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case string:
		h.Write([]byte{'s'})
		h.Write([]byte(val))
	case json.Number:
		writeJSONNumber(h, val)
	case int:
		writeInt64(h, int64(val))
	case int32:
		writeInt64(h, int64(val))
	case int64:
		writeInt64(h, val)
	case float32:
		writeFloat64(h, float64(val))
	case float64:
		writeFloat64(h, val)
	case time.Time:
		h.Write([]byte{'d'})
		h.Write([]byte(val.UTC().Format(time.RFC3339Nano)))
	default:
		h.Write([]byte{'j'})
		b, err := json.Marshal(val)
		if err != nil {
			h.Write([]byte(`"<unmarshalable>"`))
			return
		}
		h.Write(b)
	}
}

func writeJSONNumber(h hash.Hash, n json.Number) {
	if i, err := n.Int64(); err == nil {
		writeInt64(h, i)
		return
	}
	f, err := n.Float64()
	if err != nil {
		h.Write([]byte{'n'})
		return
	}
	writeFloat64(h, f)
}

func writeInt64(h hash.Hash, i int64) {
	h.Write([]byte{'i'})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	h.Write(buf[:])
}

func writeFloat64(h hash.Hash, f float64) {
	h.Write([]byte{'f'})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	h.Write(buf[:])
}
