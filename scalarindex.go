package vectordb

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// scalarAccelerator narrows candidate labels for a must/range predicate
// on one of an index's configured scalar_index_fields, backed by a
// small bbolt database: one bucket per field, keyed by an
// order-preserving encoding of the field value, holding the set of
// labels that carry it. It is a pure acceleration layer: every label it
// returns is still re-checked against the real filter evaluator, so an
// imprecise or stale candidate set can only cost extra work, never a
// wrong answer.
type scalarAccelerator struct {
	db     *bbolt.DB
	fields map[string]bool
}

func openScalarAccelerator(dir string, fields []string) (*scalarAccelerator, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(filepath.Join(dir, "scalar.bolt"), 0o644, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, f := range fields {
			if _, err := tx.CreateBucketIfNotExists([]byte(f)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	fieldSet := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldSet[f] = true
	}
	return &scalarAccelerator{db: db, fields: fieldSet}, nil
}

func (a *scalarAccelerator) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}

// index records label under every accelerated field present in fields.
func (a *scalarAccelerator) index(label uint64, fields map[string]any) error {
	if a == nil {
		return nil
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		for name := range a.fields {
			v, ok := fields[name]
			if !ok {
				continue
			}
			key, ok := sortableKey(v)
			if !ok {
				continue
			}
			if err := appendLabel(tx.Bucket([]byte(name)), key, label); err != nil {
				return err
			}
		}
		return nil
	})
}

// remove un-records label from every accelerated field present in
// fields, which must be the field values the label was indexed under.
func (a *scalarAccelerator) remove(label uint64, fields map[string]any) error {
	if a == nil {
		return nil
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		for name := range a.fields {
			v, ok := fields[name]
			if !ok {
				continue
			}
			key, ok := sortableKey(v)
			if !ok {
				continue
			}
			if err := removeLabel(tx.Bucket([]byte(name)), key, label); err != nil {
				return err
			}
		}
		return nil
	})
}

// reset drops and recreates every bucket, used by DeleteAllData.
func (a *scalarAccelerator) reset() error {
	if a == nil {
		return nil
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		for name := range a.fields {
			if err := tx.DeleteBucket([]byte(name)); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// candidatesForMust returns the union of labels recorded under any of
// conds for field, or ok=false if field is not accelerated.
func (a *scalarAccelerator) candidatesForMust(field string, conds []any) (map[uint64]bool, bool) {
	if a == nil || !a.fields[field] {
		return nil, false
	}
	out := make(map[uint64]bool)
	_ = a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(field))
		for _, v := range conds {
			key, ok := sortableKey(v)
			if !ok {
				continue
			}
			for _, l := range decodeLabels(b.Get(key)) {
				out[l] = true
			}
		}
		return nil
	})
	return out, true
}

// candidatesForRange returns the union of labels whose encoded key
// falls within [gte, lte] (either bound may be nil), or ok=false if
// field is not accelerated. Bounds are treated as inclusive; the exact
// comparison (including exclusivity) is re-checked by the filter
// evaluator afterward.
func (a *scalarAccelerator) candidatesForRange(field string, gte, lte any) (map[uint64]bool, bool) {
	if a == nil || !a.fields[field] {
		return nil, false
	}
	var lo, hi []byte
	if gte != nil {
		lo, _ = sortableKey(gte)
	}
	if lte != nil {
		hi, _ = sortableKey(lte)
	}
	out := make(map[uint64]bool)
	_ = a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(field))
		c := b.Cursor()
		var k, v []byte
		if lo != nil {
			k, v = c.Seek(lo)
		} else {
			k, v = c.First()
		}
		for ; k != nil; k, v = c.Next() {
			if hi != nil && bytes.Compare(k, hi) > 0 {
				break
			}
			for _, l := range decodeLabels(v) {
				out[l] = true
			}
		}
		return nil
	})
	return out, true
}

func appendLabel(b *bbolt.Bucket, key []byte, label uint64) error {
	existing := b.Get(key)
	buf := make([]byte, len(existing)+8)
	copy(buf, existing)
	binary.BigEndian.PutUint64(buf[len(existing):], label)
	return b.Put(key, buf)
}

func removeLabel(b *bbolt.Bucket, key []byte, label uint64) error {
	existing := b.Get(key)
	if existing == nil {
		return nil
	}
	out := make([]byte, 0, len(existing))
	for i := 0; i+8 <= len(existing); i += 8 {
		if binary.BigEndian.Uint64(existing[i:i+8]) != label {
			out = append(out, existing[i:i+8]...)
		}
	}
	if len(out) == 0 {
		return b.Delete(key)
	}
	return b.Put(key, out)
}

func decodeLabels(buf []byte) []uint64 {
	out := make([]uint64, 0, len(buf)/8)
	for i := 0; i+8 <= len(buf); i += 8 {
		out = append(out, binary.BigEndian.Uint64(buf[i:i+8]))
	}
	return out
}

// sortableKey encodes a scalar field value into bytes whose natural
// (big-endian) ordering matches the value's own ordering, so a bbolt
// cursor scan can serve range queries. Numbers use the standard
// sign-flip trick over their IEEE-754 bits; strings sort as their raw
// bytes already do.
func sortableKey(v any) ([]byte, bool) {
	switch t := v.(type) {
	case float64:
		return sortableFloat64(t), true
	case float32:
		return sortableFloat64(float64(t)), true
	case int:
		return sortableFloat64(float64(t)), true
	case int64:
		return sortableFloat64(float64(t)), true
	case uint64:
		return sortableFloat64(float64(t)), true
	case string:
		return []byte(t), true
	case bool:
		if t {
			return []byte{1}, true
		}
		return []byte{0}, true
	default:
		return nil, false
	}
}

func sortableFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if f >= 0 {
		bits |= 0x8000000000000000
	} else {
		bits = ^bits
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}
