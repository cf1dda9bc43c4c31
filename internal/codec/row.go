// Package codec implements BytesRow, a fixed-schema little-endian
// binary row format for scalar field values. Collections persist their
// records as JSON and do not use it.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SchemaFieldType identifies the on-wire encoding of one row column.
type SchemaFieldType uint8

const (
	Int64 SchemaFieldType = iota
	Uint64
	Float32
	String
	Binary
	Boolean
	ListInt64
	ListString
	ListFloat32
)

// FieldSchema describes one column of a BytesRowSchema.
type FieldSchema struct {
	Name         string
	DataType     SchemaFieldType
	DefaultValue any
}

// BytesRowSchema is an ordered list of fields with name lookup.
type BytesRowSchema struct {
	Fields    []FieldSchema
	nameToIdx map[string]int
}

// NewSchema builds a BytesRowSchema from an ordered field list.
func NewSchema(fields []FieldSchema) *BytesRowSchema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &BytesRowSchema{Fields: fields, nameToIdx: idx}
}

// FieldIndex returns the position of name in the schema, if present.
func (s *BytesRowSchema) FieldIndex(name string) (int, bool) {
	i, ok := s.nameToIdx[name]
	return i, ok
}

// BytesRow serializes and deserializes field maps against a fixed schema.
type BytesRow struct {
	schema *BytesRowSchema
}

// NewBytesRow binds a codec to the given schema.
func NewBytesRow(schema *BytesRowSchema) *BytesRow {
	return &BytesRow{schema: schema}
}

// Serialize encodes data into the schema's fixed binary layout. Missing
// fields fall back to the schema's default value, then to the type's
// zero value.
func (r *BytesRow) Serialize(data map[string]any) []byte {
	buf := &bytes.Buffer{}
	for _, field := range r.schema.Fields {
		val, ok := data[field.Name]
		if !ok {
			val = field.DefaultValue
		}
		writeField(buf, field.DataType, val)
	}
	return buf.Bytes()
}

// Deserialize decodes a row into a field map. Fields that cannot be
// read (e.g. a truncated buffer) are omitted from the result rather
// than returning an error, matching the tolerant decode contract of
// the original row format.
func (r *BytesRow) Deserialize(data []byte) map[string]any {
	cur := bytes.NewReader(data)
	result := make(map[string]any, len(r.schema.Fields))
	for _, field := range r.schema.Fields {
		val, ok := readField(cur, field.DataType)
		if !ok {
			break
		}
		result[field.Name] = val
	}
	return result
}

// DeserializeField decodes a row and returns a single field by name.
func (r *BytesRow) DeserializeField(data []byte, name string) (any, bool) {
	v, ok := r.Deserialize(data)[name]
	return v, ok
}

func writeField(buf *bytes.Buffer, dt SchemaFieldType, val any) {
	switch dt {
	case Int64:
		binary.Write(buf, binary.LittleEndian, asInt64(val))
	case Uint64:
		binary.Write(buf, binary.LittleEndian, asUint64(val))
	case Float32:
		binary.Write(buf, binary.LittleEndian, asFloat32(val))
	case Boolean:
		if asBool(val) {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case String:
		s := asString(val)
		binary.Write(buf, binary.LittleEndian, uint16(len(s)))
		buf.WriteString(s)
	case Binary:
		s := asString(val)
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	case ListInt64:
		items := asInt64List(val)
		binary.Write(buf, binary.LittleEndian, uint32(len(items)))
		for _, v := range items {
			binary.Write(buf, binary.LittleEndian, v)
		}
	case ListFloat32:
		items := asFloat32List(val)
		binary.Write(buf, binary.LittleEndian, uint32(len(items)))
		for _, v := range items {
			binary.Write(buf, binary.LittleEndian, v)
		}
	case ListString:
		items := asStringList(val)
		binary.Write(buf, binary.LittleEndian, uint32(len(items)))
		for _, s := range items {
			binary.Write(buf, binary.LittleEndian, uint16(len(s)))
			buf.WriteString(s)
		}
	default:
		panic(fmt.Sprintf("codec: unknown field type %d", dt))
	}
}

func readField(cur *bytes.Reader, dt SchemaFieldType) (any, bool) {
	switch dt {
	case Int64:
		var v int64
		if binary.Read(cur, binary.LittleEndian, &v) != nil {
			return nil, false
		}
		return v, true
	case Uint64:
		var v uint64
		if binary.Read(cur, binary.LittleEndian, &v) != nil {
			return nil, false
		}
		return v, true
	case Float32:
		var v float32
		if binary.Read(cur, binary.LittleEndian, &v) != nil {
			return nil, false
		}
		return v, true
	case Boolean:
		b, err := cur.ReadByte()
		if err != nil {
			return nil, false
		}
		return b != 0, true
	case String:
		s, ok := readString16(cur)
		if !ok {
			return nil, false
		}
		return s, true
	case Binary:
		var n uint32
		if binary.Read(cur, binary.LittleEndian, &n) != nil {
			return nil, false
		}
		buf := make([]byte, n)
		if _, err := readFull(cur, buf); err != nil {
			return nil, false
		}
		return string(buf), true
	case ListInt64:
		var count uint32
		if binary.Read(cur, binary.LittleEndian, &count) != nil {
			return nil, false
		}
		items := make([]int64, count)
		for i := range items {
			if binary.Read(cur, binary.LittleEndian, &items[i]) != nil {
				return nil, false
			}
		}
		return items, true
	case ListFloat32:
		var count uint32
		if binary.Read(cur, binary.LittleEndian, &count) != nil {
			return nil, false
		}
		items := make([]float32, count)
		for i := range items {
			if binary.Read(cur, binary.LittleEndian, &items[i]) != nil {
				return nil, false
			}
		}
		return items, true
	case ListString:
		var count uint32
		if binary.Read(cur, binary.LittleEndian, &count) != nil {
			return nil, false
		}
		items := make([]string, count)
		for i := range items {
			s, ok := readString16(cur)
			if !ok {
				return nil, false
			}
			items[i] = s
		}
		return items, true
	default:
		return nil, false
	}
}

func readString16(cur *bytes.Reader) (string, bool) {
	var n uint16
	if binary.Read(cur, binary.LittleEndian, &n) != nil {
		return "", false
	}
	buf := make([]byte, n)
	if _, err := readFull(cur, buf); err != nil {
		return "", false
	}
	return string(buf), true
}

func readFull(cur *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := cur.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func asUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

func asFloat32(v any) float32 {
	switch n := v.(type) {
	case float32:
		return n
	case float64:
		return float32(n)
	case int64:
		return float32(n)
	case int:
		return float32(n)
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64List(v any) []int64 {
	switch arr := v.(type) {
	case []int64:
		return arr
	case []any:
		out := make([]int64, 0, len(arr))
		for _, item := range arr {
			out = append(out, asInt64(item))
		}
		return out
	default:
		return nil
	}
}

func asFloat32List(v any) []float32 {
	switch arr := v.(type) {
	case []float32:
		return arr
	case []any:
		out := make([]float32, 0, len(arr))
		for _, item := range arr {
			out = append(out, asFloat32(item))
		}
		return out
	default:
		return nil
	}
}

func asStringList(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			out = append(out, asString(item))
		}
		return out
	default:
		return nil
	}
}
