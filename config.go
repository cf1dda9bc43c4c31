package vectordb

import (
	"encoding/json"
	"strings"

	"github.com/diffsec/vectordb/internal/distance"
)

// FieldType is the declared type of one column in a collection schema.
type FieldType uint8

const (
	FieldInt64 FieldType = iota
	FieldFloat32
	FieldString
	FieldBool
	FieldVector
	FieldListString
	FieldListInt64
	FieldListFloat32
	FieldPath
	FieldDateTime
	FieldGeoPoint
	FieldSparseVector
)

func (t FieldType) String() string {
	switch t {
	case FieldInt64:
		return "int64"
	case FieldFloat32:
		return "float32"
	case FieldString:
		return "string"
	case FieldBool:
		return "bool"
	case FieldVector:
		return "vector"
	case FieldListString:
		return "list<string>"
	case FieldListInt64:
		return "list<int64>"
	case FieldListFloat32:
		return "list<float32>"
	case FieldPath:
		return "path"
	case FieldDateTime:
		return "date_time"
	case FieldGeoPoint:
		return "geo_point"
	case FieldSparseVector:
		return "sparse_vector"
	default:
		return "string"
	}
}

// ParseFieldType accepts the loose spellings a config file might use.
func ParseFieldType(s string) FieldType {
	switch strings.ToLower(s) {
	case "int64", "int", "integer":
		return FieldInt64
	case "float32", "float", "double":
		return FieldFloat32
	case "string", "str", "text":
		return FieldString
	case "bool", "boolean":
		return FieldBool
	case "vector":
		return FieldVector
	case "list<string>":
		return FieldListString
	case "list<int64>":
		return FieldListInt64
	case "list<float32>":
		return FieldListFloat32
	case "path":
		return FieldPath
	case "date_time", "datetime":
		return FieldDateTime
	case "geo_point", "geopoint":
		return FieldGeoPoint
	case "sparse_vector":
		return FieldSparseVector
	default:
		return FieldString
	}
}

func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseFieldType(s)
	return nil
}

// FieldDef declares one column of a collection schema.
type FieldDef struct {
	Name         string    `json:"name" yaml:"name"`
	Type         FieldType `json:"field_type" yaml:"field_type"`
	IsPrimaryKey bool      `json:"is_primary_key,omitempty" yaml:"is_primary_key,omitempty"`
	Dim          int       `json:"dim,omitempty" yaml:"dim,omitempty"`
}

// CollectionConfig is the immutable-after-creation schema of a collection.
type CollectionConfig struct {
	Name        string     `json:"name" yaml:"name"`
	Fields      []FieldDef `json:"fields" yaml:"fields"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// PrimaryKey returns the name of the schema's primary-key field, if any.
func (c CollectionConfig) PrimaryKey() (string, bool) {
	for _, f := range c.Fields {
		if f.IsPrimaryKey {
			return f.Name, true
		}
	}
	return "", false
}

// VectorField returns the schema's vector field, if any.
func (c CollectionConfig) VectorField() (FieldDef, bool) {
	for _, f := range c.Fields {
		if f.Type == FieldVector {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Dimension returns the configured vector dimension, or 0 if there is
// no vector field.
func (c CollectionConfig) Dimension() int {
	if f, ok := c.VectorField(); ok {
		return f.Dim
	}
	return 0
}

// IndexConfig describes one named vector index on a collection.
type IndexConfig struct {
	IndexType         string          `yaml:"index_type"` // "flat" or "hnsw"
	Distance          distance.Metric `yaml:"-"`
	ScalarIndexFields []string        `yaml:"scalar_index_fields,omitempty"`
}

// DefaultIndexConfig returns a flat/cosine index with no acceleration.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{IndexType: "flat", Distance: distance.Cosine}
}

type indexConfigJSON struct {
	IndexType         string   `json:"index_type"`
	Distance          string   `json:"distance"`
	ScalarIndexFields []string `json:"scalar_index_fields,omitempty"`
}

func (c IndexConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(indexConfigJSON{
		IndexType:         c.IndexType,
		Distance:          c.Distance.String(),
		ScalarIndexFields: c.ScalarIndexFields,
	})
}

func (c *IndexConfig) UnmarshalJSON(data []byte) error {
	var j indexConfigJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	c.IndexType = j.IndexType
	c.Distance = distance.ParseMetric(j.Distance)
	c.ScalarIndexFields = j.ScalarIndexFields
	return nil
}
