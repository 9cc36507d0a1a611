// Package datasource provides record streams for the sensor region. A data
// source also answers min/max queries over its numeric fields, which the
// network factory uses to size scalar encoders.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

const (
	FieldTypeFloat    = "float"
	FieldTypeInt      = "int"
	FieldTypeString   = "string"
	FieldTypeDatetime = "datetime"

	FlagReset    = "R"
	FlagSequence = "S"
	FlagCategory = "C"
	FlagTime     = "T"
)

var (
	ErrFieldNotFound   = errors.New("field not found")
	ErrFieldNotNumeric = errors.New("field is not numeric")
	ErrNoValues        = errors.New("field has no values")
)

type Field struct {
	Name string
	Type string
	Flag string
}

func (f Field) Numeric() bool {
	return f.Type == FieldTypeFloat || f.Type == FieldTypeInt
}

// Record is one row of a source. Values are keyed by field name; the special
// fields are also surfaced separately.
type Record struct {
	Values     map[string]any
	Reset      bool
	SequenceID string
	Category   string
}

type DataSource interface {
	Fields() []Field
	FieldMin(name string) (float64, error)
	FieldMax(name string) (float64, error)
	// Next returns io.EOF once every record has been read.
	Next(ctx context.Context) (Record, error)
	Rewind()
}

// MemorySource serves records held in memory.
type MemorySource struct {
	fields []Field
	rows   []map[string]any

	bounds map[string][2]float64

	mu  sync.Mutex
	pos int
}

func NewMemorySource(fields []Field, rows []map[string]any) (*MemorySource, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field.Name == "" {
			return nil, errors.New("field name is required")
		}
		if _, dup := seen[field.Name]; dup {
			return nil, fmt.Errorf("duplicate field %s", field.Name)
		}
		seen[field.Name] = struct{}{}
	}

	s := &MemorySource{
		fields: append([]Field(nil), fields...),
		rows:   rows,
		bounds: make(map[string][2]float64),
	}
	for _, field := range fields {
		if !field.Numeric() {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, row := range rows {
			v, ok, err := numericValue(row[field.Name])
			if err != nil {
				return nil, fmt.Errorf("row %d field %s: %w", i, field.Name, err)
			}
			if !ok {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !math.IsInf(lo, 1) {
			s.bounds[field.Name] = [2]float64{lo, hi}
		}
	}
	return s, nil
}

func (s *MemorySource) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *MemorySource) FieldMin(name string) (float64, error) {
	b, err := s.fieldBounds(name)
	return b[0], err
}

func (s *MemorySource) FieldMax(name string) (float64, error) {
	b, err := s.fieldBounds(name)
	return b[1], err
}

func (s *MemorySource) fieldBounds(name string) ([2]float64, error) {
	field, ok := s.field(name)
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: %s", ErrFieldNotFound, name)
	}
	if !field.Numeric() {
		return [2]float64{}, fmt.Errorf("%w: %s (%s)", ErrFieldNotNumeric, name, field.Type)
	}
	b, ok := s.bounds[name]
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: %s", ErrNoValues, name)
	}
	return b, nil
}

func (s *MemorySource) field(name string) (Field, bool) {
	for _, field := range s.fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

func (s *MemorySource) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.rows) {
		return Record{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++

	record := Record{Values: make(map[string]any, len(row))}
	for _, field := range s.fields {
		v := row[field.Name]
		record.Values[field.Name] = v
		switch field.Flag {
		case FlagReset:
			record.Reset = truthy(v)
		case FlagSequence:
			record.SequenceID = fmt.Sprint(v)
		case FlagCategory:
			record.Category = fmt.Sprint(v)
		}
	}
	return record, nil
}

func (s *MemorySource) Rewind() {
	s.mu.Lock()
	s.pos = 0
	s.mu.Unlock()
}

func (s *MemorySource) Len() int {
	return len(s.rows)
}

// numericValue reports ok=false for missing values. NaN counts as missing
// so that it never reaches the field bounds.
func numericValue(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if math.IsNaN(x) {
			return 0, false, nil
		}
		return x, true, nil
	case float32:
		if math.IsNaN(float64(x)) {
			return 0, false, nil
		}
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	default:
		return 0, false, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0"
	default:
		return false
	}
}
