package encoders

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateEncoder = errors.New("encoder name already used")

// Placement is the position of a sub-encoder in the combined output.
type Placement struct {
	Name   string
	Offset int
	Width  int
}

// MultiEncoder concatenates the outputs of its sub-encoders. Sub-encoders
// keep the order in which they were added.
type MultiEncoder struct {
	names    []string
	encoders map[string]Encoder
	width    int
}

func NewMultiEncoder() *MultiEncoder {
	return &MultiEncoder{encoders: make(map[string]Encoder)}
}

func (m *MultiEncoder) AddEncoder(name string, encoder Encoder) error {
	if encoder == nil {
		return errors.New("encoder is required")
	}
	if _, exists := m.encoders[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEncoder, name)
	}
	m.names = append(m.names, name)
	m.encoders[name] = encoder
	m.width += encoder.Width()
	return nil
}

// AddMultipleEncoders builds one encoder per entry of specs, in sorted name
// order. Every entry must itself be a mapping carrying a "type" key.
func (m *MultiEncoder) AddMultipleEncoders(specs map[string]any) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw, ok := specs[name].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: encoder %s is %T, not a mapping", ErrInvalidSpec, name, specs[name])
		}
		encoder, err := Build(raw)
		if err != nil {
			return fmt.Errorf("encoder %s: %w", name, err)
		}
		if err := m.AddEncoder(name, encoder); err != nil {
			return err
		}
	}
	return nil
}

// Build constructs a single encoder from one spec mapping.
func Build(raw map[string]any) (Encoder, error) {
	spec, err := DecodeSpec(raw)
	if err != nil {
		return nil, err
	}
	factory, err := ResolveKind(spec.Type)
	if err != nil {
		return nil, err
	}
	return factory(spec)
}

func (m *MultiEncoder) Name() string      { return "multi" }
func (m *MultiEncoder) FieldName() string { return "" }
func (m *MultiEncoder) Width() int        { return m.width }
func (m *MultiEncoder) Len() int          { return len(m.names) }

// Encoder returns the sub-encoder registered under name.
func (m *MultiEncoder) Encoder(name string) (Encoder, bool) {
	encoder, ok := m.encoders[name]
	return encoder, ok
}

func (m *MultiEncoder) Describe() []Placement {
	out := make([]Placement, 0, len(m.names))
	offset := 0
	for _, name := range m.names {
		width := m.encoders[name].Width()
		out = append(out, Placement{Name: name, Offset: offset, Width: width})
		offset += width
	}
	return out
}

// Encode expects a record keyed by field name, or nil for an empty record.
func (m *MultiEncoder) Encode(value any) ([]uint8, error) {
	var record map[string]any
	if value != nil {
		var ok bool
		record, ok = value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("multi encoder expects a record, got %T", value)
		}
	}
	out := make([]uint8, 0, m.width)
	for _, name := range m.names {
		encoder := m.encoders[name]
		bits, err := encoder.Encode(record[encoder.FieldName()])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out = append(out, bits...)
	}
	return out, nil
}
