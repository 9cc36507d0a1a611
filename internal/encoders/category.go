package encoders

import (
	"fmt"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

// CategoryEncoder gives every listed category its own block of w bits. Block
// zero is reserved for values that are not in the list.
type CategoryEncoder struct {
	name       string
	fieldName  string
	w          int
	categories map[string]int
}

func NewCategoryEncoder(spec model.EncoderSpec) (*CategoryEncoder, error) {
	if spec.W <= 0 {
		return nil, fmt.Errorf("%w: category encoder w must be positive, got %d", ErrInvalidSpec, spec.W)
	}
	if len(spec.CategoryList) == 0 {
		return nil, fmt.Errorf("%w: category encoder needs a categoryList", ErrInvalidSpec)
	}
	e := &CategoryEncoder{
		name:       spec.Name,
		fieldName:  spec.FieldName,
		w:          spec.W,
		categories: make(map[string]int, len(spec.CategoryList)),
	}
	if e.name == "" {
		e.name = spec.FieldName
	}
	for i, category := range spec.CategoryList {
		if _, dup := e.categories[category]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidSpec, category)
		}
		e.categories[category] = i + 1
	}
	return e, nil
}

func (e *CategoryEncoder) Name() string      { return e.name }
func (e *CategoryEncoder) FieldName() string { return e.fieldName }
func (e *CategoryEncoder) Width() int        { return (len(e.categories) + 1) * e.w }

// Index returns the block index of category, 0 when unknown.
func (e *CategoryEncoder) Index(category string) int {
	return e.categories[category]
}

func (e *CategoryEncoder) Encode(value any) ([]uint8, error) {
	out := make([]uint8, e.Width())
	if value == nil {
		return out, nil
	}
	category, ok := value.(string)
	if !ok {
		category = fmt.Sprint(value)
	}
	start := e.Index(category) * e.w
	for i := start; i < start+e.w; i++ {
		out[i] = 1
	}
	return out, nil
}
