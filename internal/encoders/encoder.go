// Package encoders turns raw field values into fixed-width binary
// representations. Encoders are built from named specs by kind, and a
// MultiEncoder concatenates them into the sensor's output.
package encoders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

var (
	ErrInvalidSpec = errors.New("invalid encoder spec")
	ErrOutOfRange  = errors.New("input out of encoder range")
)

type Encoder interface {
	// Name is the encoder's description; it defaults to the field name.
	Name() string
	FieldName() string
	Width() int
	// Encode returns Width() bits. A nil value encodes to all zeros.
	Encode(value any) ([]uint8, error)
}

// RangeSetter is implemented by encoders whose input bounds can be replaced
// after construction, such as a non-periodic scalar encoder.
type RangeSetter interface {
	SetRange(minVal, maxVal float64) error
	Range() (float64, float64)
}

// DecodeSpec converts one entry of an encoders mapping into a spec. Unknown
// keys are rejected.
func DecodeSpec(raw map[string]any) (model.EncoderSpec, error) {
	var spec model.EncoderSpec
	data, err := json.Marshal(raw)
	if err != nil {
		return spec, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return spec, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return spec, nil
}

func toFloat(value any) (float64, bool, error) {
	switch x := value.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if math.IsNaN(x) {
			return 0, false, nil
		}
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case int32:
		return float64(x), true, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported scalar value %T", value)
	}
}
