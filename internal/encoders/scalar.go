package encoders

import (
	"fmt"
	"math"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

// ScalarEncoder encodes a number as w contiguous active bits out of n. The
// bucket layout is derived from exactly one of n, radius or resolution.
type ScalarEncoder struct {
	name      string
	fieldName string
	w         int
	periodic  bool
	clipInput bool

	// requested layout; zero fields were not supplied.
	reqN          int
	reqRadius     float64
	reqResolution float64

	minVal     float64
	maxVal     float64
	n          int
	buckets    int
	resolution float64
}

func NewScalarEncoder(spec model.EncoderSpec) (*ScalarEncoder, error) {
	if spec.W <= 0 || spec.W%2 == 0 {
		return nil, fmt.Errorf("%w: scalar encoder w must be a positive odd number, got %d", ErrInvalidSpec, spec.W)
	}
	given := 0
	for _, set := range []bool{spec.N != 0, spec.Radius != 0, spec.Resolution != 0} {
		if set {
			given++
		}
	}
	if given != 1 {
		return nil, fmt.Errorf("%w: scalar encoder needs exactly one of n, radius, resolution", ErrInvalidSpec)
	}

	e := &ScalarEncoder{
		name:          spec.Name,
		fieldName:     spec.FieldName,
		w:             spec.W,
		periodic:      spec.Periodic,
		clipInput:     spec.ClipInput,
		reqN:          spec.N,
		reqRadius:     spec.Radius,
		reqResolution: spec.Resolution,
	}
	if e.name == "" {
		e.name = spec.FieldName
	}
	if err := e.SetRange(spec.MinVal, spec.MaxVal); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRange replaces the input bounds and recomputes the bucket layout.
func (e *ScalarEncoder) SetRange(minVal, maxVal float64) error {
	if !(maxVal > minVal) {
		return fmt.Errorf("%w: scalar encoder %s needs maxval > minval, got [%g, %g]", ErrInvalidSpec, e.name, minVal, maxVal)
	}
	span := maxVal - minVal
	pad := e.w - 1

	var n, buckets int
	var resolution float64
	switch {
	case e.reqN != 0:
		n = e.reqN
		if e.periodic {
			buckets = n
			resolution = span / float64(buckets)
		} else {
			buckets = n - pad
			if buckets < 2 {
				return fmt.Errorf("%w: scalar encoder %s: n=%d too small for w=%d", ErrInvalidSpec, e.name, n, e.w)
			}
			resolution = span / float64(buckets-1)
		}
	default:
		resolution = e.reqResolution
		if e.reqRadius != 0 {
			resolution = e.reqRadius / float64(e.w)
		}
		if resolution <= 0 {
			return fmt.Errorf("%w: scalar encoder %s: resolution must be positive", ErrInvalidSpec, e.name)
		}
		if e.periodic {
			buckets = int(math.Ceil(span / resolution))
			n = buckets
		} else {
			buckets = int(math.Ceil(span/resolution)) + 1
			n = buckets + pad
		}
	}
	if n < e.w {
		return fmt.Errorf("%w: scalar encoder %s: n=%d smaller than w=%d", ErrInvalidSpec, e.name, n, e.w)
	}

	e.minVal = minVal
	e.maxVal = maxVal
	e.n = n
	e.buckets = buckets
	e.resolution = resolution
	return nil
}

func (e *ScalarEncoder) Range() (float64, float64) {
	return e.minVal, e.maxVal
}

func (e *ScalarEncoder) Name() string        { return e.name }
func (e *ScalarEncoder) FieldName() string   { return e.fieldName }
func (e *ScalarEncoder) Width() int          { return e.n }
func (e *ScalarEncoder) W() int              { return e.w }
func (e *ScalarEncoder) Periodic() bool      { return e.periodic }
func (e *ScalarEncoder) Resolution() float64 { return e.resolution }

// Bucket returns the index of the first active bit for value.
func (e *ScalarEncoder) Bucket(value float64) (int, error) {
	if e.periodic {
		offset := math.Mod(value-e.minVal, e.maxVal-e.minVal)
		if offset < 0 {
			offset += e.maxVal - e.minVal
		}
		return int(math.Floor(offset/e.resolution)) % e.buckets, nil
	}

	if value < e.minVal || value > e.maxVal {
		if !e.clipInput {
			return 0, fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, e.name, value, e.minVal, e.maxVal)
		}
		value = math.Max(e.minVal, math.Min(e.maxVal, value))
	}
	bucket := int(math.Round((value - e.minVal) / e.resolution))
	if bucket > e.buckets-1 {
		bucket = e.buckets - 1
	}
	return bucket, nil
}

func (e *ScalarEncoder) Encode(value any) ([]uint8, error) {
	out := make([]uint8, e.n)
	x, ok, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	if !ok {
		return out, nil
	}
	start, err := e.Bucket(x)
	if err != nil {
		return nil, err
	}
	for i := 0; i < e.w; i++ {
		out[(start+i)%e.n] = 1
	}
	return out, nil
}
