package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownParameter     = errors.New("unknown parameter")
	ErrParameterNotWritable = errors.New("parameter is not writable")
	ErrInvalidParameter     = errors.New("invalid parameter value")
)

// CoerceParameter converts a decoded value into the Go type the parameter's
// data type calls for: int for integer types, float64 for reals, bool for
// bool-constrained parameters and string for byte arrays.
func CoerceParameter(name string, spec ParameterSpec, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidParameter, name)
	}
	if spec.Constraints == ConstraintBool || spec.DataType == TypeBool {
		v, err := toBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, name, err)
		}
		return v, nil
	}
	if options, ok := enumOptions(spec.Constraints); ok {
		s, isString := value.(string)
		if !isString {
			return nil, fmt.Errorf("%w: %s must be one of %v", ErrInvalidParameter, name, options)
		}
		for _, option := range options {
			if s == option {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s=%q not in %v", ErrInvalidParameter, name, s, options)
	}

	switch spec.DataType {
	case TypeUInt32, TypeInt32:
		f, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, name, err)
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s=%v is not an integer", ErrInvalidParameter, name, value)
		}
		if spec.DataType == TypeUInt32 && f < 0 {
			return nil, fmt.Errorf("%w: %s=%v is negative", ErrInvalidParameter, name, value)
		}
		return int(f), nil
	case TypeReal32, TypeReal64:
		f, err := toFloat(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, name, err)
		}
		return f, nil
	case TypeByte:
		if spec.Count != 0 {
			break
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidParameter, name)
		}
		return s, nil
	}
	return value, nil
}

// ApplyDefaults fills in spec defaults for every parameter absent from
// params and rejects names the spec does not declare.
func ApplyDefaults(spec RegionSpec, params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(spec.Parameters))
	for name, value := range params {
		paramSpec, ok := spec.Parameters[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
		coerced, err := CoerceParameter(name, paramSpec, value)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	for name, paramSpec := range spec.Parameters {
		if _, ok := out[name]; ok || paramSpec.DefaultValue == nil {
			continue
		}
		coerced, err := CoerceParameter(name, paramSpec, paramSpec.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		out[name] = coerced
	}
	return out, nil
}

// CheckWritable reports whether a parameter may be set after creation.
func CheckWritable(spec RegionSpec, name string) (ParameterSpec, error) {
	paramSpec, ok := spec.Parameters[name]
	if !ok {
		return ParameterSpec{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if paramSpec.AccessMode != AccessReadWrite {
		return ParameterSpec{}, fmt.Errorf("%w: %s (%s)", ErrParameterNotWritable, name, paramSpec.AccessMode)
	}
	return paramSpec, nil
}

// BaseRegion keeps a region's parameter values checked against its spec.
// Region implementations embed it and add their own accessors.
type BaseRegion struct {
	spec RegionSpec

	mu     sync.RWMutex
	params map[string]any
}

func NewBaseRegion(spec RegionSpec, params map[string]any) (*BaseRegion, error) {
	values, err := ApplyDefaults(spec, params)
	if err != nil {
		return nil, err
	}
	return &BaseRegion{spec: spec, params: values}, nil
}

func (r *BaseRegion) Spec() RegionSpec {
	return r.spec
}

func (r *BaseRegion) GetParameter(name string) (any, error) {
	if _, ok := r.spec.Parameters[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[name], nil
}

func (r *BaseRegion) SetParameter(name string, value any) error {
	paramSpec, err := CheckWritable(r.spec, name)
	if err != nil {
		return err
	}
	coerced, err := CoerceParameter(name, paramSpec, value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.params[name] = coerced
	r.mu.Unlock()
	return nil
}

// Parameters returns a copy of the current values.
func (r *BaseRegion) Parameters() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

func (r *BaseRegion) IntParam(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _ := r.params[name].(int)
	return v
}

func (r *BaseRegion) FloatParam(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _ := r.params[name].(float64)
	return v
}

func (r *BaseRegion) BoolParam(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _ := r.params[name].(bool)
	return v
}

func (r *BaseRegion) StringParam(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _ := r.params[name].(string)
	return v
}

// ParameterNames lists the declared parameters in sorted order.
func (s RegionSpec) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func enumOptions(constraints string) ([]string, bool) {
	rest, ok := strings.CutPrefix(constraints, "enum:")
	if !ok {
		return nil, false
	}
	var options []string
	for _, option := range strings.Split(rest, ",") {
		if option = strings.TrimSpace(option); option != "" {
			options = append(options, option)
		}
	}
	return options, len(options) > 0
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("cannot use %q as bool", v)
	}
	f, err := toFloat(value)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot use %T as number", value)
	}
}
