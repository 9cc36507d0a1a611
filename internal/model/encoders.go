package model

import "reflect"

// EncoderMapping converts an encoders section into a mapping from encoder
// name to spec mapping. Any map with string keys is accepted, including
// map[string]EncoderSpec; entries that already are map[string]any are
// returned as is, so writes to them reach the section. It reports false for
// nil and for anything that is not a string-keyed map.
func EncoderMapping(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return x, true
	case map[string]EncoderSpec:
		out := make(map[string]any, len(x))
		for name, spec := range x {
			out[name] = spec.Map()
		}
		return out, true
	}
	m, ok := stringKeyed(v)
	if !ok {
		return nil, false
	}
	for name, entry := range m {
		m[name] = encoderEntry(entry)
	}
	return m, true
}

func encoderEntry(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case EncoderSpec:
		return x.Map()
	case *EncoderSpec:
		if x != nil {
			return x.Map()
		}
	}
	if m, ok := stringKeyed(v); ok {
		return m
	}
	return v
}

// stringKeyed copies a map with string keys into a map[string]any.
func stringKeyed(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// Map returns the spec as an encoders mapping entry. Zero values are left
// out, as in its JSON form.
func (s EncoderSpec) Map() map[string]any {
	m := map[string]any{"fieldname": s.FieldName, "type": s.Type}
	set := func(key string, value any, zero bool) {
		if !zero {
			m[key] = value
		}
	}
	set("name", s.Name, s.Name == "")
	set("minval", s.MinVal, s.MinVal == 0)
	set("maxval", s.MaxVal, s.MaxVal == 0)
	set("w", s.W, s.W == 0)
	set("n", s.N, s.N == 0)
	set("radius", s.Radius, s.Radius == 0)
	set("resolution", s.Resolution, s.Resolution == 0)
	set("periodic", s.Periodic, !s.Periodic)
	set("clipInput", s.ClipInput, !s.ClipInput)
	set("categoryList", append([]string(nil), s.CategoryList...), len(s.CategoryList) == 0)
	set("timeOfDay", append([]float64(nil), s.TimeOfDay...), len(s.TimeOfDay) == 0)
	set("dayOfWeek", append([]float64(nil), s.DayOfWeek...), len(s.DayOfWeek) == 0)
	set("weekend", s.Weekend, s.Weekend == 0)
	set("verbosity", s.Verbosity, s.Verbosity == 0)
	return m
}
