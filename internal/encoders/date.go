package encoders

import (
	"fmt"
	"time"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DateEncoder combines periodic time-of-day and day-of-week encoders and a
// weekend flag. Each part is optional but at least one is required.
type DateEncoder struct {
	name      string
	fieldName string

	timeOfDay *ScalarEncoder
	dayOfWeek *ScalarEncoder
	weekend   *ScalarEncoder
}

func NewDateEncoder(spec model.EncoderSpec) (*DateEncoder, error) {
	e := &DateEncoder{name: spec.Name, fieldName: spec.FieldName}
	if e.name == "" {
		e.name = spec.FieldName
	}

	var err error
	if len(spec.TimeOfDay) > 0 {
		e.timeOfDay, err = periodicPart(e.name+"_timeOfDay", spec.TimeOfDay, 24)
		if err != nil {
			return nil, err
		}
	}
	if len(spec.DayOfWeek) > 0 {
		e.dayOfWeek, err = periodicPart(e.name+"_dayOfWeek", spec.DayOfWeek, 7)
		if err != nil {
			return nil, err
		}
	}
	if spec.Weekend > 0 {
		e.weekend, err = NewScalarEncoder(model.EncoderSpec{
			Name:   e.name + "_weekend",
			W:      spec.Weekend,
			MinVal: 0,
			MaxVal: 1,
			Radius: 1,
		})
		if err != nil {
			return nil, err
		}
	}
	if e.timeOfDay == nil && e.dayOfWeek == nil && e.weekend == nil {
		return nil, fmt.Errorf("%w: date encoder %s has no timeOfDay, dayOfWeek or weekend part", ErrInvalidSpec, e.name)
	}
	return e, nil
}

func periodicPart(name string, params []float64, period float64) (*ScalarEncoder, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%w: %s expects [w, radius], got %v", ErrInvalidSpec, name, params)
	}
	return NewScalarEncoder(model.EncoderSpec{
		Name:     name,
		W:        int(params[0]),
		MinVal:   0,
		MaxVal:   period,
		Radius:   params[1],
		Periodic: true,
	})
}

func (e *DateEncoder) Name() string      { return e.name }
func (e *DateEncoder) FieldName() string { return e.fieldName }

func (e *DateEncoder) parts() []*ScalarEncoder {
	out := make([]*ScalarEncoder, 0, 3)
	for _, part := range []*ScalarEncoder{e.timeOfDay, e.dayOfWeek, e.weekend} {
		if part != nil {
			out = append(out, part)
		}
	}
	return out
}

func (e *DateEncoder) Width() int {
	width := 0
	for _, part := range e.parts() {
		width += part.Width()
	}
	return width
}

func (e *DateEncoder) Encode(value any) ([]uint8, error) {
	if value == nil {
		return make([]uint8, e.Width()), nil
	}
	ts, err := parseTime(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	out := make([]uint8, 0, e.Width())
	if e.timeOfDay != nil {
		hours := float64(ts.Hour()) + float64(ts.Minute())/60 + float64(ts.Second())/3600
		bits, err := e.timeOfDay.Encode(hours)
		if err != nil {
			return nil, err
		}
		out = append(out, bits...)
	}
	if e.dayOfWeek != nil {
		// Monday is day 0.
		day := float64((int(ts.Weekday()) + 6) % 7)
		bits, err := e.dayOfWeek.Encode(day)
		if err != nil {
			return nil, err
		}
		out = append(out, bits...)
	}
	if e.weekend != nil {
		flag := 0.0
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			flag = 1
		}
		bits, err := e.weekend.Encode(flag)
		if err != nil {
			return nil, err
		}
		out = append(out, bits...)
	}
	return out, nil
}

func parseTime(value any) (time.Time, error) {
	switch x := value.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, x); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", x)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value %T", value)
	}
}
