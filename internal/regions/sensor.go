package regions

import (
	"context"
	"errors"
	"sync"

	"github.com/vitaly-krugl/htmresearch/internal/datasource"
	"github.com/vitaly-krugl/htmresearch/internal/encoders"
	"github.com/vitaly-krugl/htmresearch/internal/engine"
)

var (
	ErrNoEncoder    = errors.New("sensor has no encoder")
	ErrNoDataSource = errors.New("sensor has no data source")
)

func RecordSensorSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "Reads records from a data source and encodes them.",
		SingleNodeOnly: true,
		Inputs:         map[string]engine.PortSpec{},
		Outputs: map[string]engine.PortSpec{
			DataOut:       output("Encoded record.", true),
			ResetOut:      output("1 when the record starts a new sequence.", false),
			SequenceIDOut: output("Sequence id of the record.", false),
			CategoryOut:   output("Category of the record.", false),
			SourceOut:     output("Raw field values of the record.", false),
		},
		Parameters: map[string]engine.ParameterSpec{
			"verbosity":     uintParam("Verbosity level.", 0, engine.AccessReadWrite),
			"numCategories": uintParam("Number of categories emitted on categoryOut.", 1, engine.AccessCreate),
		},
	}
}

// RecordSensor is the entry point of a network. Its encoder and data
// source are bound after creation.
type RecordSensor struct {
	*engine.BaseRegion

	mu         sync.RWMutex
	encoder    encoders.Encoder
	dataSource datasource.DataSource
	last       SensorOutput
}

// SensorOutput is what one step of the sensor emits.
type SensorOutput struct {
	Data       []uint8
	Reset      bool
	SequenceID string
	Category   string
	Record     datasource.Record
}

func NewRecordSensor(params map[string]any) (*RecordSensor, error) {
	base, err := engine.NewBaseRegion(RecordSensorSpec(), params)
	if err != nil {
		return nil, err
	}
	return &RecordSensor{BaseRegion: base}, nil
}

func newRecordSensorRegion(params map[string]any) (engine.Region, error) {
	sensor, err := NewRecordSensor(params)
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

func (s *RecordSensor) SetEncoder(encoder encoders.Encoder) {
	s.mu.Lock()
	s.encoder = encoder
	s.mu.Unlock()
}

func (s *RecordSensor) Encoder() encoders.Encoder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encoder
}

func (s *RecordSensor) SetDataSource(source datasource.DataSource) {
	s.mu.Lock()
	s.dataSource = source
	s.mu.Unlock()
}

func (s *RecordSensor) DataSource() datasource.DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataSource
}

func (s *RecordSensor) Initialize() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.encoder == nil {
		return ErrNoEncoder
	}
	if s.dataSource == nil {
		return ErrNoDataSource
	}
	return nil
}

func (s *RecordSensor) OutputWidth(name string) (int, error) {
	switch name {
	case DataOut:
		encoder := s.Encoder()
		if encoder == nil {
			return 0, ErrNoEncoder
		}
		return encoder.Width(), nil
	case ResetOut, SequenceIDOut:
		return 1, nil
	case CategoryOut:
		return s.IntParam("numCategories"), nil
	case SourceOut:
		source := s.DataSource()
		if source == nil {
			return 0, ErrNoDataSource
		}
		return len(source.Fields()), nil
	default:
		return 0, unknownOutput(RecordSensorType, name)
	}
}

// Next reads one record from the data source and encodes it. It returns
// io.EOF when the source is exhausted.
func (s *RecordSensor) Next(ctx context.Context) (SensorOutput, error) {
	s.mu.RLock()
	encoder, source := s.encoder, s.dataSource
	s.mu.RUnlock()
	if encoder == nil {
		return SensorOutput{}, ErrNoEncoder
	}
	if source == nil {
		return SensorOutput{}, ErrNoDataSource
	}

	record, err := source.Next(ctx)
	if err != nil {
		return SensorOutput{}, err
	}
	// An encoder without a field name, such as a multi encoder, reads the
	// whole record.
	var value any = record.Values
	if field := encoder.FieldName(); field != "" {
		value = record.Values[field]
	}
	bits, err := encoder.Encode(value)
	if err != nil {
		return SensorOutput{}, err
	}

	out := SensorOutput{
		Data:       bits,
		Reset:      record.Reset,
		SequenceID: record.SequenceID,
		Category:   record.Category,
		Record:     record,
	}
	s.mu.Lock()
	s.last = out
	s.mu.Unlock()
	return out, nil
}

// Last returns the most recent output of Next.
func (s *RecordSensor) Last() SensorOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
