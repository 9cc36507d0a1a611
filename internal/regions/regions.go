// Package regions provides the region types an assembled classification
// network is made of. Built-in types are registered with the engine at init;
// research types are only provided as modules and must be registered by
// the assembler before use.
//
// Regions here carry parameters, ports and widths. The learning algorithms
// themselves live outside this module.
package regions

import (
	"fmt"

	"github.com/vitaly-krugl/htmresearch/internal/engine"
)

const (
	RecordSensorType             = "RecordSensor"
	SPRegionType                 = "SPRegion"
	TMRegionType                 = "TMRegion"
	SDRClassifierRegionType      = "SDRClassifierRegion"
	KNNClassifierRegionType      = "KNNClassifierRegion"
	TemporalPoolerRegionType     = "TemporalPoolerRegion"
	SequenceClassifierRegionType = "SequenceClassifierRegion"
)

const (
	TemporalPoolerModule     = engine.DefaultModulePrefix + TemporalPoolerRegionType
	SequenceClassifierModule = "classification.regions." + SequenceClassifierRegionType
)

// Port and parameter names shared across region types.
const (
	BottomUpIn           = "bottomUpIn"
	BottomUpOut          = "bottomUpOut"
	ResetIn              = "resetIn"
	ResetOut             = "resetOut"
	SequenceIDIn         = "sequenceIdIn"
	SequenceIDOut        = "sequenceIdOut"
	CategoryIn           = "categoryIn"
	CategoryOut          = "categoryOut"
	PartitionIn          = "partitionIn"
	DataOut              = "dataOut"
	SourceOut            = "sourceOut"
	ActiveCells          = "activeCells"
	PredictedActiveCells = "predictedActiveCells"
	AnomalyScore         = "anomalyScore"
	MostActiveCells      = "mostActiveCells"
	CategoriesOut        = "categoriesOut"

	LearningModeParam   = "learningMode"
	InferenceModeParam  = "inferenceMode"
	InputWidthParam     = "inputWidth"
	ColumnCountParam    = "columnCount"
	CellsPerColumnParam = "cellsPerColumn"
)

func init() {
	initializeBuiltInRegions()
	initializeResearchModules()
}

func initializeBuiltInRegions() {
	engine.MustRegisterBuiltin(engine.RegionTypeSpec{Name: RecordSensorType, Spec: RecordSensorSpec(), Factory: newRecordSensorRegion})
	engine.MustRegisterBuiltin(engine.RegionTypeSpec{Name: SPRegionType, Spec: SPRegionSpec(), Factory: newSPRegion})
	engine.MustRegisterBuiltin(engine.RegionTypeSpec{Name: TMRegionType, Spec: TMRegionSpec(), Factory: newTMRegion})
	engine.MustRegisterBuiltin(engine.RegionTypeSpec{Name: SDRClassifierRegionType, Spec: SDRClassifierRegionSpec(), Factory: newSDRClassifierRegion})
	engine.MustRegisterBuiltin(engine.RegionTypeSpec{Name: KNNClassifierRegionType, Spec: KNNClassifierRegionSpec(), Factory: newKNNClassifierRegion})
}

func initializeResearchModules() {
	engine.MustProvideModule(TemporalPoolerModule, engine.RegionTypeSpec{Name: TemporalPoolerRegionType, Spec: TemporalPoolerRegionSpec(), Factory: newTemporalPoolerRegion})
	engine.MustProvideModule(SequenceClassifierModule, engine.RegionTypeSpec{Name: SequenceClassifierRegionType, Spec: SequenceClassifierRegionSpec(), Factory: newSequenceClassifierRegion})
}

// InputWidther is implemented by regions that take a declared input width.
type InputWidther interface {
	InputWidth() int
}

// Columnar is implemented by regions organised in columns.
type Columnar interface {
	ColumnCount() int
}

// Cellular is implemented by regions with several cells per column.
type Cellular interface {
	Columnar
	CellsPerColumn() int
}

func input(description string, required, isDefault bool) engine.PortSpec {
	return engine.PortSpec{
		Description: description,
		DataType:    engine.TypeReal32,
		Required:    required,
		RegionLevel: true,
		IsDefault:   isDefault,
	}
}

func output(description string, isDefault bool) engine.PortSpec {
	return engine.PortSpec{
		Description: description,
		DataType:    engine.TypeReal32,
		RegionLevel: true,
		IsDefault:   isDefault,
	}
}

func uintParam(description string, def int, access engine.AccessMode) engine.ParameterSpec {
	return engine.ParameterSpec{
		Description:  description,
		DataType:     engine.TypeUInt32,
		Count:        1,
		DefaultValue: def,
		AccessMode:   access,
	}
}

func intParam(description string, def int, access engine.AccessMode) engine.ParameterSpec {
	return engine.ParameterSpec{
		Description:  description,
		DataType:     engine.TypeInt32,
		Count:        1,
		DefaultValue: def,
		AccessMode:   access,
	}
}

func realParam(description string, def float64, access engine.AccessMode) engine.ParameterSpec {
	return engine.ParameterSpec{
		Description:  description,
		DataType:     engine.TypeReal32,
		Count:        1,
		DefaultValue: def,
		AccessMode:   access,
	}
}

func boolParam(description string, def bool, access engine.AccessMode) engine.ParameterSpec {
	return engine.ParameterSpec{
		Description:  description,
		DataType:     engine.TypeUInt32,
		Count:        1,
		Constraints:  engine.ConstraintBool,
		DefaultValue: def,
		AccessMode:   access,
	}
}

func enumParam(description string, def string, access engine.AccessMode, options string) engine.ParameterSpec {
	spec := engine.ParameterSpec{
		Description: description,
		DataType:    engine.TypeByte,
		Constraints: "enum: " + options,
		AccessMode:  access,
	}
	if def != "" {
		spec.DefaultValue = def
	}
	return spec
}

// resetInputs are the side-channel inputs every processing region accepts.
func resetInputs(ports map[string]engine.PortSpec) map[string]engine.PortSpec {
	ports[ResetIn] = input("Sequence reset signal from the sensor.", false, false)
	ports[SequenceIDIn] = input("Sequence id from the sensor.", false, false)
	return ports
}

func unknownOutput(region, name string) error {
	return fmt.Errorf("%w: region type %s has no output %s", engine.ErrPortNotFound, region, name)
}

func requirePositive(region string, values map[string]int) error {
	for name, v := range values {
		if v <= 0 {
			return fmt.Errorf("%s: %s must be positive, got %d", region, name, v)
		}
	}
	return nil
}
