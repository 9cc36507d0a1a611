package regions

import (
	"github.com/vitaly-krugl/htmresearch/internal/engine"
)

func SPRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "Spatial pooler: encoder output to active columns.",
		SingleNodeOnly: true,
		Inputs: resetInputs(map[string]engine.PortSpec{
			BottomUpIn: input("Encoded input from the sensor.", true, true),
		}),
		Outputs: map[string]engine.PortSpec{
			BottomUpOut:  output("Active columns.", true),
			AnomalyScore: output("Anomaly score of the current input.", false),
		},
		Parameters: map[string]engine.ParameterSpec{
			InputWidthParam:              uintParam("Width of the bottom-up input.", 0, engine.AccessCreate),
			ColumnCountParam:             uintParam("Number of columns.", 2048, engine.AccessCreate),
			"spatialImp":                 enumParam("Spatial pooler implementation.", "cpp", engine.AccessCreate, "py, cpp"),
			"spVerbosity":                uintParam("Verbosity level.", 0, engine.AccessReadWrite),
			"globalInhibition":           boolParam("Use global inhibition.", true, engine.AccessCreate),
			"numActiveColumnsPerInhArea": uintParam("Active columns per inhibition area.", 40, engine.AccessCreate),
			"potentialPct":               realParam("Fraction of the input a column can connect to.", 0.8, engine.AccessCreate),
			"synPermConnected":           realParam("Connected permanence threshold.", 0.1, engine.AccessCreate),
			"synPermActiveInc":           realParam("Permanence increment for active synapses.", 0.05, engine.AccessCreate),
			"synPermInactiveDec":         realParam("Permanence decrement for inactive synapses.", 0.008, engine.AccessCreate),
			"boostStrength":              realParam("Boosting strength.", 0, engine.AccessCreate),
			"seed":                       intParam("Random seed.", 1956, engine.AccessCreate),
			"anomalyMode":                boolParam("Compute anomaly scores.", false, engine.AccessReadWrite),
			LearningModeParam:            engine.LearningModeParameter,
			InferenceModeParam:           engine.InferenceModeParameter,
		},
	}
}

type SPRegion struct {
	*engine.BaseRegion
}

func NewSPRegion(params map[string]any) (*SPRegion, error) {
	base, err := engine.NewBaseRegion(SPRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return &SPRegion{BaseRegion: base}, nil
}

func newSPRegion(params map[string]any) (engine.Region, error) {
	region, err := NewSPRegion(params)
	if err != nil {
		return nil, err
	}
	return region, nil
}

func (r *SPRegion) InputWidth() int  { return r.IntParam(InputWidthParam) }
func (r *SPRegion) ColumnCount() int { return r.IntParam(ColumnCountParam) }

func (r *SPRegion) Initialize() error {
	return requirePositive(SPRegionType, map[string]int{
		InputWidthParam:  r.InputWidth(),
		ColumnCountParam: r.ColumnCount(),
	})
}

func (r *SPRegion) OutputWidth(name string) (int, error) {
	switch name {
	case BottomUpOut:
		return r.ColumnCount(), nil
	case AnomalyScore:
		return 1, nil
	default:
		return 0, unknownOutput(SPRegionType, name)
	}
}

func TMRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "Temporal memory: sequence learning over active columns.",
		SingleNodeOnly: true,
		Inputs: resetInputs(map[string]engine.PortSpec{
			BottomUpIn: input("Active columns from the layer below.", true, true),
		}),
		Outputs: map[string]engine.PortSpec{
			BottomUpOut:          output("Active cells.", true),
			ActiveCells:          output("Active cells.", false),
			PredictedActiveCells: output("Cells that were predicted and became active.", false),
			AnomalyScore:         output("Anomaly score of the current input.", false),
		},
		Parameters: map[string]engine.ParameterSpec{
			InputWidthParam:                     uintParam("Width of the bottom-up input.", 0, engine.AccessCreate),
			ColumnCountParam:                    uintParam("Number of columns.", 2048, engine.AccessCreate),
			CellsPerColumnParam:                 uintParam("Number of cells per column.", 32, engine.AccessCreate),
			"temporalImp":                       enumParam("Temporal memory implementation.", "cpp", engine.AccessCreate, "py, cpp, tm_py, tm_cpp"),
			"activationThreshold":               uintParam("Active synapses needed to activate a segment.", 13, engine.AccessCreate),
			"minThreshold":                      uintParam("Active synapses needed to match a segment.", 10, engine.AccessCreate),
			"maxNewSynapseCount":                uintParam("Synapses added to a segment per learning step.", 20, engine.AccessCreate),
			"initialPermanence":                 realParam("Initial permanence of new synapses.", 0.21, engine.AccessCreate),
			"connectedPermanence":               realParam("Connected permanence threshold.", 0.5, engine.AccessCreate),
			"permanenceIncrement":               realParam("Permanence increment.", 0.1, engine.AccessCreate),
			"permanenceDecrement":               realParam("Permanence decrement.", 0.1, engine.AccessCreate),
			"predictedSegmentDecrement":         realParam("Punishment for incorrectly predicting segments.", 0, engine.AccessCreate),
			"seed":                              intParam("Random seed.", 1960, engine.AccessCreate),
			"computePredictedActiveCellIndices": boolParam("Fill the predictedActiveCells output.", false, engine.AccessReadWrite),
			"anomalyMode":                       boolParam("Compute anomaly scores.", false, engine.AccessReadWrite),
			LearningModeParam:                   engine.LearningModeParameter,
			InferenceModeParam:                  engine.InferenceModeParameter,
		},
	}
}

type TMRegion struct {
	*engine.BaseRegion
}

func NewTMRegion(params map[string]any) (*TMRegion, error) {
	base, err := engine.NewBaseRegion(TMRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return &TMRegion{BaseRegion: base}, nil
}

func newTMRegion(params map[string]any) (engine.Region, error) {
	region, err := NewTMRegion(params)
	if err != nil {
		return nil, err
	}
	return region, nil
}

func (r *TMRegion) InputWidth() int     { return r.IntParam(InputWidthParam) }
func (r *TMRegion) ColumnCount() int    { return r.IntParam(ColumnCountParam) }
func (r *TMRegion) CellsPerColumn() int { return r.IntParam(CellsPerColumnParam) }

func (r *TMRegion) Initialize() error {
	return requirePositive(TMRegionType, map[string]int{
		InputWidthParam:     r.InputWidth(),
		ColumnCountParam:    r.ColumnCount(),
		CellsPerColumnParam: r.CellsPerColumn(),
	})
}

func (r *TMRegion) OutputWidth(name string) (int, error) {
	switch name {
	case BottomUpOut, ActiveCells, PredictedActiveCells:
		return r.ColumnCount() * r.CellsPerColumn(), nil
	case AnomalyScore:
		return 1, nil
	default:
		return 0, unknownOutput(TMRegionType, name)
	}
}

func TemporalPoolerRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "Temporal pooler: stable representation over a sequence of active cells.",
		SingleNodeOnly: true,
		Inputs: resetInputs(map[string]engine.PortSpec{
			ActiveCells:          input("Active cells from the layer below.", true, true),
			PredictedActiveCells: input("Predicted active cells from the layer below.", false, false),
		}),
		Outputs: map[string]engine.PortSpec{
			MostActiveCells: output("Most active cells of the pooled representation.", true),
		},
		Parameters: map[string]engine.ParameterSpec{
			InputWidthParam:                uintParam("Width of the active cells input.", 0, engine.AccessCreate),
			ColumnCountParam:               uintParam("Number of pooling columns.", 2048, engine.AccessCreate),
			"poolerType":                   enumParam("Pooler implementation.", "union", engine.AccessCreate, "union"),
			"historyLength":                uintParam("Number of steps of history kept.", 0, engine.AccessCreate),
			"minHistory":                   uintParam("Steps of history needed before output.", 0, engine.AccessCreate),
			"activeOverlapWeight":          realParam("Weight of active cell overlap.", 1, engine.AccessCreate),
			"predictedActiveOverlapWeight": realParam("Weight of predicted active cell overlap.", 0, engine.AccessCreate),
			"seed":                         intParam("Random seed.", 42, engine.AccessCreate),
			LearningModeParam:              engine.LearningModeParameter,
			InferenceModeParam:             engine.InferenceModeParameter,
		},
	}
}

// TemporalPoolerRegion keeps its input width under its own name; the width
// it was created with is what the assembler validates against.
type TemporalPoolerRegion struct {
	*engine.BaseRegion
	inputWidth int
}

func NewTemporalPoolerRegion(params map[string]any) (*TemporalPoolerRegion, error) {
	base, err := engine.NewBaseRegion(TemporalPoolerRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return &TemporalPoolerRegion{BaseRegion: base, inputWidth: base.IntParam(InputWidthParam)}, nil
}

func newTemporalPoolerRegion(params map[string]any) (engine.Region, error) {
	region, err := NewTemporalPoolerRegion(params)
	if err != nil {
		return nil, err
	}
	return region, nil
}

func (r *TemporalPoolerRegion) InputWidth() int  { return r.inputWidth }
func (r *TemporalPoolerRegion) ColumnCount() int { return r.IntParam(ColumnCountParam) }

func (r *TemporalPoolerRegion) Initialize() error {
	return requirePositive(TemporalPoolerRegionType, map[string]int{
		InputWidthParam:  r.InputWidth(),
		ColumnCountParam: r.ColumnCount(),
	})
}

func (r *TemporalPoolerRegion) OutputWidth(name string) (int, error) {
	if name != MostActiveCells {
		return 0, unknownOutput(TemporalPoolerRegionType, name)
	}
	return r.ColumnCount(), nil
}
