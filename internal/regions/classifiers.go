package regions

import (
	"github.com/vitaly-krugl/htmresearch/internal/engine"
)

// Classifier is the common shape of the classifier region types.
type Classifier struct {
	*engine.BaseRegion
	typeName string
}

func newClassifier(typeName string, spec engine.RegionSpec, params map[string]any) (*Classifier, error) {
	base, err := engine.NewBaseRegion(spec, params)
	if err != nil {
		return nil, err
	}
	return &Classifier{BaseRegion: base, typeName: typeName}, nil
}

func (c *Classifier) TypeName() string {
	return c.typeName
}

// OutputWidth reports categoriesOut from maxCategoryCount when the type
// declares it. Types without the parameter report zero, meaning the width
// follows the categories seen at run time.
func (c *Classifier) OutputWidth(name string) (int, error) {
	if !c.Spec().HasOutput(name) {
		return 0, unknownOutput(c.typeName, name)
	}
	if _, ok := c.Spec().Parameters["maxCategoryCount"]; ok {
		return c.IntParam("maxCategoryCount"), nil
	}
	return 0, nil
}

func SDRClassifierRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "SDR classifier: maps active cells to category likelihoods.",
		SingleNodeOnly: true,
		Inputs: map[string]engine.PortSpec{
			BottomUpIn:           input("Active cells from the layer below.", true, true),
			CategoryIn:           input("Category of the current record.", true, false),
			PredictedActiveCells: input("Predicted active cells from temporal memory.", false, false),
			SequenceIDIn:         input("Sequence id from the sensor.", false, false),
		},
		Outputs: map[string]engine.PortSpec{
			CategoriesOut: output("Most likely categories.", true),
		},
		Parameters: map[string]engine.ParameterSpec{
			"steps":            {Description: "Prediction steps.", DataType: engine.TypeByte, DefaultValue: "0", AccessMode: engine.AccessCreate},
			"alpha":            realParam("Learning rate.", 0.001, engine.AccessCreate),
			"verbosity":        uintParam("Verbosity level.", 0, engine.AccessReadWrite),
			"implementation":   enumParam("Classifier implementation.", "py", engine.AccessReadWrite, "py, cpp"),
			"maxCategoryCount": uintParam("Maximum number of categories.", 1000, engine.AccessCreate),
			LearningModeParam:  engine.LearningModeParameter,
			InferenceModeParam: engine.InferenceModeParameter,
		},
	}
}

func newSDRClassifierRegion(params map[string]any) (engine.Region, error) {
	c, err := newClassifier(SDRClassifierRegionType, SDRClassifierRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// KNNClassifierRegionSpec declares a partitionIn input, so the assembler
// feeds it sequence ids from the sensor.
func KNNClassifierRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "k-nearest-neighbour classifier over stored patterns.",
		SingleNodeOnly: true,
		Inputs: map[string]engine.PortSpec{
			BottomUpIn:  input("Pattern from the layer below.", true, true),
			CategoryIn:  input("Category of the current record.", true, false),
			PartitionIn: input("Partition id of the stored pattern.", false, false),
			"auxDataIn": input("Auxiliary data stored with the pattern.", false, false),
		},
		Outputs: map[string]engine.PortSpec{
			CategoriesOut:              output("Most likely categories.", true),
			"categoryProbabilitiesOut": output("Category probabilities.", false),
		},
		Parameters: map[string]engine.ParameterSpec{
			"k":                {Description: "Number of nearest neighbours.", DataType: engine.TypeUInt32, Count: 1, DefaultValue: 1, AccessMode: engine.AccessCreate},
			"distanceMethod":   enumParam("Distance method.", "norm", engine.AccessCreate, "norm, rawOverlap, pctOverlapOfInput, pctOverlapOfProto, pctOverlapOfLarger"),
			"distanceNorm":     realParam("Norm used by the norm distance.", 2, engine.AccessCreate),
			"maxCategoryCount": uintParam("Maximum number of categories.", 1000, engine.AccessCreate),
			"verbosity":        uintParam("Verbosity level.", 0, engine.AccessReadWrite),
			LearningModeParam:  engine.LearningModeParameter,
			InferenceModeParam: engine.InferenceModeParameter,
		},
	}
}

func newKNNClassifierRegion(params map[string]any) (engine.Region, error) {
	c, err := newClassifier(KNNClassifierRegionType, KNNClassifierRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SequenceClassifierRegionSpec is a research classifier voting over the
// category history of each active bit.
func SequenceClassifierRegionSpec() engine.RegionSpec {
	return engine.RegionSpec{
		Description:    "Sequence classifier: votes over the category history of each active bit.",
		SingleNodeOnly: true,
		Inputs: map[string]engine.PortSpec{
			CategoryIn:           input("Vector of categories of the input sample.", true, false),
			BottomUpIn:           input("Belief values over children's groups.", true, true),
			PredictedActiveCells: input("The cells that are active and predicted.", false, false),
		},
		Outputs: map[string]engine.PortSpec{
			CategoriesOut: output("Classification results, the most likely categories.", true),
		},
		Parameters: map[string]engine.ParameterSpec{
			LearningModeParam:  engine.LearningModeParameter,
			InferenceModeParam: engine.InferenceModeParameter,
			"alpha":            realParam("Alpha used for the running averages of bucket duty cycles.", 0.001, engine.AccessCreate),
			"implementation":   enumParam("The classifier implementation to use.", "", engine.AccessReadWrite, "py, cpp"),
			"clVerbosity":      uintParam("Verbosity level.", 0, engine.AccessReadWrite),
		},
	}
}

func newSequenceClassifierRegion(params map[string]any) (engine.Region, error) {
	c, err := newClassifier(SequenceClassifierRegionType, SequenceClassifierRegionSpec(), params)
	if err != nil {
		return nil, err
	}
	return c, nil
}
