// Package engine hosts regions and the links between them. It knows how to
// create a region from its registered type and a JSON parameter payload,
// how to validate links against region specs, and how to check that a
// network is complete before it runs. It does not schedule computation.
package engine

import "sort"

type AccessMode string

const (
	AccessRead      AccessMode = "Read"
	AccessReadWrite AccessMode = "ReadWrite"
	AccessCreate    AccessMode = "Create"
)

const (
	TypeUInt32 = "UInt32"
	TypeInt32  = "Int32"
	TypeReal32 = "Real32"
	TypeReal64 = "Real64"
	TypeBool   = "Bool"
	TypeByte   = "Byte"
)

const ConstraintBool = "bool"

type PortSpec struct {
	Description string
	DataType    string
	Count       int
	Required    bool
	RegionLevel bool
	IsDefault   bool
}

type ParameterSpec struct {
	Description  string
	DataType     string
	Count        int
	Constraints  string
	DefaultValue any
	AccessMode   AccessMode
}

// RegionSpec declares what a region type accepts and produces.
type RegionSpec struct {
	Description    string
	SingleNodeOnly bool
	Inputs         map[string]PortSpec
	Outputs        map[string]PortSpec
	Parameters     map[string]ParameterSpec
}

func (s RegionSpec) HasInput(name string) bool {
	_, ok := s.Inputs[name]
	return ok
}

func (s RegionSpec) HasOutput(name string) bool {
	_, ok := s.Outputs[name]
	return ok
}

func (s RegionSpec) DefaultInput() (string, bool) {
	return defaultPort(s.Inputs)
}

func (s RegionSpec) DefaultOutput() (string, bool) {
	return defaultPort(s.Outputs)
}

// RequiredInputs lists required input names in sorted order.
func (s RegionSpec) RequiredInputs() []string {
	var names []string
	for name, port := range s.Inputs {
		if port.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func defaultPort(ports map[string]PortSpec) (string, bool) {
	for name, port := range ports {
		if port.IsDefault {
			return name, true
		}
	}
	return "", false
}

// Common parameter specs shared by the learning regions.
var (
	LearningModeParameter = ParameterSpec{
		Description:  "Boolean (0/1) indicating whether or not a region is in learning mode.",
		DataType:     TypeUInt32,
		Count:        1,
		Constraints:  ConstraintBool,
		DefaultValue: true,
		AccessMode:   AccessReadWrite,
	}
	InferenceModeParameter = ParameterSpec{
		Description:  "Boolean (0/1) indicating whether or not a region is in inference mode.",
		DataType:     TypeUInt32,
		Count:        1,
		Constraints:  ConstraintBool,
		DefaultValue: false,
		AccessMode:   AccessReadWrite,
	}
)
